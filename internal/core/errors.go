package core

import "errors"

var (
	// ErrEncoding marks an upload whose bytes are not valid UTF-8 for a text format.
	ErrEncoding = errors.New("wrong encoding")
	// ErrRead marks any other failure turning an upload into a dataset.
	ErrRead = errors.New("error reading file")
	// ErrUnknownModel is returned when a job names a model missing from the registry.
	ErrUnknownModel = errors.New("unknown model")
	// ErrJobNotFound is returned by JobStore lookups.
	ErrJobNotFound = errors.New("job not found")
	// ErrNoRecipient is returned when an export asks for email but has no owner address.
	ErrNoRecipient = errors.New("export job has no owner email")
)

// ReadError is a failure loading an upload. Kind is ErrEncoding or ErrRead.
type ReadError struct {
	Kind error
	Err  error
}

func (e *ReadError) Error() string { return e.Kind.Error() + ": " + e.Err.Error() }

func (e *ReadError) Unwrap() []error { return []error{e.Kind, e.Err} }
