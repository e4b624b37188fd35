// Package storage holds uploaded files and generated outputs. A reference
// returned by Save is "<dir>/<name>" and stays valid for Open and URL.
package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Open for unknown references.
var ErrNotFound = errors.New("file not found")

// ErrInvalidRef is returned for references that escape the storage root.
var ErrInvalidRef = errors.New("invalid file reference")

const suffixChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// join builds a reference from dir and a sanitized file name.
func join(dir, name string) (string, error) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: empty name", ErrInvalidRef)
	}
	ref := path.Join(dir, name)
	return ref, checkRef(ref)
}

// checkRef rejects absolute and parent-relative references.
func checkRef(ref string) error {
	clean := path.Clean(ref)
	if ref == "" || path.IsAbs(ref) || clean != ref || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return nil
}

// alternate returns ref with a random suffix before the extension, used
// when ref is taken.
func alternate(ref string) string {
	ext := path.Ext(ref)
	base := strings.TrimSuffix(ref, ext)
	return base + "_" + randomSuffix(7) + ext
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = suffixChars[int(b[i])%len(suffixChars)]
	}
	return string(b)
}
