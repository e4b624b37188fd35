package core

// Error codes reference
//
// Codes are quoted back to operators so support can find the cause quickly.
//
//	JOB001  Job not found
//	JOB002  Unknown model
//	JOB003  Export has no recipient
//	FMT001  Unknown format
//	FMT002  Format not supported for this direction
//	FILE001 File too large
//	FILE003 Encoding error
//	FILE004 No file provided
//	FILE005 Empty file
//	QUE001  Queue is full
//	QUE002  Queue is stopped
//	DB004   Connection refused
//	DB005   Connection reset
//	DB006   Timeout
//	REQ001  Request cancelled
//	REQ002  Request timed out
//	ERR000  Anything else; check the logs for the technical error
//
// Sentinel errors are matched with errors.Is before any text pattern. Text
// patterns are matched case-insensitively and the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/importexport/internal/format"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages are checked in order with errors.Is.
var sentinelMessages = []sentinelMessage{
	{ErrJobNotFound, UserMessage{
		Message: "Job not found",
		Action:  "Check the job ID",
		Code:    "JOB001",
	}},
	{ErrUnknownModel, UserMessage{
		Message: "Unknown model",
		Action:  "Choose one of the configured models",
		Code:    "JOB002",
	}},
	{ErrNoRecipient, UserMessage{
		Message: "Export job has no owner email",
		Action:  "Provide an owner email or turn off email on completion",
		Code:    "JOB003",
	}},
	{format.ErrUnknownFormat, UserMessage{
		Message: "Unknown file format",
		Action:  "Choose one of the listed formats",
		Code:    "FMT001",
	}},
	{ErrEncoding, UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save file as UTF-8 encoding",
		Code:    "FILE003",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "REQ002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "cannot be imported",
		msg: UserMessage{
			Message: "This format cannot be imported",
			Action:  "Choose one of the import formats",
			Code:    "FMT002",
		},
	},
	{
		pattern: "cannot be exported",
		msg: UserMessage{
			Message: "This format cannot be exported",
			Action:  "Choose one of the export formats",
			Code:    "FMT002",
		},
	},
	{
		pattern: "has no export resource",
		msg: UserMessage{
			Message: "Unknown export resource",
			Action:  "Leave the resource empty to use the model default",
			Code:    "JOB002",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "queue is full",
		msg: UserMessage{
			Message: "System is busy processing other jobs",
			Action:  "Please wait a moment and re-run the job",
			Code:    "QUE001",
		},
	},
	{
		pattern: "queue is stopped",
		msg: UserMessage{
			Message: "The job queue is shutting down",
			Action:  "Re-run the job once the service is back",
			Code:    "QUE002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load: %w", ErrJobNotFound))
//	// msg.Code == "JOB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
