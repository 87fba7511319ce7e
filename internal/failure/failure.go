// Package failure defines the error vocabulary reported in run status records.
package failure

import (
	"errors"
	"fmt"
)

// Type is the errorType persisted with a failed run.
type Type string

const (
	FileSizeExceeded                Type = "FileSizeExceeded"
	FileNumberOfPagesExceeded       Type = "FileNumberOfPagesExceeded"
	InvalidPDFFormat                Type = "InvalidPDFFormat"
	InvalidLink                     Type = "InvalidLink"
	SummarizationMethodNotSupported Type = "SummarizationMethodNotSupported"
	CoreSystemFailure               Type = "CoreSystemFailure"
)

// Error attaches a Type to an underlying error.
type Error struct {
	Type Type
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of type t with a formatted message.
func New(t Type, format string, args ...any) error {
	return &Error{Type: t, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with t. A nil err stays nil.
func Wrap(t Type, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Err: err}
}

// TypeOf returns the Type carried by err, or CoreSystemFailure if err is not
// typed. It returns "" for a nil error.
func TypeOf(err error) Type {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return CoreSystemFailure
}

// IsValidation reports whether t is detected before any processing starts.
func (t Type) IsValidation() bool {
	switch t {
	case FileSizeExceeded, FileNumberOfPagesExceeded, InvalidPDFFormat, InvalidLink, SummarizationMethodNotSupported:
		return true
	}
	return false
}
