package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind classifies a pipeline error. The kind name is what ends up in a job
// record's cause field.
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindMissingInputArtifact   Kind = "MissingInputArtifact"
	KindBadUpload              Kind = "BadUpload"
	KindModelInvocationFailure Kind = "ModelInvocationFailure"
	KindMalformedResult        Kind = "MalformedResult"
	KindMalformedRecordStore   Kind = "MalformedRecordStore"
	KindResultNotFound         Kind = "ResultNotFound"
	KindTimeout                Kind = "Timeout"
	KindCanceled               Kind = "Canceled"
	KindConcurrentModification Kind = "ConcurrentModification"
	KindQueueFull              Kind = "QueueFull"
	KindInternal               Kind = "Internal"
)

// Common error types
var (
	ErrNotFound               = newKind(KindNotFound, "job not found")
	ErrMissingInputArtifact   = newKind(KindMissingInputArtifact, "required input artifact is missing")
	ErrBadUpload              = newKind(KindBadUpload, "bad upload")
	ErrModelInvocation        = newKind(KindModelInvocationFailure, "model invocation failed")
	ErrMalformedResult        = newKind(KindMalformedResult, "malformed result document")
	ErrMalformedRecordStore   = newKind(KindMalformedRecordStore, "malformed record store")
	ErrResultNotFound         = newKind(KindResultNotFound, "result not found")
	ErrTimeout                = newKind(KindTimeout, "stage timed out")
	ErrCanceled               = newKind(KindCanceled, "stage canceled")
	ErrConcurrentModification = newKind(KindConcurrentModification, "concurrent modification")
	ErrQueueFull              = newKind(KindQueueFull, "worker queue is full")
)

// Error represents a standardized error
type Error struct {
	kind    Kind
	message string
	cause   error
}

func newKind(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// New creates a new error
func New(message string) *Error {
	return &Error{kind: KindInternal, message: message}
}

// Newf creates a new formatted error
func Newf(format string, args ...interface{}) *Error {
	return &Error{kind: KindInternal, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context. The kind of the wrapped
// error is inherited.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		kind:    KindOf(err),
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		kind:    KindOf(err),
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind && e.message == t.message
}

// Kind returns the error's classification
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf walks the chain and returns the first classified kind. Context
// deadline and cancellation errors map to Timeout and Canceled.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for cur := err; cur != nil; cur = stderrors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok && e.kind != KindInternal {
			return e.kind
		}
		switch cur {
		case context.DeadlineExceeded:
			return KindTimeout
		case context.Canceled:
			return KindCanceled
		}
	}
	return KindInternal
}

// Cause renders an error in the "<Kind>: <detail>" form stored on a failed
// job record.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", KindOf(err), err.Error())
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As re-exported so callers need a single import
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Helper functions for common patterns

// NotFound returns an error for jobs that were not found
func NotFound(identifier string) error {
	return Wrapf(ErrNotFound, "job %s", identifier)
}

// MissingInput returns an error for an absent upstream artifact
func MissingInput(stage, path string) error {
	return Wrapf(ErrMissingInputArtifact, "%s requires %s", stage, path)
}

// BadUpload returns an upload validation error
func BadUpload(reason string) error {
	return Wrap(ErrBadUpload, reason)
}

// ModelFailure wraps an error returned by an external model
func ModelFailure(model string, err error) error {
	return &Error{
		kind:    KindModelInvocationFailure,
		message: fmt.Sprintf("%s failed", model),
		cause:   err,
	}
}

// Malformed returns a malformed result error for a document
func Malformed(path string, reason string) error {
	return Wrapf(ErrMalformedResult, "%s: %s", path, reason)
}
