// Package errors defines the JSON error body returned by the HTTP API and
// its mapping from pipeline errors.
package errors

import (
	"fmt"
	"net/http"

	apperrors "smart-audio/internal/app/errors"
)

// ErrorKind classifies an API error; each kind has one HTTP status.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindInternal           ErrorKind = "internal"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindBadRequest         ErrorKind = "bad_request"
)

var statusByKind = map[ErrorKind]int{
	KindValidation:         http.StatusUnprocessableEntity,
	KindBadRequest:         http.StatusBadRequest,
	KindNotFound:           http.StatusNotFound,
	KindConflict:           http.StatusConflict,
	KindServiceUnavailable: http.StatusServiceUnavailable,
	KindInternal:           http.StatusInternalServerError,
}

// kindByDomain maps pipeline error kinds onto API kinds. Kinds missing
// here are internal and have their message masked.
var kindByDomain = map[apperrors.Kind]ErrorKind{
	apperrors.KindNotFound:               KindNotFound,
	apperrors.KindResultNotFound:         KindNotFound,
	apperrors.KindBadUpload:              KindBadRequest,
	apperrors.KindMissingInputArtifact:   KindValidation,
	apperrors.KindConcurrentModification: KindConflict,
	apperrors.KindQueueFull:              KindServiceUnavailable,
	apperrors.KindMalformedResult:        KindInternal,
	apperrors.KindMalformedRecordStore:   KindInternal,
}

// APIError is the body of every non-2xx JSON response. Code carries the
// pipeline error kind when the error came from the pipeline.
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Code      string            `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the response status for the error kind.
func (e *APIError) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New builds an APIError of the given kind.
func New(kind ErrorKind, format string, args ...any) *APIError {
	return &APIError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports per-field problems with a request.
func NewValidationError(message string, fields map[string]string) *APIError {
	apiErr := New(KindValidation, "%s", message)
	apiErr.Details = fields
	return apiErr
}

func NewNotFoundError(resource string) *APIError {
	return New(KindNotFound, "%s not found", resource)
}

func NewBadRequestError(message string) *APIError {
	return New(KindBadRequest, "%s", message)
}

func NewServiceUnavailableError(message string) *APIError {
	return New(KindServiceUnavailable, "%s", message)
}

// FromDomain converts err into an APIError. An *APIError passes through
// unchanged.
func FromDomain(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}

	domainKind := apperrors.KindOf(err)
	kind, known := kindByDomain[domainKind]
	if !known {
		return &APIError{Kind: KindInternal, Message: "Internal server error", Code: string(domainKind)}
	}
	return &APIError{Kind: kind, Message: err.Error(), Code: string(domainKind)}
}
