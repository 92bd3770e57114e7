// Package model holds the value types shared by every CRUD layer: the error
// classification, the per-call result envelope and the query options.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure surfaced by the service or controller layer.
type ErrorKind string

const (
	UnhandledError         ErrorKind = "unhandled_error"
	InvalidArguments       ErrorKind = "invalid_arguments"
	ConnectionTimeout      ErrorKind = "connection_timeout"
	NotFound               ErrorKind = "not_found"
	EmptyResponse          ErrorKind = "empty_response"
	FailedToCreateResource ErrorKind = "failed_to_create_resource"
	FailedToUpdateResource ErrorKind = "failed_to_update_resource"
	FailedToDeleteResource ErrorKind = "failed_to_delete_resource"
)

// Kinds returns every declared error kind in declaration order.
func Kinds() []ErrorKind {
	return []ErrorKind{
		UnhandledError,
		InvalidArguments,
		ConnectionTimeout,
		NotFound,
		EmptyResponse,
		FailedToCreateResource,
		FailedToUpdateResource,
		FailedToDeleteResource,
	}
}

// DefaultStatusCode is applied by callers that build an ErrorInfo without an
// explicit status.
const DefaultStatusCode = http.StatusBadRequest

// ErrorInfo describes a failure. A zero StatusCode means "not set".
type ErrorInfo struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Cause      error
}

// NewErrorInfo builds an ErrorInfo.
func NewErrorInfo(kind ErrorKind, message string, statusCode int, cause error) ErrorInfo {
	return ErrorInfo{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// WithStatus returns a copy of the info carrying a different status code.
func (i ErrorInfo) WithStatus(statusCode int) ErrorInfo {
	i.StatusCode = statusCode
	return i
}

func (i ErrorInfo) String() string {
	if i.Message == "" {
		return string(i.Kind)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

type errorPayload struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

func (i ErrorInfo) payload() errorPayload {
	p := errorPayload{Kind: i.Kind, Message: i.Message, StatusCode: i.StatusCode}
	if i.Cause != nil {
		p.Cause = i.Cause.Error()
	}
	return p
}

// MarshalJSON renders the cause as its error text.
func (i ErrorInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.payload())
}

// UnmarshalJSON restores a cause as an opaque error carrying the original text.
func (i *ErrorInfo) UnmarshalJSON(data []byte) error {
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = ErrorInfo{Kind: p.Kind, Message: p.Message, StatusCode: p.StatusCode}
	if p.Cause != "" {
		i.Cause = errors.New(p.Cause)
	}
	return nil
}

// AppException is the error type every HTTP-facing layer returns. Its JSON
// form is the response body written by the exception filter.
type AppException struct {
	Info       ErrorInfo
	StatusCode int
}

// NewAppException wraps info, taking the status code from it.
func NewAppException(info ErrorInfo) *AppException {
	return &AppException{Info: info, StatusCode: info.StatusCode}
}

// Error implements the error interface.
func (e *AppException) Error() string {
	if e.Info.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Info.String(), e.Info.Cause)
	}
	return e.Info.String()
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppException) Unwrap() error {
	return e.Info.Cause
}

// Kind returns the error classification.
func (e *AppException) Kind() ErrorKind {
	return e.Info.Kind
}

// MarshalJSON renders {kind, message, statusCode, cause}; statusCode is the
// exception's own status.
func (e *AppException) MarshalJSON() ([]byte, error) {
	p := e.Info.payload()
	p.StatusCode = e.StatusCode
	return json.Marshal(p)
}

// AsAppException extracts an *AppException from an error chain.
func AsAppException(err error) (*AppException, bool) {
	var appErr *AppException
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppException of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppException(err)
	return ok && appErr.Info.Kind == kind
}

// StatusOf resolves the HTTP status for err: the AppException status when
// set, 500 otherwise.
func StatusOf(err error) int {
	if appErr, ok := AsAppException(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
