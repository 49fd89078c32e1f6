// Package imaerr defines the error type shared by the page lifecycle.
//
// A GenericError carries an HTTP status together with arbitrary parameters.
// The router inspects the status to decide whether a failed navigation is
// shown as a not-found page, turned into a redirect, or rendered by the
// error route.
package imaerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// DefaultStatus is the status of a GenericError that does not set one.
const DefaultStatus = http.StatusInternalServerError

// GenericError is an application or framework error carrying an HTTP status.
type GenericError struct {
	// Message is a short description of the error.
	Message string

	// Params holds additional context (for redirects: "url").
	Params map[string]any

	// Status is the HTTP status. Zero means DefaultStatus.
	Status int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// New creates a GenericError with the given message and optional params.
func New(message string, params map[string]any) *GenericError {
	return &GenericError{Message: message, Params: params}
}

// Newf creates a GenericError with a formatted message and no params.
func Newf(format string, args ...any) *GenericError {
	return &GenericError{Message: fmt.Sprintf(format, args...)}
}

// WithStatus creates a GenericError with an explicit HTTP status.
func WithStatus(status int, message string, params map[string]any) *GenericError {
	return &GenericError{Message: message, Params: params, Status: status}
}

// Redirect creates an error that asks the router to redirect to url.
func Redirect(url string, status int) *GenericError {
	if status == 0 {
		status = http.StatusFound
	}
	return &GenericError{
		Message: "redirect",
		Params:  map[string]any{"url": url},
		Status:  status,
	}
}

// Error implements the error interface.
func (e *GenericError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *GenericError) Unwrap() error {
	return e.Wrapped
}

// Wrap sets the wrapped error and returns e.
func (e *GenericError) Wrap(err error) *GenericError {
	e.Wrapped = err
	return e
}

// HTTPStatus returns the HTTP status of the error.
func (e *GenericError) HTTPStatus() int {
	if e.Status == 0 {
		return DefaultStatus
	}
	return e.Status
}

// Param returns a single parameter or nil.
func (e *GenericError) Param(key string) any {
	if e.Params == nil {
		return nil
	}
	return e.Params[key]
}

// StatusOf returns the HTTP status of err. Errors that carry no status
// (anything not wrapping a GenericError) are internal server errors.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ge *GenericError
	if errors.As(err, &ge) {
		return ge.HTTPStatus()
	}
	return DefaultStatus
}

// IsClientError reports whether err carries a status in [400, 500).
func IsClientError(err error) bool {
	status := StatusOf(err)
	return status >= 400 && status < 500
}

// IsRedirection reports whether err carries a status in [300, 400).
func IsRedirection(err error) bool {
	status := StatusOf(err)
	return status >= 300 && status < 400
}

// RedirectURL returns the "url" param of a redirection error.
func RedirectURL(err error) string {
	var ge *GenericError
	if !errors.As(err, &ge) {
		return ""
	}
	url, _ := ge.Param("url").(string)
	return url
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying err. The router uses it to
// hand the failure to the controllers of the error and not-found routes.
func NewContext(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, contextKey{}, err)
}

// FromContext returns the routing error carried by ctx, if any.
func FromContext(ctx context.Context) error {
	err, _ := ctx.Value(contextKey{}).(error)
	return err
}
