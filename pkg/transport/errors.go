package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPath rejects paths that would escape the configured endpoint.
	ErrInvalidPath = errors.New("path must be relative to the service endpoint")
	errEmptyBody   = errors.New("empty response body")
)

// NetworkError means no HTTP response was received: dial failure, TLS,
// timeout or context cancellation. Callers may retry with backoff.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is the service's structured error body.
type APIError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Arguments []any  `json:"arguments"`
}

// ServiceError is any non-2xx response. API is set when the body carried a
// structured error.
type ServiceError struct {
	Method string
	URL    string
	Status int
	Body   string
	API    *APIError
}

func (e *ServiceError) Error() string {
	if e.API != nil && e.API.Message != "" {
		msg := fmt.Sprintf("%s %s: service returned %d: code %d: %s", e.Method, e.URL, e.Status, e.API.Code, e.API.Message)
		if len(e.API.Arguments) > 0 {
			args := make([]string, len(e.API.Arguments))
			for i, a := range e.API.Arguments {
				args[i] = fmt.Sprint(a)
			}
			msg += " (" + strings.Join(args, ", ") + ")"
		}
		return msg
	}
	return fmt.Sprintf("%s %s: service returned %d: %s", e.Method, e.URL, e.Status, truncate(e.Body, 512))
}

// DecodeError means the response did not match the expected schema, which
// usually points to client/service version skew.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a ServiceError with the given status.
func IsStatus(err error, status int) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Status == status
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
