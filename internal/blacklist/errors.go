package blacklist

import (
	"errors"
	"fmt"
)

// Errors returned by the client.
var (
	ErrTransport  = errors.New("blacklist transport error")
	ErrHTTPStatus = errors.New("blacklist unexpected http status")
	ErrMalformed  = errors.New("blacklist malformed response")
)

// APIError reports a call the service answered with a non-success code.
type APIError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blacklist %s: code %d: %s", e.Endpoint, e.Code, e.Message)
}

// Err converts a non-success result into an *APIError; success yields nil.
func (r *Result) Err(endpoint string) error {
	if r.Success() {
		return nil
	}
	return &APIError{Endpoint: endpoint, Code: r.Code, Message: r.Message}
}
