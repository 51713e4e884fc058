package fetcher

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrInvalidProxy is returned when the proxy URL cannot be used.
var ErrInvalidProxy = errors.New("invalid proxy URL: expected socks5://host:port")

// StatusError is returned when the server responds with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// TransportError is returned when the request could not complete:
// DNS failures, refused connections, timeouts and broken bodies.
type TransportError struct {
	URL string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kind returns a short name for the failure class, used in download logs.
func (e *TransportError) Kind() string {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	cause := e.Err
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		cause = urlErr.Err
	}
	return fmt.Sprintf("%T", cause)
}
