package resource

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
)

// ErrNotFound matches any StatusError carrying a 404 status.
var ErrNotFound = errors.New("resource not found")

// Response is the transport envelope around a decoded JSON payload.
type Response struct {
	// URL is the URL the request was sent to.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Data is the decoded JSON body, nil for empty bodies.
	Data any
}

// Payload returns the decoded body. It lets the hypermedia resolver unwrap
// responses without knowing about the transport. A nil response has no
// payload.
func (r *Response) Payload() any {
	if r == nil {
		return nil
	}
	return r.Data
}

// Origin returns the URL the response was requested from.
func (r *Response) Origin() string {
	return r.URL
}

// MediaType returns the response content type without parameters.
func (r *Response) MediaType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mt
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// StatusCode extracts the HTTP status from err, if err wraps a StatusError.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
