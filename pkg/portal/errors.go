package portal

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrMaskLoad is wrapped by MaskError.
var ErrMaskLoad = errors.New("mask load failed")

// HTTPError reports a non-2xx response.
type HTTPError struct {
	// Op names the portal call (e.g., "upload", "status").
	Op string

	// URL is the request URL.
	URL string

	StatusCode int

	// StatusText is the reason phrase without the numeric code.
	StatusText string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("portal %s: %d %s", e.Op, e.StatusCode, e.StatusText)
}

// RequestError wraps a transport failure (no response received).
type RequestError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("portal %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// MaskError reports a mask body that the portal answered with "ERROR...".
type MaskError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *MaskError) Error() string {
	return fmt.Sprintf("mask %s: %s", e.Name, e.Message)
}

// Unwrap returns ErrMaskLoad.
func (e *MaskError) Unwrap() error {
	return ErrMaskLoad
}

// StatusText returns the short reason used in user-facing failure lines:
// the HTTP reason phrase for HTTP errors, otherwise the error text.
func StatusText(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusText
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Err.Error()
	}
	return err.Error()
}

// reasonPhrase strips the code from a net/http Status such as "404 Not Found".
func reasonPhrase(status string, code int) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
