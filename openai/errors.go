package openai

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Protocol violations.
var (
	// ErrMissingContentType is returned when a successful response has no Content-Type header.
	ErrMissingContentType = errors.New("the API response does not contain the header `Content-Type`")

	// ErrRetryRequested is returned when the event stream asks the client to
	// reconnect, which a single-request client cannot do.
	ErrRetryRequested = errors.New("failed to resolve the API response: retry occurred")
)

// resolveFailedMessage is the outermost layer of a ResponseError.
const resolveFailedMessage = "Failed to resolve the API response"

// maxBodyContext bounds how much of an unparsable body is quoted in errors.
const maxBodyContext = 2000

// StatusError reports a non-2xx HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	// Body holds the response text when it was read.
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP status %s", e.Status)
	if e.URL != "" {
		msg += " for url (" + e.URL + ")"
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, maxBodyContext)
	}
	return msg
}

// UnsupportedContentTypeError is returned for a response type the client cannot render.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("failed to resolve the API response: %q is an invalid format", e.ContentType)
}

// ResponseError aggregates a failed JSON response: the body (parsed or not),
// the HTTP status, and a fixed wrapper message. Each part is reported even
// when another is missing.
type ResponseError struct {
	// Body is the pretty-printed document, or the parse failure followed by the raw text.
	Body string
	// Status is nil when the status was 2xx.
	Status *StatusError
	// ParseErr is nil when the body was valid JSON.
	ParseErr error
}

// Layers returns body context, status context and wrapper message, innermost
// first. Absent parts are empty strings.
func (e *ResponseError) Layers() []string {
	status := ""
	if e.Status != nil {
		status = e.Status.Error()
	}
	return []string{e.Body, status, resolveFailedMessage}
}

func (e *ResponseError) Error() string {
	layers := e.Layers()
	parts := make([]string, 0, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] != "" {
			parts = append(parts, layers[i])
		}
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes the status and parse failures to errors.Is and errors.As.
func (e *ResponseError) Unwrap() []error {
	var errs []error
	if e.Status != nil {
		errs = append(errs, e.Status)
	}
	if e.ParseErr != nil {
		errs = append(errs, e.ParseErr)
	}
	return errs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
