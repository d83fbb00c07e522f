package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
)

// Media types the resolver can render.
const (
	mediaTypeJSON        = "application/json"
	mediaTypeEventStream = "text/event-stream"
)

// doneMarker ends an event stream.
const doneMarker = "[DONE]"

// jsonContextPrefix introduces a pretty-printed body quoted in an error.
const jsonContextPrefix = "The API response in JSON format:\n"

// ResolveResponse renders resp to w according to its content type and closes
// the body. A JSON document is written in one piece, only on success; stream
// events are written as they arrive.
func ResolveResponse(resp *http.Response, w io.Writer, logger *slog.Logger) error {
	defer resp.Body.Close()

	if logger == nil {
		logger = slog.Default()
	}

	statusErr := checkStatus(resp)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		if statusErr != nil {
			body, _ := io.ReadAll(resp.Body)
			statusErr.Body = string(body)
			return statusErr
		}
		return ErrMissingContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return &UnsupportedContentTypeError{ContentType: contentType}
	}

	logger.Debug("Resolving the API response", "media_type", mediaType, "status", resp.StatusCode)

	switch mediaType {
	case mediaTypeJSON:
		return resolveJSON(resp.Body, statusErr, w)
	case mediaTypeEventStream:
		if statusErr != nil {
			return statusErr
		}
		return resolveEventStream(resp.Body, w, logger)
	default:
		return &UnsupportedContentTypeError{ContentType: contentType}
	}
}

// checkStatus returns nil for a 2xx status.
func checkStatus(resp *http.Response) *StatusError {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var url string
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	return &StatusError{StatusCode: resp.StatusCode, Status: status, URL: url}
}

func resolveJSON(body io.Reader, statusErr *StatusError, w io.Writer) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var (
		pretty   bytes.Buffer
		parseErr error
	)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		parseErr = fmt.Errorf("parse JSON body: %w", err)
	} else if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		parseErr = fmt.Errorf("parse JSON body: %w", err)
	}

	if parseErr == nil && statusErr == nil {
		if _, err := w.Write(pretty.Bytes()); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		return nil
	}

	respErr := &ResponseError{Status: statusErr, ParseErr: parseErr}
	if parseErr != nil {
		respErr.Body = fmt.Sprintf("%v\n%s", parseErr, truncate(string(raw), maxBodyContext))
	} else {
		respErr.Body = jsonContextPrefix + pretty.String()
	}
	return respErr
}

func resolveEventStream(body io.Reader, w io.Writer, logger *slog.Logger) error {
	events := NewEventReader(body)

	for n := 0; ; n++ {
		ev, err := events.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug("Event stream ended without a done marker", "events", n)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event stream: %w", err)
		}

		if ev.Data == doneMarker {
			logger.Debug("Event stream finished", "events", n)
			return nil
		}
		if ev.HasRetry {
			return ErrRetryRequested
		}

		if _, err := io.WriteString(w, ev.Data+"\n"); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
}
