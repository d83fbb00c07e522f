// Package openai sends one request to the OpenAI API and renders its response.
package openai

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Request describes the single call made to the API. It is built once and
// never modified.
type Request struct {
	Method string
	URL    *url.URL
	// Body is nil when the request carries no parameters.
	Body json.RawMessage
}

// NewRequest joins path onto baseURL and attaches body when it is not nil.
// path must be relative, as produced by validate.Path.
func NewRequest(baseURL, method, path string, body json.RawMessage) (*Request, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base URL %q is not absolute", baseURL)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse request path: %w", err)
	}
	if ref.IsAbs() || ref.Host != "" || strings.HasPrefix(ref.Path, "/") {
		return nil, fmt.Errorf("request path %q is not relative to the base URL", path)
	}

	return &Request{
		Method: method,
		URL:    base.ResolveReference(ref),
		Body:   body,
	}, nil
}
