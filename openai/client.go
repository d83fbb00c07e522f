package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// OrganizationHeader carries the organization ID.
const OrganizationHeader = "OpenAI-Organization"

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends authenticated requests to the API.
type Client struct {
	key          string
	organization string
	doer         Doer
	logger       *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDoer sets the transport used to send requests.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithTimeout bounds the whole exchange, including reading a streamed body.
// Zero means no limit. It replaces any Doer set earlier.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.doer = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client authenticating with key. An empty organization
// leaves the organization header out.
func NewClient(key, organization string, opts ...ClientOption) *Client {
	c := &Client{
		key:          key,
		organization: organization,
		doer:         &http.Client{},
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send dispatches req and returns the response. The caller owns the body.
func (c *Client) Send(ctx context.Context, req *Request) (*http.Response, error) {
	// Tags the log lines of this exchange.
	requestID := uuid.New().String()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.key)
	if c.organization != "" {
		httpReq.Header.Set(OrganizationHeader, c.organization)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Info("Sending request",
		"request_id", requestID,
		"method", req.Method,
		"url", req.URL.String(),
		"organization", c.organization != "",
		"body_bytes", len(req.Body))

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	c.logger.Info("Received the API response",
		"request_id", requestID,
		"status", resp.Status)
	c.logger.Debug("Response headers",
		"request_id", requestID,
		"headers", resp.Header)

	return resp, nil
}
