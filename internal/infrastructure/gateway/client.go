// Package gateway is the typed HTTP client of the site data API. Every method issues exactly one
// request and maps any non-success status to a shared.DomainError; retries and fallbacks belong
// to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// maxResponseSize bounds the body read from the server
const maxResponseSize = 64 << 20

// envelope is the server's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorInfo      `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Details []site.FieldViolation `json:"details,omitempty"`
}

// StatusError is the cause attached to errors built from a non-2xx response
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []site.FieldViolation
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client talks to the site data API under baseURL (for example http://host:8080/api)
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option is a functional option for configuring Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(g *Client) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Client) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Client. An empty baseURL gives a client whose every call fails with
// shared.ErrConfiguration.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, shared.ErrConfiguration.WithMessage("remote API base URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// doJSON sends in (when non-nil) as JSON and decodes the envelope data into out (when non-nil)
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gateway: failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) (err error) {
	ctx, span := telemetry.StartRemoteSpan(req.Context(), req.Method, req.URL.Path)
	defer func() {
		telemetry.RecordError(span, err)
		var se *StatusError
		if errors.As(err, &se) {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrRemoteStatus, se.StatusCode,
				telemetry.SpanAttrRemoteCode, se.Code,
			)
		}
		span.End()
	}()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Remote request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return shared.ErrNetwork.WithMessage("remote API unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.ErrNetwork.WithMessage("failed to read response").WithCause(err)
	}
	c.logger.Debug("Remote request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			se.Code = env.Error.Code
			se.Message = env.Error.Message
			se.Details = env.Error.Details
		}
		return statusToError(se)
	}
	if decodeErr != nil {
		return shared.ErrNetwork.WithMessage("malformed response envelope").WithCause(decodeErr)
	}
	if !env.Success {
		msg := "request failed"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return shared.ErrNetwork.WithMessage(msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return shared.ErrNetwork.WithMessage("malformed response data").WithCause(err)
	}
	return nil
}

func statusToError(se *StatusError) error {
	msg := se.Error()
	switch se.StatusCode {
	case http.StatusRequestEntityTooLarge:
		return shared.ErrPayloadTooLarge.WithMessage(msg).WithCause(se)
	case http.StatusNotFound:
		return shared.ErrNotFound.WithMessage(msg).WithCause(se)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return shared.ErrValidation.WithMessage(msg).WithCause(se)
	}
	return shared.ErrNetwork.WithMessage(msg).WithCause(se)
}
