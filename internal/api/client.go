// Package api is the client for the asset-tracking REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/logging"
)

// DefaultTimeout is used when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized is returned for a 401 response. Callers treat it as an
// expired session rather than a generic failure.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Client provides access to the backend. It holds no session state; every
// call that needs authorization takes the bearer token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. "http://127.0.0.1:8000/api/v1").
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger.Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one round trip.
type request struct {
	method      string
	segments    []string
	trailing    bool // keep a trailing slash, some backend routes require it
	token       string
	body        any
	rawBody     io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request, result any) error {
	endpoint, err := buildURL(c.baseURL, r.trailing, r.segments...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var reqBody io.Reader
	contentType := r.contentType
	switch {
	case r.rawBody != nil:
		reqBody = r.rawBody
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	c.logger.Debug("Calling backend",
		zap.String("method", r.method),
		zap.String("url", endpoint),
		zap.Bool("authenticated", r.token != ""))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Backend rejected credentials",
			zap.String("method", r.method),
			zap.String("url", endpoint))
		return fmt.Errorf("%s %s: %w", r.method, req.URL.Path, ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Backend returned error",
			zap.String("method", r.method),
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.RedactToken(truncate(string(respBody), 500))))
		return &StatusError{
			Method:     r.method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response from %s %s: %w", r.method, req.URL.Path, err)
	}

	return nil
}

// errorMessage pulls a human message out of an error body. The backend uses
// either {"message": ...} or {"detail": ...}.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Detail != "":
		return payload.Detail
	default:
		return payload.Error
	}
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, trailing bool, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)
	if trailing {
		u.Path += "/"
	}

	return u.String(), nil
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
