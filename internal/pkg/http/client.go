package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/middleware"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read
	DefaultMaxResponseBytes int64 = 1 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds the configured cap
var ErrResponseTooLarge = errors.New("response body too large")

// Config configures a JSON API client
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	BearerToken      string
	MaxResponseBytes int64
}

// Client is a JSON HTTP client for third-party APIs, instrumented with New Relic
// external segments
type Client struct {
	baseURL          string
	bearerToken      string
	maxResponseBytes int64
	httpClient       *nethttp.Client
}

// NewClient creates a new HTTP client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxResponseBytes := config.MaxResponseBytes
	if maxResponseBytes <= 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}

	return &Client{
		baseURL:          strings.TrimRight(config.BaseURL, "/"),
		bearerToken:      config.BearerToken,
		maxResponseBytes: maxResponseBytes,
		httpClient:       &nethttp.Client{Timeout: timeout},
	}
}

// HTTPError is returned for responses with a status code of 400 or above
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Do sends a request with a JSON body (nil for none)
func (c *Client) Do(ctx context.Context, method, endpoint string, body interface{}) (*nethttp.Response, error) {
	url := c.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	logger.DebugCtx(ctx, "Making HTTP request",
		logger.String("method", method),
		logger.String("url", url))

	resp, err := nrpkg.InstrumentHTTPRequest(ctx, req, func() (*nethttp.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	logger.DebugCtx(ctx, "HTTP request completed",
		logger.String("method", method),
		logger.String("url", url),
		logger.Int("status_code", resp.StatusCode))

	return resp, nil
}

// DoJSON sends a request and decodes the JSON response into result. The body is
// decoded for error statuses too, and an *HTTPError is returned alongside.
func (c *Client) DoJSON(ctx context.Context, method, endpoint string, body, result interface{}) error {
	resp, err := c.Do(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > c.maxResponseBytes {
		return fmt.Errorf("%s %s: %w", method, endpoint, ErrResponseTooLarge)
	}

	var decodeErr error
	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, result)
	}

	if resp.StatusCode >= nethttp.StatusBadRequest {
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}

func errorMessage(data []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
