// Package fetch implements the HTTP fetcher used by http steps.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client implements Fetcher over net/http
type Client struct {
	http         *http.Client
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewClient creates a fetcher. Responses larger than maxBodyBytes fail.
func NewClient(timeout time.Duration, maxBodyBytes int64, logger *zap.Logger) *Client {
	return &Client{
		http:         &http.Client{Timeout: timeout},
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Fetch performs the request. JSON responses are decoded, anything else is
// returned as a string.
func (c *Client) Fetch(ctx context.Context, req *ports.FetchRequest) (any, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
		if len(req.Body) > 0 {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", c.maxBodyBytes)
	}

	c.logger.Debug("fetch completed",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return decodeBody(resp.Header.Get("Content-Type"), data), nil
}

func decodeBody(contentType string, data []byte) any {
	if len(data) == 0 {
		return nil
	}
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v
		}
	}
	return string(data)
}
