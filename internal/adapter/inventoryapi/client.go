// Package inventoryapi is the HTTP client for the inventory collaborator REST
// API: stock, ledger transactions and stocktake sessions.
package inventoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/pkg/ctxutil"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	maxErrorBody      = 64 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	// HTTPClient overrides the default client (for testing). Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the collaborator API. It keeps no state between calls and
// caches nothing, so it is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	log        *slog.Logger
}

// NewClient creates a Client rooted at opts.BaseURL (e.g. "http://host:5000/api").
func NewClient(opts Options, logger *slog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: hc,
		retryDelay: delay,
		log:        logger.With("adapter", "inventoryapi"),
	}
}

// NewClientWithURL creates a Client with default timeouts (for testing).
func NewClientWithURL(baseURL string, logger *slog.Logger) *Client {
	return NewClient(Options{BaseURL: baseURL, RetryDelay: 10 * time.Millisecond}, logger)
}

// get issues an idempotent GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// send issues a mutating request. Mutations are never retried: a retry after
// a lost response could append a second ledger entry.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("inventoryapi: encode %s %s: %w", method, path, err)
		}
	}

	// One ID per call; a retried GET reuses it so the server log ties both
	// attempts together.
	requestID := ctxutil.RequestIDFromCtx(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	newRequest := func() (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(ctxutil.RequestIDHeader, requestID)
		return req, nil
	}

	c.log.DebugContext(ctx, "inventoryapi request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.execute(ctx, method, path, newRequest)
	if err != nil {
		c.log.ErrorContext(ctx, "inventoryapi request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("inventoryapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "inventoryapi response",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("inventoryapi: read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("inventoryapi: decode %s %s: %w", method, path, err)
	}
	return nil
}

// execute performs the request, retrying a GET once on 5xx or network errors.
func (c *Client) execute(ctx context.Context, method, path string, newRequest func() (*http.Request, error)) (*http.Response, error) {
	req, err := newRequest()
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if method != http.MethodGet {
		return resp, err
	}

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "inventoryapi retry", slog.String("path", path), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	req, err = newRequest()
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.httpClient.Do(req)
}

// decodeAPIError builds an APIError from a non-2xx response.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		var body apiErrorBody
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Message = strings.TrimSpace(body.Error)
			apiErr.Fields = body.Fields
		}
	}
	return apiErr
}

