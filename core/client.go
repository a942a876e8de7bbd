package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is read for diagnosis.
const maxErrorBody = 1 << 20

// Client is the HTTP engine every endpoint wrapper rides on. It owns a
// pooled transport, attaches authentication, applies the retry policy, and
// records rate-limit events. Client is safe for concurrent use; the pool
// is exclusively owned by one Client instance.
//
// All calls are treated as idempotent: POSTs are retried on retryable
// statuses and transport errors under the same policy as GETs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     RetryPolicy
	metrics    *RateLimitMetrics
	telemetry  TelemetryHook
	userAgent  string

	// sleep is replaced in tests to make retry timing observable.
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled HTTP client, for tests and custom
// transports. The caller keeps responsibility for pool sizing.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithRetryPolicy replaces the retry policy derived from the Config.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// NewClient creates an engine from a resolved Config.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolMaxSize,
		MaxIdleConnsPerHost: cfg.PoolConnections,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		policy:     policyFromConfig(cfg),
		metrics:    NewRateLimitMetrics(cfg.MetricsRetention),
		telemetry:  NoopTelemetryHook{},
		userAgent:  "venice-go/" + Version,
		sleep:      SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the resolved configuration the engine was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// Metrics returns the rate-limit recorder owned by this engine.
func (c *Client) Metrics() *RateLimitMetrics {
	return c.metrics
}

// request describes one logical call through the engine.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	stream  bool
	rawBody bool // skip JSON validation; caller consumes the byte stream
	timeout time.Duration
	noAuth  bool // absolute artifact URLs never receive the bearer token
}

// RequestOption adjusts a single call.
type RequestOption func(*request)

// WithRequestTimeout overrides the configured timeout for one call. For
// streaming calls the timeout spans the full stream lifetime.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(r *request) { r.timeout = d }
}

// Get issues a GET and returns the decoded JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...RequestOption) (json.RawMessage, error) {
	return c.doJSON(ctx, request{method: http.MethodGet, path: path, query: query}, opts)
}

// Post issues a POST with a JSON body and returns the decoded JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.doJSON(ctx, request{method: http.MethodPost, path: path, body: body}, opts)
}

// Delete issues a DELETE and returns the decoded JSON body, which may be
// nil for empty responses.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	return c.doJSON(ctx, request{method: http.MethodDelete, path: path}, opts)
}

// RawResponse is a successful response whose body the caller streams
// directly, used for binary payloads. Closing the body releases the
// connection and any per-call deadline.
type RawResponse struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        io.ReadCloser
}

// PostRaw issues a POST and hands the raw response body to the caller.
func (c *Client) PostRaw(ctx context.Context, path string, body any, opts ...RequestOption) (*RawResponse, error) {
	return c.doRaw(ctx, request{method: http.MethodPost, path: path, body: body, rawBody: true}, opts)
}

// DownloadURL streams an absolute artifact URL (for example a completed
// video) through the engine's pool. No authorization header is sent,
// whatever the host.
func (c *Client) DownloadURL(ctx context.Context, rawURL string, opts ...RequestOption) (*RawResponse, error) {
	return c.doRaw(ctx, request{method: http.MethodGet, path: rawURL, rawBody: true, noAuth: true}, opts)
}

// Stream issues a POST with Accept: text/event-stream and returns an SSE
// iterator over the response body. The engine does not retry once the
// stream has been handed to the caller.
func (c *Client) Stream(ctx context.Context, path string, body any, opts ...RequestOption) (*SSEStream, error) {
	req := request{method: http.MethodPost, path: path, body: body, stream: true}
	for _, opt := range opts {
		opt(&req)
	}
	resp, cancel, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp.Body, cancel), nil
}

// doJSON runs the request and decodes the body as JSON.
func (c *Client) doJSON(ctx context.Context, req request, opts []RequestOption) (json.RawMessage, error) {
	for _, opt := range opts {
		opt(&req)
	}
	resp, cancel, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newConnectionError(err, req.method, req.path, nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, newDecodeError(errInvalidJSON, data)
	}
	return json.RawMessage(data), nil
}

// doRaw runs the request and returns the body as a caller-owned stream.
func (c *Client) doRaw(ctx context.Context, req request, opts []RequestOption) (*RawResponse, error) {
	for _, opt := range opts {
		opt(&req)
	}
	resp, cancel, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RawResponse{
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        &cancelReadCloser{rc: resp.Body, cancel: cancel},
	}, nil
}

// do executes the retry loop. On success it returns the response together
// with the cancel func that releases the per-call deadline; the caller must
// invoke cancel once the body is consumed.
func (c *Client) do(ctx context.Context, req request) (*http.Response, context.CancelFunc, error) {
	var bodyBytes []byte
	if req.body != nil {
		var err error
		bodyBytes, err = json.Marshal(req.body)
		if err != nil {
			return nil, nil, newDecodeError(err, nil)
		}
	}

	targetURL, err := c.resolveURL(req)
	if err != nil {
		return nil, nil, err
	}

	timeout := req.timeout
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}

	start := time.Now()
	c.telemetry.OnRequestStart(RequestStartEvent{Method: req.method, Path: req.path, Start: start})

	maxAttempts := c.policy.MaxAttempts()
	var lastErr *APIError
	var lastStatus int

	finish := func(status int, attempts int, err error) {
		c.telemetry.OnRequestEnd(RequestEndEvent{
			Method:   req.method,
			Path:     req.path,
			Status:   status,
			Attempts: attempts,
			Start:    start,
			End:      time.Now(),
			Err:      err,
		})
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, targetURL, bytes.NewReader(bodyBytes))
		if err != nil {
			cancel()
			finish(0, attempt, err)
			return nil, nil, newConnectionError(err, req.method, req.path, nil)
		}
		c.setHeaders(httpReq, req)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			cancel()
			lastErr = c.transportError(ctx, err, req)
			lastStatus = 0
			if ctx.Err() != nil {
				// The caller's context is gone; retrying cannot help.
				finish(0, attempt, lastErr)
				return nil, nil, lastErr
			}
			if attempt < maxAttempts {
				delay := c.policy.Delay(attempt, nil)
				c.telemetry.OnRetry(RetryEvent{Method: req.method, Path: req.path, Attempt: attempt, Delay: delay})
				if err := c.sleep(ctx, delay); err != nil {
					finish(0, attempt, lastErr)
					return nil, nil, lastErr
				}
				continue
			}
			finish(0, attempt, lastErr)
			return nil, nil, lastErr
		}

		status := resp.StatusCode
		if status == http.StatusTooManyRequests {
			c.recordRateLimit(req, resp)
		}

		if status >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			cancel()

			apiErr := newStatusError(status, body, resp.Header, req.method, req.path)
			lastErr = apiErr
			lastStatus = status

			if c.policy.RetryableStatus(status) && attempt < maxAttempts {
				var retryAfter *int
				if status == http.StatusTooManyRequests {
					retryAfter = apiErr.RetryAfter
				}
				delay := c.policy.Delay(attempt, retryAfter)
				c.telemetry.OnRetry(RetryEvent{Method: req.method, Path: req.path, Attempt: attempt, Status: status, Delay: delay})
				if err := c.sleep(ctx, delay); err != nil {
					finish(status, attempt, lastErr)
					return nil, nil, lastErr
				}
				continue
			}
			finish(status, attempt, lastErr)
			return nil, nil, lastErr
		}

		finish(status, attempt, nil)
		return resp, cancel, nil
	}

	// Unreachable: the loop always returns. Kept for the compiler.
	finish(lastStatus, maxAttempts, lastErr)
	return nil, nil, lastErr
}

// transportError classifies a round-trip failure, tagging deadline
// expiries with reason=deadline.
func (c *Client) transportError(parent context.Context, err error, req request) *APIError {
	var extra map[string]string
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		extra = map[string]string{"reason": "deadline"}
	}
	return newConnectionError(err, req.method, req.path, extra)
}

// recordRateLimit emits exactly one metrics event for a 429 response.
func (c *Client) recordRateLimit(req request, resp *http.Response) {
	event := RateLimitEvent{
		Endpoint:     req.path,
		StatusCode:   resp.StatusCode,
		RetryAfter:   retryAfterSeconds(resp.Header),
		RequestCount: 1,
		Method:       req.method,
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(remaining)); err == nil {
			event.RemainingRequests = &n
		}
	}
	c.metrics.Record(event)
	c.telemetry.OnRateLimit(event)
}

// resolveURL joins a relative path with the configured base URL. Absolute
// URLs pass through untouched (artifact downloads).
func (c *Client) resolveURL(req request) (string, error) {
	target := req.path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(req.path, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", newConfigError("invalid request URL "+target, err)
	}
	if len(req.query) > 0 {
		q := u.Query()
		for k, vs := range req.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// setHeaders attaches auth, content negotiation and identification headers.
func (c *Client) setHeaders(httpReq *http.Request, req request) {
	if !req.noAuth {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey.Expose())
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	} else if !req.rawBody {
		httpReq.Header.Set("Accept", "application/json")
	}
}

// SleepContext waits for d or until ctx is done. It is the engine's default
// retry sleep and is shared by the video wait loop.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cancelReadCloser releases the per-call deadline when the caller closes
// the raw body.
type cancelReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) {
	return c.rc.Read(p)
}

func (c *cancelReadCloser) Close() error {
	err := c.rc.Close()
	if c.cancel != nil {
		c.cancel()
	}
	return err
}
