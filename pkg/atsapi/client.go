package atsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/ats/internal/config"
)

var (
	ErrCircuitOpen = errors.New("ats api circuit open")
	ErrClosed      = errors.New("ats api client closed")
)

// Session supplies the bearer token for authenticated calls and reacts to a
// rejected one. Requests made on behalf of a session are cancelled when the
// session context is done.
type Session interface {
	Token() string
	Context() context.Context
	HandleUnauthorized()
}

// Client is the single gateway to the ATS REST collaborator. It injects the
// session token, normalizes list responses and maps error payloads. GET
// requests are retried with linear backoff behind a circuit breaker.
type Client struct {
	cfg     config.ClientConfig
	base    *url.URL
	client  *http.Client
	session Session

	failures  int32
	openUntil int64 // unix nano
	closed    int32
}

// NewClient creates a client for cfg.BaseURL. session may be nil for a client
// that only uses the public and auth endpoints.
func NewClient(cfg config.ClientConfig, httpClient *http.Client, session Session) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if cfg.CircuitFailureThreshold <= 0 {
		cfg.CircuitFailureThreshold = 5
	}

	c := &Client{
		cfg:     cfg,
		base:    u,
		client:  httpClient,
		session: session,
	}
	logger.Info("atsapi: client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg config.ClientConfig, session Session) (*Client, error) {
	defaultClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient, session)
}

// package-level logger for pkg/atsapi; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/atsapi. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Close releases idle connections. It is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// half-open: let one request through
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	auth        bool
}

func jsonRequest(method, path string, v any, auth bool) (request, error) {
	r := request{method: method, path: path, auth: auth}
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return r, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r.body = b
		r.contentType = "application/json"
	}
	return r, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// send performs r and returns a response with a 2xx status. The returned
// release func must be called once the body has been consumed.
func (c *Client) send(ctx context.Context, r request) (*http.Response, func(), error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, nil, ErrClosed
	}
	if c.isCircuitOpen() {
		return nil, nil, ErrCircuitOpen
	}

	cancel := func() {}
	if r.auth && c.session != nil {
		var cancelReq context.CancelFunc
		ctx, cancelReq = context.WithCancel(ctx)
		stop := context.AfterFunc(c.session.Context(), cancelReq)
		cancel = func() {
			stop()
			cancelReq()
		}
	}

	attempts := 1
	if r.method == http.MethodGet {
		attempts += c.cfg.Retries
	}

	reqID := uuid.NewString()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				cancel()
				return nil, nil, ctx.Err()
			case <-time.After(c.cfg.Backoff * time.Duration(attempt)):
			}
			if c.isCircuitOpen() {
				cancel()
				return nil, nil, ErrCircuitOpen
			}
		}

		resp, err := c.do(ctx, r, reqID)
		if err != nil {
			if ctx.Err() != nil {
				cancel()
				return nil, nil, ctx.Err()
			}
			c.recordFailure()
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			c.recordFailure()
			apiErr := c.readError(resp, r, reqID)
			lastErr = apiErr
			if resp.StatusCode == http.StatusInternalServerError {
				// not transient
				cancel()
				return nil, nil, apiErr
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := c.readError(resp, r, reqID)
			cancel()
			return nil, nil, apiErr
		}

		atomic.StoreInt32(&c.failures, 0)
		release := func() {
			_ = resp.Body.Close()
			cancel()
		}
		return resp, release, nil
	}

	cancel()
	return nil, nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", r.method, r.path, attempts, lastErr)
}

func (c *Client) do(ctx context.Context, r request, reqID string) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.auth && c.session != nil {
		if tok := c.session.Token(); tok != "" {
			req.Header.Set("Authorization", "Token "+tok)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("atsapi: request failed", slog.String("method", r.method), slog.String("path", r.path), slog.String("request_id", reqID), slog.Any("err", err))
		return nil, err
	}
	logger.Debug("atsapi: request", slog.String("method", r.method), slog.String("path", r.path), slog.Int("status", resp.StatusCode), slog.Duration("latency", time.Since(start)), slog.String("request_id", reqID))
	return resp, nil
}

// readError consumes a non-2xx response and applies the global reactions:
// 401 tears the session down, 403 and 500 are logged.
func (c *Client) readError(resp *http.Response, r request, reqID string) *APIError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := parseError(resp.StatusCode, data)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if r.auth && c.session != nil {
			c.session.HandleUnauthorized()
		}
	case http.StatusForbidden:
		logger.Error("atsapi: access forbidden", slog.String("method", r.method), slog.String("path", r.path), slog.String("request_id", reqID))
	case http.StatusInternalServerError:
		logger.Error("atsapi: server error", slog.String("method", r.method), slog.String("path", r.path), slog.String("request_id", reqID), slog.String("error", apiErr.Message))
	}
	return apiErr
}

// call sends r and decodes a JSON body into out, when out is non-nil.
func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, release, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer release()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// getList fetches a collection endpoint that may answer either with a bare
// array or with a {"results": [...]} page.
func getList[T any](ctx context.Context, c *Client, path string, q url.Values, auth bool) ([]T, error) {
	resp, release, err := c.send(ctx, request{method: http.MethodGet, path: path, query: q, auth: auth})
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out, err := decodeList[T](data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	if data[0] == '[' {
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
