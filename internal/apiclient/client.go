package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// Credentials is the slice of the credential store the client needs:
// the current bearer token and the ability to drop it on a 401.
type Credentials interface {
	Token() string
	Clear() error
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
	// RateLimit caps outgoing requests per second. Zero disables it.
	RateLimit float64
	Burst     int
}

// Client is the single egress point to the backend. It injects the
// bearer token, classifies every failure and tears the session down on
// 401.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     Credentials
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu           sync.RWMutex
	unauthorized []func()
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. The timeout
// of the supplied client is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for cfg.BaseURL. creds may be nil for clients
// that only call public endpoints.
func New(cfg Config, creds Credentials, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: timeout,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		creds:     creds,
		userAgent: cfg.UserAgent,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized registers fn to run after the credential store has been
// cleared because the backend answered 401. Hooks run synchronously,
// once per failing call, before the call returns.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, fn)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs one request. A nil out discards the response body. Any
// returned error is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	requestID := uuid.NewString()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(method, outcome(err)).Inc()
		if err != nil {
			c.logger.Debug("api request failed",
				"method", method, "path", path, "request_id", requestID,
				"kind", KindOf(err).String(), "duration", time.Since(start))
			return
		}
		c.logger.Debug("api request", "method", method, "path", path,
			"request_id", requestID, "duration", time.Since(start))
	}()

	fail := func(kind Kind, status int, cause error) *Error {
		return &Error{Kind: kind, Status: status, Method: method, Path: path, Err: cause}
	}

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fail(classifyTransport(werr), 0, werr)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return fail(KindUnknown, 0, fmt.Errorf("failed to encode request: %w", merr))
		}
		reader = bytes.NewReader(payload)
	}

	req, rerr := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if rerr != nil {
		return fail(KindUnknown, 0, fmt.Errorf("failed to create request: %w", rerr))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", requestID)
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, derr := c.http.Do(req)
	if derr != nil {
		return fail(classifyTransport(derr), 0, derr)
	}
	defer resp.Body.Close()

	data, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if rerr != nil {
		return fail(classifyTransport(rerr), resp.StatusCode, fmt.Errorf("failed to read response: %w", rerr))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := fail(classifyStatus(resp.StatusCode), resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		apiErr.Message, apiErr.Fields = decodeProblem(data)
		if apiErr.Kind == KindUnauthorized {
			c.teardown()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if uerr := json.Unmarshal(data, out); uerr != nil {
		return fail(KindUnknown, resp.StatusCode, fmt.Errorf("failed to decode response: %w", uerr))
	}
	return nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) teardown() {
	forcedLogouts.Inc()
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.logger.Error("failed to clear credentials after 401", "error", err)
		}
	}
	c.mu.RLock()
	hooks := make([]func(), len(c.unauthorized))
	copy(hooks, c.unauthorized)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// decodeProblem extracts {"message": ..., "errors": ...} from an error
// body. Field errors may come as lists or single strings per field.
func decodeProblem(data []byte) (string, map[string][]string) {
	var problem struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if len(data) == 0 || json.Unmarshal(data, &problem) != nil {
		return "", nil
	}
	message := problem.Message
	if message == "" {
		message = problem.Error
	}
	if len(problem.Errors) == 0 {
		return message, nil
	}
	var lists map[string][]string
	if json.Unmarshal(problem.Errors, &lists) == nil && len(lists) > 0 {
		return message, lists
	}
	var singles map[string]string
	if json.Unmarshal(problem.Errors, &singles) == nil && len(singles) > 0 {
		fields := make(map[string][]string, len(singles))
		for k, v := range singles {
			fields[k] = []string{v}
		}
		return message, fields
	}
	return message, nil
}
