package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"phoenix/app/config"
	"phoenix/app/service/cache"
	"phoenix/app/service/session"

	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAuthentication is returned after a refresh-and-retry cycle failed
	// and the session has been torn down.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound maps HTTP 404; domain handlers turn it into guidance text.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when 429 retries are exhausted.
	ErrRateLimited = errors.New("rate limited")
)

const defaultRetryAfter = 5 * time.Second

// Policy is an explicit retry policy for transient failures.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

func DefaultPolicy(base time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return base * time.Duration(1<<attempt)
		},
	}
}

// Client wraps the Phoenix REST API: bearer auth, bounded retries with
// backoff, coalesced token refresh and optional TTL caching of GET responses.
type Client struct {
	baseURL  string
	http     *http.Client
	session  *session.Service
	cache    *cache.Service
	policy   Policy
	cacheTTL time.Duration

	refreshGroup singleflight.Group
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL: cfg.Backend.BaseURL,
		http: &http.Client{
			Timeout: cfg.Backend.RequestTimeout,
		},
		session:  do.MustInvoke[*session.Service](di),
		cache:    do.MustInvoke[*cache.Service](di),
		policy:   DefaultPolicy(cfg.Backend.RetryBaseDelay, cfg.Backend.MaxAttempts),
		cacheTTL: cfg.Backend.CacheTTL,
	}, nil
}

// NewClientWithDeps builds the client outside the injector, used by tests.
func NewClientWithDeps(cfg *config.Config, sess *session.Service, cacheSvc *cache.Service) *Client {
	return &Client{
		baseURL: cfg.Backend.BaseURL,
		http: &http.Client{
			Timeout: cfg.Backend.RequestTimeout,
		},
		session:  sess,
		cache:    cacheSvc,
		policy:   DefaultPolicy(cfg.Backend.RetryBaseDelay, cfg.Backend.MaxAttempts),
		cacheTTL: cfg.Backend.CacheTTL,
	}
}

type requestOptions struct {
	skipAuth bool
	useCache bool
	cacheTTL time.Duration
}

type Option func(*requestOptions)

// WithoutAuth skips the Authorization header, used by login/register/TTS.
func WithoutAuth() Option {
	return func(o *requestOptions) { o.skipAuth = true }
}

// WithCache stores a successful GET response for ttl; ttl <= 0 uses the
// configured default.
func WithCache(ttl time.Duration) Option {
	return func(o *requestOptions) {
		o.useCache = true
		o.cacheTTL = ttl
	}
}

// Request performs an HTTP call against the backend and returns the raw JSON
// body. Recovery happens entirely inside this method: callers receive either
// a body or a final, classified error.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...Option) (json.RawMessage, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.useCache && o.cacheTTL <= 0 {
		o.cacheTTL = c.cacheTTL
	}

	cacheKey := method + " " + path
	if method == http.MethodGet && o.cacheTTL > 0 {
		if cached, ok := c.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, oops.With("method", method, "path", path).Errorf("failed to encode request body: %w", err)
		}
	}

	raw, err := c.do(ctx, method, path, payload, o)
	if err != nil {
		// Bodies may carry credentials, log method and path only.
		slog.Warn("Request failed", "method", method, "path", path, "error", err)
		return nil, err
	}

	if method == http.MethodGet && o.cacheTTL > 0 {
		c.cache.Set(cacheKey, raw, o.cacheTTL)
	}

	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, o requestOptions) (json.RawMessage, error) {
	errCtx := oops.With("method", method, "path", path)

	refreshed := false
	var lastErr error

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		res, err := c.send(ctx, method, path, payload, o.skipAuth)
		if err != nil {
			// Transport failure, treat as transient.
			lastErr = err
			if waitErr := sleepCtx(ctx, c.policy.Backoff(attempt)); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		raw, rerr := io.ReadAll(res.Body)
		res.Body.Close()

		switch {
		case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusLengthRequired:
			if o.skipAuth {
				return nil, errCtx.Wrap(ErrAuthentication)
			}
			if !refreshed {
				refreshed = true
				if err := c.refreshToken(ctx); err == nil {
					attempt-- // the replay does not consume the retry budget
					continue
				}
			}
			if err := c.session.Clear(); err != nil {
				slog.Error("Failed to clear session", "error", err)
			}
			return nil, errCtx.Wrap(ErrAuthentication)

		case res.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			if waitErr := sleepCtx(ctx, retryAfter(res)); waitErr != nil {
				return nil, waitErr
			}
			continue

		case res.StatusCode >= http.StatusInternalServerError:
			lastErr = errCtx.With("status", res.StatusCode).Errorf("server error: %s", res.Status)
			if waitErr := sleepCtx(ctx, c.policy.Backoff(attempt)); waitErr != nil {
				return nil, waitErr
			}
			continue

		case res.StatusCode == http.StatusNotFound:
			return nil, errCtx.Wrap(ErrNotFound)

		case res.StatusCode >= 400:
			return nil, errCtx.With("status", res.StatusCode).Errorf("request rejected: %s", res.Status)

		default:
			if rerr != nil {
				return nil, errCtx.Errorf("failed to read response body: %w", rerr)
			}
			return raw, nil
		}
	}

	return nil, errCtx.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, skipAuth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if !skipAuth {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.http.Do(req)
}

// refreshToken refreshes the bearer token at most once across concurrent
// failing requests; waiters share the single refresh result.
func (c *Client) refreshToken(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		raw, err := c.requestRefresh(ctx)
		if err != nil {
			return nil, err
		}

		var parsed struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Token == "" {
			return nil, oops.Errorf("refresh response missing token")
		}

		if err := c.session.SetCredentials(parsed.Token, c.session.UserID()); err != nil {
			return nil, err
		}

		slog.Info("Refreshed auth token")
		return nil, nil
	})

	return err
}

func (c *Client) requestRefresh(ctx context.Context) (json.RawMessage, error) {
	res, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, false)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, oops.With("status", res.StatusCode).Errorf("refresh rejected")
	}

	return io.ReadAll(res.Body)
}

func retryAfter(res *http.Response) time.Duration {
	header := res.Header.Get("Retry-After")
	if header == "" {
		return defaultRetryAfter
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}

	return time.Duration(seconds) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
