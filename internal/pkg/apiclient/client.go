package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMultiplier   = 2.0
	DefaultMaxDelay     = 10 * time.Second
	DefaultTimeout      = 15 * time.Second
)

// ErrMissingToken indicates the adapter was constructed without credentials.
// It is a configuration error and is never retried.
var ErrMissingToken = errors.New("api token is not configured")

// Config holds retry and auth settings for an upstream API client.
type Config struct {
	BearerToken  string
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Timeout      time.Duration
}

// Client wraps net/http with bearer auth and bounded exponential backoff on
// 429/5xx/transport errors. 4xx responses are terminal and surface
// immediately. All three source adapters share this wrapper.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// sleep is swapped out in tests to avoid real delays.
	sleep func(time.Duration)
}

// New creates a client, filling unset config fields with defaults.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      time.Sleep,
	}
}

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the response is a transient failure.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Get performs a GET with query parameters.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		if query != nil {
			q := u.Query()
			for k, vs := range query {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// PostForm performs a form-encoded POST.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// PostJSON performs a JSON POST.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	if strings.TrimSpace(c.cfg.BearerToken) == "" {
		return nil, ErrMissingToken
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt-1, lastErr)
			log.Warnf("[apiclient] transient upstream failure, retry %d/%d in %v: %v",
				attempt, c.cfg.MaxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			c.sleep(delay)
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport-level failure, retryable.
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		if !apiErr.Retryable() {
			return nil, apiErr
		}
		lastErr = apiErr
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// retryDelay computes the sleep before the next attempt. A 429 Retry-After
// hint wins over computed backoff.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		if apiErr.RetryAfter > c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
		return apiErr.RetryAfter
	}
	return jitter(c.backoffDelay(attempt))
}

// backoffDelay is the exponential delay before jitter: grows monotonically
// with the attempt index and never exceeds MaxDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(c.cfg.InitialDelay) * math.Pow(c.cfg.Multiplier, float64(attempt)))
	if d > c.cfg.MaxDelay || d <= 0 {
		return c.cfg.MaxDelay
	}
	return d
}

// jitter spreads the delay by ±20% to avoid retry storms.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// MaskToken returns a loggable form of a credential. Full tokens must never
// appear in logs or error messages.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
