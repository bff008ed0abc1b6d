// Package httpclient is the shared resty client used for collaborator APIs
// and SDK script downloads.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned for 404 and 410 responses.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s: %s", e.Code, e.URL, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && (e.Code == http.StatusNotFound || e.Code == http.StatusGone)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Headers    map[string]string
	Logger     *slog.Logger
	Debug      bool
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		UserAgent:  "playcore/1.0",
	}
}

// Client wraps resty with retries on transport errors, 5xx and 429.
type Client struct {
	resty   *resty.Client
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

// New builds a Client. Zero config fields take the defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, application/javascript, */*")
	if cfg.BaseURL != "" {
		r.SetBaseURL(cfg.BaseURL)
	}
	if len(cfg.Headers) > 0 {
		r.SetHeaders(cfg.Headers)
	}
	r.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests
	})

	c := &Client{resty: r, timeout: cfg.Timeout, retries: cfg.MaxRetries, logger: cfg.Logger}
	if cfg.Debug {
		r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			c.logger.Debug("http response",
				"method", resp.Request.Method,
				"url", resp.Request.URL,
				"status", resp.StatusCode(),
				"elapsed", resp.Time(),
			)
			return nil
		})
	}
	return c
}

// Get fetches url and returns the body. Non-2xx responses yield a
// *StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return resp.Body(), nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.IsError() {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *resty.Response) error {
	body := resp.String()
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return &StatusError{Code: resp.StatusCode(), URL: resp.Request.URL, Body: body}
}

func (c *Client) Timeout() time.Duration { return c.timeout }
func (c *Client) MaxRetries() int        { return c.retries }

// Resty exposes the underlying client.
func (c *Client) Resty() *resty.Client { return c.resty }
