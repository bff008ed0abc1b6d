// Package resolver talks to the catalog API that signs hosted assets and
// dubbed audio tracks.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/httpclient"
	"github.com/justchokingaround/playcore/internal/playerr"
)

// expirySkew is subtracted from the server expiry so a cached URL is never
// handed out moments before it stops working.
const expirySkew = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Debug   bool
}

// Client resolves signed stream URLs. It implements source.AssetResolver and
// dub.TrackResolver.
type Client struct {
	baseURL string
	http    *httpclient.Client
	cache   *urlCache
	clk     clock.Clock
	logger  *slog.Logger
}

type Option func(*Client)

func WithClock(c clock.Clock) Option {
	return func(cl *Client) {
		if c != nil {
			cl.clk = c
		}
	}
}

func WithHTTPClient(h *httpclient.Client) Option {
	return func(cl *Client) {
		if h != nil {
			cl.http = h
		}
	}
}

// NewClient creates a new resolver client
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cache:   newURLCache(),
		clk:     clock.Real{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(httpclient.Config{
			Timeout:    cfg.Timeout,
			MaxRetries: 2,
			Debug:      cfg.Debug,
			Logger:     logger,
		})
	}
	return c
}

// ResolveHostedURL returns a signed URL for a movie's transcoded asset.
// Missing assets yield ErrAssetUnavailable.
func (c *Client) ResolveHostedURL(ctx context.Context, movieID string) (string, error) {
	u, err := c.resolve(ctx, "asset:"+movieID, "/api/movies/"+url.PathEscape(movieID)+"/stream")
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", playerr.ErrAssetUnavailable, err)
		}
		return "", err
	}
	return u, nil
}

// ResolveTrackStreamURL returns a streamable URL for a dubbed track.
func (c *Client) ResolveTrackStreamURL(ctx context.Context, trackID string) (string, error) {
	return c.resolve(ctx, "track:"+trackID, "/api/dubs/"+url.PathEscape(trackID)+"/stream")
}

// Invalidate drops a cached hosted asset URL, for example after the signed
// URL was rejected by the media server.
func (c *Client) Invalidate(movieID string) {
	c.cache.drop("asset:" + movieID)
}

func (c *Client) resolve(ctx context.Context, key, endpoint string) (string, error) {
	if u, ok := c.cache.get(key, c.clk.Now()); ok {
		return u, nil
	}

	var resp StreamResponse
	if err := c.http.GetJSON(ctx, c.baseURL+endpoint, &resp); err != nil {
		c.logger.Debug("stream resolution failed", "endpoint", endpoint, "error", err)
		return "", err
	}
	resp.URL = strings.TrimSpace(resp.URL)
	if resp.URL == "" {
		return "", fmt.Errorf("empty stream url from %s", endpoint)
	}

	if !resp.ExpiresAt.IsZero() {
		if exp := resp.ExpiresAt.Add(-expirySkew); exp.After(c.clk.Now()) {
			c.cache.set(key, resp.URL, exp)
		}
	}
	return resp.URL, nil
}
