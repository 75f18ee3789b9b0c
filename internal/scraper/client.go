// Package scraper fetches the panel's activity feed and isolates candidate action lines.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/panel-ledger/internal/common"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBodyBytes     = 8 << 20
)

// Options configures a Client. Zero values fall back to the defaults below.
type Options struct {
	Metrics      *metrics.Recorder
	HTTPClient   *http.Client
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	RetryDelay   time.Duration
	RateLimit    float64
	Burst        int
	MaxAttempts  int
	DefaultLimit int
}

// Client fetches panel pages through a token-bucket limiter with retries.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	metrics      *metrics.Recorder
	baseURL      *url.URL
	userAgent    string
	retry        common.RetryOptions
	defaultLimit int
}

// NewClient validates opts and creates a client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: scraper base url", common.ErrMissingConfig)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", common.ErrInvalidConfig, opts.BaseURL)
	}

	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 200
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		metrics:    opts.Metrics,
		baseURL:    base,
		userAgent:  opts.UserAgent,
		retry: common.RetryOptions{
			MaxAttempts:  opts.MaxAttempts,
			InitialDelay: opts.RetryDelay,
			MaxDelay:     15 * opts.RetryDelay,
			Multiplier:   2,
		},
		defaultLimit: opts.DefaultLimit,
	}, nil
}

// FetchPage returns the body of path relative to the base url.
// 404 is returned as common.ErrNotFound without retrying.
func (c *Client) FetchPage(ctx context.Context, path string) ([]byte, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: path})

	var body []byte
	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return common.Permanent(err)
		}

		var fetchErr error
		body, fetchErr = c.fetchOnce(ctx, target.String())
		return fetchErr
	}, c.retry)
	if err != nil {
		c.metrics.ScrapeError()
		return nil, err
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ro-RO,ro;q=0.9,en;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", common.ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("fetched page", "url", target, "status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %w", common.ErrFetchFailed, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, common.Permanent(fmt.Errorf("%s: %w", target, common.ErrNotFound))
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp.Header.Get("Retry-After"))
		slog.Warn("panel rate limited the scraper", "url", target, "retry_after", wait)
		err := fmt.Errorf("%w: %s", common.ErrRateLimit, target)
		if wait > 0 {
			return nil, common.RetryAfter(err, wait)
		}
		return nil, err
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s returned %d", common.ErrFetchFailed, target, resp.StatusCode)
	default:
		return nil, common.Permanent(fmt.Errorf("%w: %s returned %d", common.ErrFetchFailed, target, resp.StatusCode))
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// LatestActions fetches the home page and returns up to limit feed lines.
// A non-positive limit uses the configured default.
func (c *Client) LatestActions(ctx context.Context, limit int) ([]model.FeedLine, error) {
	if limit <= 0 {
		limit = c.defaultLimit
	}

	body, err := c.FetchPage(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity feed: %w", err)
	}

	lines, err := ParseFeed(body, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		slog.Warn("no actions found on home page",
			"marker_mentions", strings.Count(strings.ToLower(string(body)), "jucatorul"))
	}
	return lines, nil
}

