package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tripreel/pkg/logging"
	"tripreel/pkg/tracker"
	"tripreel/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("tripreel/%s (itinerary viewer)", version.Version)

var (
	// ErrRateLimited is returned when the upstream kept answering 429 after all retries.
	ErrRateLimited = errors.New("upstream rate limit")
	// ErrClosed is returned for requests issued after Close.
	ErrClosed = errors.New("request client closed")
)

// StatusError is a non-retryable HTTP error response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Code)
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Rate is the sustained requests per second per provider. 0 disables pacing.
	Rate      float64
	UserAgent string
}

// DefaultOptions mirrors the request section of the default config.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		Retries:   3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Rate:      10,
	}
}

// Client performs outbound HTTP requests through a serial queue per provider.
// Each provider gets its own worker, rate limiter and backoff state.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	opts       Options

	mu       sync.Mutex
	queues map[string]chan job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	req      *http.Request
	headers  map[string]string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client. t may be nil.
func New(t *tracker.Tracker, opts Options) *Client {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		tracker:    t,
		backoff:    NewProviderBackoff(opts.BaseDelay, opts.MaxDelay),
		opts:       opts,
		queues:     make(map[string]chan job),
	}
}

// Get performs a queued GET request and returns the response body.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil)
}

// GetWithHeaders performs a queued GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	if err := c.dispatch(provider, job{req: req, headers: headers, respChan: respChan}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// Head reports whether a HEAD request to u returns a 2xx status. It bypasses the queue.
func (c *Client) Head(ctx context.Context, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Close stops all provider workers. Queued requests still complete.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, q := range c.queues {
		close(q)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func normalizeProvider(host string) string {
	h := strings.ToLower(host)
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	if h == "maps.googleapis.com" || strings.HasSuffix(h, ".maps.googleapis.com") {
		return "maps"
	}
	return h
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		var lim *rate.Limiter
		if c.opts.Rate > 0 {
			lim = rate.NewLimiter(rate.Limit(c.opts.Rate), 1)
		}
		c.wg.Add(1)
		go c.worker(provider, q, lim)
	}
	c.mu.Unlock()

	// Blocks when the queue is full, throttling the caller.
	select {
	case q <- j:
		return nil
	case <-j.req.Context().Done():
		return j.req.Context().Err()
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job, lim *rate.Limiter) {
	defer c.wg.Done()
	for j := range q {
		ctx := j.req.Context()
		if ctx.Err() != nil {
			slog.Debug("Job dropped from queue (context expired)", "provider", provider, "error", ctx.Err())
			j.respChan <- jobResult{err: ctx.Err()}
			continue
		}

		if err := c.backoff.Wait(ctx, provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				j.respChan <- jobResult{err: err}
				continue
			}
		}

		j.req.Header.Set("User-Agent", c.opts.UserAgent)
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
		}

		body, err := c.executeWithBackoff(j.req)
		switch {
		case err == nil:
			c.backoff.RecordSuccess(provider)
			if c.tracker != nil {
				c.tracker.TrackAPISuccess(provider)
			}
		case errors.Is(err, ErrRateLimited):
			c.backoff.RecordFailure(provider)
			if c.tracker != nil {
				c.tracker.TrackAPIQuota(provider)
			}
		default:
			if c.tracker != nil {
				c.tracker.TrackAPIFailure(provider)
			}
		}

		j.respChan <- jobResult{body: body, err: err}
	}
}

// executeWithBackoff attempts the request with exponential backoff on 429, 5xx and transport errors.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 0; attempt < c.opts.Retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		logging.RequestLogger.Info("request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Request failed, retrying", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		logging.RequestLogger.Info("response", "host", req.URL.Host, "status", resp.StatusCode, "elapsed", time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "host", req.URL.Host, "attempt", attempt+1)
			lastErr = ErrRateLimited
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "host", req.URL.Host, "attempt", attempt+1)
			lastErr = &StatusError{Code: resp.StatusCode, URL: req.URL.Host + req.URL.Path}
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Host + req.URL.Path}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	if errors.Is(lastErr, ErrRateLimited) {
		return nil, ErrRateLimited
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) retryDelay(n int) time.Duration {
	d := c.opts.BaseDelay << n
	if d <= 0 || d > c.opts.MaxDelay {
		d = c.opts.MaxDelay
	}
	return d
}
