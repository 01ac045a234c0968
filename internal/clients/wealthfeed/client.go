// Package wealthfeed fetches the wealth-management JSON feed (custody snapshot
// and weekly inflow records) with retries, request coalescing and a persistent
// stale-data fallback.
package wealthfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/simplainvest/wealthboard/internal/clientdata"
	"github.com/simplainvest/wealthboard/internal/modules/series"
)

// Feed endpoints
const (
	EndpointCustody = "/dados/captacao"
	EndpointWeekly  = "/dados/semanal"
)

// maxBodyBytes bounds the size of a feed payload
const maxBodyBytes = 8 << 20

// HTTPError is returned for non-2xx feed responses
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// RetryConfig configures the retry behavior
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig provides sensible defaults for retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Result is a decoded feed payload. Stale is set when the feed could not be
// reached and the last cached copy was served instead.
type Result struct {
	Endpoint  string
	Records   []series.RawRecord
	Stale     bool
	FetchedAt time.Time
}

// Client for the wealth feed
type Client struct {
	baseURL   string
	client    *http.Client
	retry     RetryConfig
	cacheRepo *clientdata.Repository
	group     singleflight.Group
	log       zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	flights map[string]*flight
}

// flight is one shared request for an endpoint. Its context is cancelled once
// every caller waiting on it has returned.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithRetryConfig replaces the retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a feed client.
// cacheRepo is optional - if nil, the stale fallback is disabled
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		retry:     DefaultRetryConfig(),
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "wealthfeed").Logger(),
		flights:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the records served at endpoint. Concurrent calls for the same
// endpoint share one request. A caller that gives up detaches from the shared
// request, so calls issued after it start a fresh one; the abandoned request is
// cancelled when its last caller has gone. When every attempt fails the last
// cached copy is returned with Stale set.
func (c *Client) Fetch(ctx context.Context, endpoint string) (Result, error) {
	f := c.join(endpoint)
	ch := c.group.DoChan(f.key, func() (interface{}, error) {
		defer c.land(endpoint, f)
		return c.fetchOrFallback(f.ctx, endpoint)
	})

	select {
	case <-ctx.Done():
		c.leave(endpoint, f, true)
		return Result{}, ctx.Err()
	case res := <-ch:
		c.leave(endpoint, f, false)
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

// join returns the live flight for endpoint, starting a new one if needed
func (c *Client) join(endpoint string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[endpoint]
	if !ok {
		c.gen++
		ctx, cancel := context.WithCancel(context.Background())
		f = &flight{
			key:    fmt.Sprintf("%s#%d", endpoint, c.gen),
			ctx:    ctx,
			cancel: cancel,
		}
		c.flights[endpoint] = f
	}
	f.waiters++
	return f
}

// land stops new callers from joining a finished flight
func (c *Client) land(endpoint string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flights[endpoint] == f {
		delete(c.flights, endpoint)
	}
}

// leave drops one waiter. An abandoned flight no longer accepts new callers.
func (c *Client) leave(endpoint string, f *flight, abandoned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if abandoned && c.flights[endpoint] == f {
		delete(c.flights, endpoint)
		c.group.Forget(f.key)
	}
	if f.waiters == 0 {
		f.cancel()
	}
}

func (c *Client) fetchOrFallback(ctx context.Context, endpoint string) (Result, error) {
	records, err := c.fetchWithRetry(ctx, endpoint)
	if err == nil {
		c.storeCache(endpoint, records)
		c.log.Debug().
			Str("endpoint", endpoint).
			Int("records", len(records)).
			Msg("Fetched feed")
		return Result{Endpoint: endpoint, Records: records, FetchedAt: time.Now()}, nil
	}

	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("fetch of %s abandoned: %w", endpoint, ctx.Err())
	}

	if stale, ok := c.getStaleFromCache(endpoint); ok {
		c.log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("records", len(stale)).
			Msg("Feed failed, using stale cached records")
		return Result{Endpoint: endpoint, Records: stale, Stale: true, FetchedAt: time.Now()}, nil
	}

	return Result{}, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
}

func (c *Client) fetchWithRetry(ctx context.Context, endpoint string) ([]series.RawRecord, error) {
	var records []series.RawRecord

	operation := func() error {
		recs, err := c.fetchOnce(ctx, endpoint)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && !retryableStatus(httpErr.StatusCode) {
				return backoff.Permanent(err)
			}
			return err
		}
		records = recs
		return nil
	}

	if c.retry.MaxRetries <= 0 {
		if err := operation(); err != nil {
			return nil, err
		}
		return records, nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retry.InitialInterval
	expBackoff.MaxInterval = c.retry.MaxInterval
	expBackoff.MaxElapsedTime = c.retry.MaxElapsedTime

	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Str("endpoint", endpoint).Dur("retry_in", wait).Msg("Feed request failed, retrying")
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.retry.MaxRetries)), ctx),
		notify,
	)
	return records, err
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]series.RawRecord, error) {
	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(body))}
	}

	return decodeRecords(io.LimitReader(resp.Body, maxBodyBytes))
}

// decodeRecords accepts a top-level array of objects, or a single object which
// is treated as a one-record array. Numbers are kept as json.Number so that
// field accessors decide how to parse them.
func decodeRecords(r io.Reader) ([]series.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		trimmed = "[" + trimmed + "]"
	}

	inner := json.NewDecoder(strings.NewReader(trimmed))
	inner.UseNumber()

	var items []map[string]interface{}
	if err := inner.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	records := make([]series.RawRecord, len(items))
	for i, item := range items {
		records[i] = series.RawRecord(item)
	}
	return records, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

func (c *Client) storeCache(endpoint string, records []series.RawRecord) {
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.Store(clientdata.TableFeedResponses, endpoint, records, clientdata.TTLFeedResponse); err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache feed response")
	}
}

// getStaleFromCache retrieves cached records even if expired.
func (c *Client) getStaleFromCache(endpoint string) ([]series.RawRecord, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var records []series.RawRecord
	found, err := c.cacheRepo.Get(clientdata.TableFeedResponses, endpoint, &records)
	if err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to read cached feed response")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return records, true
}
