package geocode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/canchaya/canchaya/pkg/model"
)

const (
	// DefaultBaseURL is the public Nominatim search endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

	// DefaultUserAgent identifies the application, as Nominatim's usage policy requires.
	DefaultUserAgent = "CanchaYA/1.0 (+https://canchaya.app)"

	// DefaultBatchDelay is the pause between network lookups in a batch.
	DefaultBatchDelay = time.Second

	maxResponseBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Stats counts what the client has done since it was created.
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Lookups     int64 `json:"lookups"`
	Failures    int64 `json:"failures"`
}

// Client geocodes addresses, consulting the cache before the network.
type Client struct {
	cache     *Cache
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *slog.Logger

	hits, misses, lookups, failures atomic.Int64
}

// NewClient creates a geocoding client.
func NewClient(cache *Cache, opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		cache:     cache,
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		client:    httpClient,
		logger:    logger,
	}
}

// Geocode resolves address. It returns nil when the address is blank, when
// the service has no match, or when the lookup failed. Only the first two
// are cached; failures are retried on the next call.
func (c *Client) Geocode(ctx context.Context, address string) *model.GeocodeResult {
	res, _, _ := c.resolve(ctx, address, nil)
	return res
}

// GeocodeBatch resolves addresses one at a time, pausing delay between
// successive network lookups. Cache hits do not wait. Results line up with
// the input. On cancellation the results resolved so far are returned along
// with ctx.Err().
func (c *Client) GeocodeBatch(ctx context.Context, addresses []string, delay time.Duration) ([]*model.GeocodeResult, error) {
	if delay < 0 {
		delay = 0
	}
	results := make([]*model.GeocodeResult, len(addresses))
	fetchedBefore := false

	wait := func() error {
		if !fetchedBefore || delay == 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	for i, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return results[:i], err
		}
		res, fetched, err := c.resolve(ctx, addr, wait)
		if err != nil {
			return results[:i], err
		}
		if fetched {
			fetchedBefore = true
		}
		results[i] = res
	}
	return results, nil
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		CacheHits:   c.hits.Load(),
		CacheMisses: c.misses.Load(),
		Lookups:     c.lookups.Load(),
		Failures:    c.failures.Load(),
	}
}

// resolve runs the cache-then-network lookup. beforeFetch, when set, runs
// right before a network call and may abort it.
func (c *Client) resolve(ctx context.Context, address string, beforeFetch func() error) (res *model.GeocodeResult, fetched bool, err error) {
	if strings.TrimSpace(address) == "" {
		return nil, false, nil
	}

	if cached, ok := c.cache.Get(ctx, address); ok {
		c.hits.Add(1)
		return cached, false, nil
	}
	c.misses.Add(1)

	if beforeFetch != nil {
		if err := beforeFetch(); err != nil {
			return nil, false, err
		}
	}

	res, found, err := c.lookup(ctx, address)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("geocode lookup failed", "address", address, "error", err)
		return nil, true, nil
	}

	if !found {
		res = nil
	}
	if err := c.cache.Set(ctx, address, res); err != nil {
		c.logger.Warn("cache geocode result", "address", address, "error", err)
	}
	return res, true, nil
}

// lookup performs one HTTP search. found is false when the service answered
// with an empty result set.
func (c *Client) lookup(ctx context.Context, address string) (*model.GeocodeResult, bool, error) {
	c.lookups.Add(1)

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("send geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, false, fmt.Errorf("read geocode response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("geocoder returned invalid JSON")
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, false, fmt.Errorf("geocoder returned %s, want array", doc.Type)
	}
	if doc.Get("#").Int() == 0 {
		return nil, false, nil
	}

	first := doc.Get("0")
	lat, err := strconv.ParseFloat(first.Get("lat").String(), 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(first.Get("lon").String(), 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse longitude: %w", err)
	}

	return &model.GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: first.Get("display_name").String(),
	}, true, nil
}
