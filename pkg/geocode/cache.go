// Package geocode resolves street addresses to coordinates through an
// address-search HTTP service, with a persistent time-expiring cache.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/storage"
)

const (
	cacheVersion = 1

	// DefaultTTL is how long a cached lookup stays valid.
	DefaultTTL = 30 * 24 * time.Hour
)

type cacheDoc struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Result    *model.GeocodeResult `json:"result"`
	Timestamp time.Time            `json:"timestamp"`
}

// Cache stores lookup results, including "not found", keyed by the raw address.
// The whole cache lives in one KV document and every write is a
// read-modify-write of that document. The mutex serializes writers in this
// process only.
type Cache struct {
	kv     storage.KV
	key    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source used for timestamps and expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache stored under storage.KeyGeocodeCache.
func NewCache(kv storage.KV, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		kv:     kv,
		key:    storage.KeyGeocodeCache,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for address. ok is false on a miss. A cached
// "not found" is a hit with a nil result. Expired entries are deleted before
// reporting a miss.
func (c *Cache) Get(ctx context.Context, address string) (result *model.GeocodeResult, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load(ctx)
	if err != nil {
		c.logger.Warn("read geocode cache", "address", address, "error", err)
		return nil, false
	}
	entry, found := doc.Entries[address]
	if !found {
		return nil, false
	}

	if c.now().Sub(entry.Timestamp) > c.ttl {
		delete(doc.Entries, address)
		if err := c.save(ctx, doc); err != nil {
			c.logger.Warn("evict expired geocode entry", "address", address, "error", err)
		}
		return nil, false
	}
	return entry.Result, true
}

// Set records result (nil for "not found") for address.
func (c *Cache) Set(ctx context.Context, address string, result *model.GeocodeResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load(ctx)
	if err != nil {
		return err
	}
	doc.Entries[address] = cacheEntry{Result: result, Timestamp: c.now().UTC()}
	return c.save(ctx, doc)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.load(ctx)
	if err != nil {
		return 0
	}
	return len(doc.Entries)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Delete(ctx, c.key)
}

// load reads the document. Missing, corrupt or foreign-version documents read
// as empty. A storage read failure is returned so callers never write back a
// document they could not read.
func (c *Cache) load(ctx context.Context) (*cacheDoc, error) {
	empty := &cacheDoc{Version: cacheVersion, Entries: map[string]cacheEntry{}}

	raw, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, storage.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}

	var doc cacheDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("decode geocode cache, starting empty", "error", err)
		return empty, nil
	}
	if doc.Version != cacheVersion {
		c.logger.Info("geocode cache version changed, starting empty", "found", doc.Version, "want", cacheVersion)
		return empty, nil
	}
	if doc.Entries == nil {
		doc.Entries = map[string]cacheEntry{}
	}
	return &doc, nil
}

func (c *Cache) save(ctx context.Context, doc *cacheDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode geocode cache: %w", err)
	}
	if err := c.kv.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}
	return nil
}
