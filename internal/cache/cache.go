package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults applied to zero Config values.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultMaxEntries    = 4096
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Config controls expiry and capacity.
type Config struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	// MaxEntries bounds memory between sweeps; least recently used entries
	// are dropped first when it is reached.
	MaxEntries int
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Size   int      `json:"size"`
	Keys   []string `json:"keys"`
	Hits   uint64   `json:"hits"`
	Misses uint64   `json:"misses"`
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// ResultCache is safe for concurrent use.
type ResultCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, entry]
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
	hits   uint64
	misses uint64
	// generation counts invalidations (Delete, DeletePrefix, Clear).
	generation uint64
}

// Option customizes a ResultCache.
type Option func(*ResultCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// WithLogger sets the cache's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ResultCache) { c.logger = logger }
}

// New creates a ResultCache. Zero Config fields take the package defaults.
func New(cfg Config, opts ...Option) (*ResultCache, error) {
	if cfg.DefaultTTL < 0 || cfg.SweepInterval < 0 || cfg.MaxEntries < 0 {
		return nil, fmt.Errorf("%w: durations and sizes must not be negative", ErrInvalidConfig)
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	backing, err := lru.New[string, entry](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := &ResultCache{
		lru:    backing,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "result_cache")
	return c, nil
}

// Set stores value under key with the default TTL, replacing any previous entry.
func (c *ResultCache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.cfg.DefaultTTL)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl uses the default.
func (c *ResultCache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: value, storedAt: c.now(), ttl: ttl})
}

// Generation returns a counter that changes whenever entries are
// invalidated. Pair it with SetIfGeneration to avoid caching a value that
// was computed before an invalidation.
func (c *ResultCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SetIfGeneration stores value like SetWithTTL, but only if no invalidation
// happened since Generation returned gen. It reports whether it stored.
func (c *ResultCache) SetIfGeneration(key string, value any, ttl time.Duration, gen uint64) bool {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.lru.Add(key, entry{value: value, storedAt: c.now(), ttl: ttl})
	return true
}

// Get returns the value for key. Expired entries are evicted and reported absent.
func (c *ResultCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Has reports whether key holds an unexpired entry.
func (c *ResultCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// lookup must be called with c.mu held.
func (c *ResultCache) lookup(key string) (entry, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return entry{}, false
	}
	if e.expired(c.now()) {
		c.lru.Remove(key)
		return entry{}, false
	}
	return e, true
}

// Delete removes key.
func (c *ResultCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Remove(key)
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (c *ResultCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Clear removes every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Purge()
}

// Stats reports the current size, sorted keys and hit/miss counters.
// Expired entries not yet swept are included.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.lru.Keys()
	sort.Strings(keys)
	return Stats{
		Size:   len(keys),
		Keys:   keys,
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.expired(now) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every SweepInterval until ctx is done.
func (c *ResultCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug("swept expired cache entries", "removed", removed)
			}
		}
	}
}
