package gdsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrCacheKeyNotFound  = errors.New("key not found")
	ErrCacheEntryExpired = errors.New("entry expired")
)

// CacheEntry is one stored response.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	Header     http.Header `json:"header,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at"`
	ETag       string      `json:"etag,omitempty"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Cache is a pluggable response store. Implementations must be safe for
// concurrent use if the client is shared between goroutines.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// MemoryCache is a size-bounded in-process cache. When full, the entry
// stored earliest is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	order   []string
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a live entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	if entry.Expired(c.now()) {
		c.removeLocked(key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry, evicting the oldest when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = entry
	c.order = append(c.order, key)

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.order = nil

	return nil
}

// Has reports whether a live entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]

	return ok && !entry.Expired(c.now())
}

// Keys returns the keys currently stored, expired or not.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.order...)
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for key, entry := range c.entries {
		if entry.Expired(now) {
			c.removeLocked(key)
		}
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (c *MemoryCache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

func (c *MemoryCache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}

	delete(c.entries, key)

	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}
}

// CacheStats counts cache traffic.
type CacheStats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Invalidations int64
}

// GetHitRate returns hits / (hits + misses).
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheOptions holds defaults applied by CacheManager.
type CacheOptions struct {
	// DefaultTTL is used when a response has no freshness information
	// but the policy still stores it.
	DefaultTTL time.Duration
	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		DefaultTTL: 0,
		KeyPrefix:  "",
	}
}

// CacheManager adds key building, statistics and prefix invalidation on
// top of a Cache.
type CacheManager struct {
	cache   Cache
	options *CacheOptions

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewCacheManager creates a manager. A nil cache disables storage.
func NewCacheManager(cache Cache, options *CacheOptions) *CacheManager {
	if cache == nil {
		cache = NewNoOpCache()
	}

	if options == nil {
		options = DefaultCacheOptions()
	}

	return &CacheManager{
		cache:   cache,
		options: options,
		keys:    make(map[string]struct{}),
	}
}

// Cache returns the backing cache.
func (m *CacheManager) Cache() Cache {
	return m.cache
}

// GetCacheKey builds "METHOD:url[:k=v&...]" with params sorted.
func (m *CacheManager) GetCacheKey(method, rawURL string, params map[string]string) string {
	key := m.options.KeyPrefix + strings.ToUpper(method) + ":" + rawURL
	if len(params) == 0 {
		return key
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}

	return key + ":" + strings.Join(pairs, "&")
}

// Get returns cached bytes.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.GetEntry(ctx, key)
	if err != nil {
		return nil, err
	}

	return entry.Data, nil
}

// GetEntry returns the full cached entry.
func (m *CacheManager) GetEntry(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		m.misses.Add(1)

		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	m.hits.Add(1)

	return entry, nil
}

// Set stores bytes for ttl.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.SetEntry(ctx, key, &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
		StoredAt:  time.Now(),
	})
}

// SetWithETag stores bytes with an ETag for conditional requests.
func (m *CacheManager) SetWithETag(ctx context.Context, key string, data []byte, etag string, ttl time.Duration) error {
	return m.SetEntry(ctx, key, &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
		ETag:      etag,
		StoredAt:  time.Now(),
	})
}

// SetEntry stores a prepared entry.
func (m *CacheManager) SetEntry(ctx context.Context, key string, entry *CacheEntry) error {
	err := m.cache.Set(ctx, key, entry)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	m.sets.Add(1)

	m.mu.Lock()
	m.keys[key] = struct{}{}
	m.mu.Unlock()

	return nil
}

// InvalidateURL removes the entry stored under key and every entry for a
// sub-path or query of the same URL. A sibling such as /content/abcdef is
// kept when key names /content/abc.
func (m *CacheManager) InvalidateURL(ctx context.Context, key string) error {
	return m.invalidate(ctx, func(candidate string) bool {
		if !strings.HasPrefix(candidate, key) {
			return false
		}

		rest := candidate[len(key):]

		return rest == "" || strings.ContainsRune("?/:", rune(rest[0])) || strings.HasSuffix(key, "/")
	})
}

// Invalidate removes every key managed by m that starts with prefix.
func (m *CacheManager) Invalidate(ctx context.Context, prefix string) error {
	return m.invalidate(ctx, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (m *CacheManager) invalidate(ctx context.Context, match func(key string) bool) error {
	m.mu.Lock()

	var matched []string

	for key := range m.keys {
		if match(key) {
			matched = append(matched, key)
			delete(m.keys, key)
		}
	}

	m.mu.Unlock()

	var errs []error

	for _, key := range matched {
		err := m.cache.Delete(ctx, key)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		m.invalidations.Add(1)
	}

	return errors.Join(errs...)
}

// GetStats returns a snapshot of the counters.
func (m *CacheManager) GetStats() *CacheStats {
	return &CacheStats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
	}
}

// CachingPolicy decides which responses may be stored.
type CachingPolicy struct {
	CacheGET     bool
	CachePOST    bool
	CacheErrors  bool
	IncludePaths []string
	ExcludePaths []string
	// HonorCacheControl skips responses marked no-store, no-cache or
	// private, and responses without a freshness window.
	HonorCacheControl bool
}

// DefaultCachingPolicy caches successful GETs that carry a freshness
// window.
func DefaultCachingPolicy() *CachingPolicy {
	return &CachingPolicy{
		CacheGET:          true,
		HonorCacheControl: true,
	}
}

// ShouldCache reports whether method/path/status is storable.
func (p *CachingPolicy) ShouldCache(method, path string, statusCode int) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		if !p.CacheGET {
			return false
		}
	case http.MethodPost:
		if !p.CachePOST {
			return false
		}
	default:
		return false
	}

	if statusCode >= http.StatusBadRequest && !p.CacheErrors {
		return false
	}

	if len(p.IncludePaths) > 0 && !matchesAnyPrefix(path, p.IncludePaths) {
		return false
	}

	return !matchesAnyPrefix(path, p.ExcludePaths)
}

// ShouldStore combines ShouldCache with the response's Cache-Control.
func (p *CachingPolicy) ShouldStore(method, path string, resp *Response) bool {
	if !p.ShouldCache(method, path, resp.Code()) {
		return false
	}

	if !p.HonorCacheControl {
		return true
	}

	cc := resp.CacheControl()
	if cc.NoStore() || cc.NoCache() || cc.Private() {
		return false
	}

	_, fresh := resp.ExpiresAt()

	return fresh
}

func matchesAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
