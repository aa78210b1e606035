package antrian

import (
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheEntry is one stored response.
type CacheEntry struct {
	Identity  Identity
	Response  *Response
	ExpiresAt time.Time
}

// ResponseCache holds successful GET/HEAD responses keyed by Identity. Entries
// expire lazily on lookup and, at capacity, the oldest-inserted entry is
// evicted. Lookups never refresh an entry's position.
type ResponseCache struct {
	mu           sync.Mutex
	entries      *lru.Cache[Identity, *CacheEntry]
	ttls         *prefixTable
	defaultTTL   time.Duration
	authPrefixes []string
	now          func() time.Time
	metrics      *MetricsCollector
	// generation is bumped by Clear; stores begun before a Clear are dropped.
	generation uint64
}

// NewResponseCache creates a cache sized and timed by cfg.
func NewResponseCache(cfg Config) *ResponseCache {
	size := cfg.MaxCacheEntries
	if size <= 0 {
		size = DefaultMaxCacheEntries
	}
	entries, err := lru.New[Identity, *CacheEntry](size)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &ResponseCache{
		entries:      entries,
		ttls:         newPrefixTable(cfg.TTLTable),
		defaultTTL:   cfg.DefaultTTL,
		authPrefixes: append([]string(nil), cfg.AuthPrefixes...),
		now:          time.Now,
	}
}

// Cacheable reports whether req may be answered from or stored into the cache.
func (c *ResponseCache) Cacheable(req *Request) bool {
	if req == nil || req.NoCache {
		return false
	}
	switch normalizeMethod(req.Method) {
	case http.MethodGet, http.MethodHead:
	default:
		return false
	}
	return !hasAnyPrefix(urlPath(req.URL), c.authPrefixes)
}

// TTL resolves the time-to-live for req: longest matching TTL prefix, else
// the default.
func (c *ResponseCache) TTL(req *Request) time.Duration {
	if e, ok := c.ttls.longest(urlPath(req.URL)); ok {
		return e.Duration
	}
	return c.defaultTTL
}

// Lookup returns a copy of the cached response for req. An entry at or past
// its expiry is deleted and reported as a miss.
func (c *ResponseCache) Lookup(req *Request) (*Response, bool) {
	if !c.Cacheable(req) {
		return nil, false
	}
	id := req.Identity()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(id)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.entries.Remove(id)
		c.metrics.RecordCacheSize(c.entries.Len())
		return nil, false
	}

	resp := entry.Response.clone()
	resp.FromCache = true
	return resp, true
}

// Generation returns a token that changes every time the cache is cleared.
func (c *ResponseCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Store saves resp for req if both are eligible. When the cache is full the
// oldest-inserted entry is evicted first. It reports whether resp was stored.
func (c *ResponseCache) Store(req *Request, resp *Response) bool {
	return c.StoreIfGeneration(req, resp, c.Generation())
}

// StoreIfGeneration is Store, except that nothing is stored when the cache
// was cleared after gen was read. A call that began before a Reset therefore
// cannot repopulate the cache.
func (c *ResponseCache) StoreIfGeneration(req *Request, resp *Response, gen uint64) bool {
	if !c.Cacheable(req) {
		return false
	}
	ttl := storableTTL(resp, c.TTL(req))
	if ttl <= 0 {
		return false
	}

	id := req.Identity()
	stored := resp.clone()
	stored.FromCache = false
	entry := &CacheEntry{
		Identity:  id,
		Response:  stored,
		ExpiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	// Re-storing an identity counts as a fresh insertion.
	c.entries.Remove(id)
	if evicted := c.entries.Add(id, entry); evicted {
		c.metrics.RecordCacheEviction()
	}
	c.metrics.RecordCacheSize(c.entries.Len())
	return true
}

// InvalidatePrefix removes every entry whose URL starts with prefix and
// returns how many were removed.
func (c *ResponseCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, id := range c.entries.Keys() {
		if strings.HasPrefix(id.URL, prefix) {
			c.entries.Remove(id)
			removed++
		}
	}
	if removed > 0 {
		c.metrics.RecordCacheSize(c.entries.Len())
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.generation++
	c.metrics.RecordCacheSize(0)
}
