package snipe

import (
	"strings"
	"time"
)

// responseCache is a process-lifetime cache of successful GET responses
// keyed by full request URL. Any mutating call invalidates every cached
// entry whose URL has the mutation target as a prefix, so cached reads never
// outlive a write that could have changed them.
//
// The cache is scoped to a single run and, like the rest of the client, is
// not safe for concurrent use.
type responseCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	body    []byte
	expires time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// get returns the cached body for url, or nil when absent or expired.
func (c *responseCache) get(url string) []byte {
	entry, ok := c.entries[url]
	if !ok {
		return nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, url)
		return nil
	}
	return entry.body
}

// put stores a response body for url.
func (c *responseCache) put(url string, body []byte) {
	c.entries[url] = cacheEntry{
		body:    body,
		expires: c.now().Add(c.ttl),
	}
}

// invalidatePrefix removes every entry related to target by prefix in
// either direction: a write to hardware/42 drops hardware/42 itself and any
// nested reads, and also drops a cached hardware collection read that the
// write may have changed.
func (c *responseCache) invalidatePrefix(target string) {
	for url := range c.entries {
		if strings.HasPrefix(url, target) || strings.HasPrefix(target, url) {
			delete(c.entries, url)
		}
	}
}

// len reports the number of live entries (expired entries included until
// next access).
func (c *responseCache) len() int {
	return len(c.entries)
}
