package apiclient

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultCacheEntries bounds the response cache. Search keys come from visitor
// query strings, so the oldest entries are evicted past this size.
const defaultCacheEntries = 1024

// ttlCache holds raw response payloads for ttl. Expired entries are swept in
// the background. A zero ttl disables caching.
type ttlCache struct {
	lru *expirable.LRU[string, []byte]
}

func newTTLCache(ttl time.Duration, size int) *ttlCache {
	if ttl <= 0 {
		return &ttlCache{}
	}
	if size <= 0 {
		size = defaultCacheEntries
	}
	return &ttlCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *ttlCache) get(key string) ([]byte, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *ttlCache) set(key string, data []byte) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, data)
}

func (c *ttlCache) invalidatePrefix(prefix string) int {
	if c.lru == nil {
		return 0
	}
	n := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			n++
		}
	}
	return n
}

func (c *ttlCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
