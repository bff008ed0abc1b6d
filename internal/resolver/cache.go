package resolver

import (
	"sync"
	"time"
)

// urlCache keeps signed URLs until shortly before they expire.
type urlCache struct {
	mu   sync.RWMutex
	data map[string]cachedURL
}

type cachedURL struct {
	url     string
	expires time.Time
}

func newURLCache() *urlCache {
	return &urlCache{data: make(map[string]cachedURL)}
}

func (c *urlCache) get(key string, now time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	if !ok || !now.Before(v.expires) {
		return "", false
	}
	return v.url, true
}

func (c *urlCache) set(key, url string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cachedURL{url: url, expires: expires}
}

func (c *urlCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
