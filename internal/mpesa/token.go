// internal/mpesa/token.go
package mpesa

import (
	"sync"
	"time"
)

// TokenCache holds the current OAuth bearer token. Reads vastly outnumber
// writes (a refresh happens at most once an hour), so it is guarded by a
// RWMutex rather than anything that would serialize payment traffic. Two
// concurrent misses may both fetch a fresh token; that is harmless.
type TokenCache struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token if more than margin remains before expiry.
func (c *TokenCache) Get(margin time.Duration) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Until(c.expiry) <= margin {
		return "", false
	}
	return c.token, true
}

// Put overwrites the cached token.
func (c *TokenCache) Put(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiry = expiry
}
