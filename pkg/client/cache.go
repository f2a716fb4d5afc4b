package client

import (
	"sync"
	"time"
)

// DefaultRefreshSkew is how long before expiry a cached token stops being
// handed out.
const DefaultRefreshSkew = 5 * time.Second

// TokenCache holds one bearer token and the instant it stops being usable.
// It is safe for concurrent use.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	clock func() time.Time
	skew  time.Duration
}

func NewTokenCache(clock func() time.Time) *TokenCache {
	if clock == nil {
		clock = time.Now
	}
	return &TokenCache{clock: clock, skew: DefaultRefreshSkew}
}

// Get returns the cached token while it has more than the refresh skew left.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if !c.clock().Add(c.skew).Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *TokenCache) Set(token string, expiresIn time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.clock().Add(expiresIn)
}

func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
