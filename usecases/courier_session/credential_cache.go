package courier_session

import (
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
)

const DefaultShardCount = 16

// CredentialCache holds at most one session token per account key. Keys are spread over
// independently locked shards so that lookups for different accounts do not contend.
// The cache does not judge freshness on reads: callers decide, possibly with a margin.
type CredentialCache struct {
	shards []*cacheShard
	clock  clock.Clock
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[models.AccountKey]models.SessionToken
}

func NewCredentialCache(clk clock.Clock, shardCount int) *CredentialCache {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shards := make([]*cacheShard, shardCount)
	for i := range shards {
		shards[i] = &cacheShard{entries: make(map[models.AccountKey]models.SessionToken)}
	}
	return &CredentialCache{shards: shards, clock: clk}
}

func (c *CredentialCache) shardFor(key models.AccountKey) *cacheShard {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	// AccountKey only holds strings, hashing it cannot fail
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		panic(fmt.Sprintf("hashing account key %s: %v", key, err))
	}
	return c.shards[h%uint64(len(c.shards))]
}

func (c *CredentialCache) Get(key models.AccountKey) (models.SessionToken, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.entries[key]
	return token, ok
}

// Put replaces any entry for key with a token valid for ttl from now, and returns it.
func (c *CredentialCache) Put(key models.AccountKey, value string, ttl time.Duration) models.SessionToken {
	now := c.clock.Now()
	token := models.SessionToken{
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if !token.ExpiresAt.After(token.IssuedAt) {
		panic(fmt.Sprintf("credential cache: token for %s would expire before being issued (ttl %s)", key, ttl))
	}

	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = token
	s.mu.Unlock()
	return token
}

// Invalidate drops the entry for key only if it still holds value, and reports whether it did.
// A token minted since value was read is left in place.
func (c *CredentialCache) Invalidate(key models.AccountKey, value string) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.entries[key]
	if !ok || token.Value != value {
		return false
	}
	delete(s.entries, key)
	return true
}

// EvictExpired removes every entry that is stale at call time and returns how many were removed.
func (c *CredentialCache) EvictExpired() int {
	now := c.clock.Now()
	evicted := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, token := range s.entries {
			if !token.IsFreshAt(now) {
				delete(s.entries, key)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	return evicted
}

func (c *CredentialCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
