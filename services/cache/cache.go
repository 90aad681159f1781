// Package cache holds the byte cache used across worker processes and the
// two memo tiers the detail manager keeps in front of the listing store.
package cache

import (
	"time"

	"groupbuy/detailworker/internal/detail"
)

// CacheService represents a generic byte cache
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Entry is one memoized extraction. A nil Value records an attempt that
// produced nothing.
type Entry struct {
	Value     *detail.RawProductDetail `json:"value"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

// Age returns how old the entry is at now
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Memo is the short-lived tier keyed by listing URL. Implementations are
// safe for concurrent use; last write wins.
type Memo interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry)
	Evict(key string)
}
