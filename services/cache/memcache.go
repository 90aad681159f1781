package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a memcache service for one or more servers
func NewMemcacheService(serverAddrs ...string) *MemcacheService {
	client := memcache.New(serverAddrs...)
	client.Timeout = 250 * time.Millisecond
	return &MemcacheService{client: client}
}

// Get retrieves a value from memcache. A missing key returns
// memcache.ErrCacheMiss.
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache. Deleting a missing key is not an
// error.
func (m *MemcacheService) Delete(key string) error {
	if err := m.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		return err
	}
	return nil
}

// Ping checks that every server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
