package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
)

const sharedKeyPrefix = "detail:memo:"

// SharedMemo stores memo entries as JSON in a CacheService so several
// worker processes share one memory tier. Cache errors count as misses.
type SharedMemo struct {
	cache CacheService
	ttl   time.Duration
	log   *logger.Logger
}

// NewSharedMemo creates a SharedMemo over cache
func NewSharedMemo(cache CacheService, ttl time.Duration) *SharedMemo {
	return &SharedMemo{cache: cache, ttl: ttl, log: logger.ForCache()}
}

// sharedKey hashes the URL: memcache keys are limited to 250 bytes without
// spaces or control characters.
func sharedKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return sharedKeyPrefix + hex.EncodeToString(sum[:])
}

func (m *SharedMemo) Get(key string) (Entry, bool) {
	data, err := m.cache.Get(sharedKey(key))
	if err != nil {
		if !stderrors.Is(err, memcache.ErrCacheMiss) {
			m.log.Warn().Err(errors.NewCache("shared-memo", "get failed", err)).Str("url", key).Msg("Treating as miss")
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		m.log.Warn().Err(errors.NewMalformedData("shared-memo", "undecodable entry", err)).Str("url", key).Msg("Treating as miss")
		return Entry{}, false
	}
	return entry, true
}

func (m *SharedMemo) Set(key string, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		m.log.Warn().Err(err).Str("url", key).Msg("Failed to encode memo entry")
		return
	}
	if err := m.cache.Set(sharedKey(key), data, m.ttl); err != nil {
		m.log.Warn().Err(errors.NewCache("shared-memo", "set failed", err)).Str("url", key).Msg("Memo entry not shared")
	}
}

func (m *SharedMemo) Evict(key string) {
	if err := m.cache.Delete(sharedKey(key)); err != nil {
		m.log.Warn().Err(errors.NewCache("shared-memo", "delete failed", err)).Str("url", key).Msg("Memo entry not evicted")
	}
}
