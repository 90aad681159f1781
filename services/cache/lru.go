package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoSize bounds the per-process memo
const DefaultMemoSize = 4096

// LRUMemo is the per-process memo: a size bounded LRU whose entries also
// expire after ttl.
type LRUMemo struct {
	lru *expirable.LRU[string, Entry]
}

// NewLRUMemo creates an LRUMemo. size <= 0 uses DefaultMemoSize.
func NewLRUMemo(size int, ttl time.Duration) *LRUMemo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	return &LRUMemo{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (m *LRUMemo) Get(key string) (Entry, bool) {
	return m.lru.Get(key)
}

func (m *LRUMemo) Set(key string, entry Entry) {
	m.lru.Add(key, entry)
}

func (m *LRUMemo) Evict(key string) {
	m.lru.Remove(key)
}

// Len returns the number of live entries
func (m *LRUMemo) Len() int {
	return m.lru.Len()
}
