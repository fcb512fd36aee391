package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryKVStore is an in-process KVStore with TTL. It backs the token registry
// when no Redis address is configured; tokens do not survive a restart.
type MemoryKVStore struct {
	mu   sync.Mutex
	data map[string]memoryKVItem
	now  func() time.Time
}

type memoryKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

// NewMemoryKVStore creates an empty store. now may be nil.
func NewMemoryKVStore(now func() time.Time) *MemoryKVStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryKVStore{data: make(map[string]memoryKVItem), now: now}
}

func (m *MemoryKVStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.data, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = memoryKVItem{value: value, expires: exp}
	return nil
}

func (m *MemoryKVStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
