package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/pkg/errors"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache - реализация CachePort в памяти процесса.
// Используется для короткоживущих данных (списки атрибутов магазинов),
// которые не имеет смысла держать в Redis.
type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) interfaces.CachePort {
	return &MemoryCache{
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (m *MemoryCache) buildKey(key, storeID string) string {
	if storeID != "" {
		return fmt.Sprintf("store:%s:%s", storeID, key)
	}
	return key
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	val, found := m.cache.Get(key)
	if !found {
		return nil, errors.ErrCacheMiss
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	return data, nil
}

func (m *MemoryCache) GetWithStore(ctx context.Context, key string, storeID string) ([]byte, error) {
	return m.Get(ctx, m.buildKey(key, storeID))
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = gocache.NoExpiration
	}
	m.cache.Set(key, value, expiration)
	return nil
}

func (m *MemoryCache) SetWithStore(ctx context.Context, key string, value []byte, storeID string, expiration time.Duration) error {
	return m.Set(ctx, m.buildKey(key, storeID), value, expiration)
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryCache) DeleteWithStore(ctx context.Context, key string, storeID string) error {
	return m.Delete(ctx, m.buildKey(key, storeID))
}

// DeleteByPattern поддерживает только шаблоны вида "prefix*"
func (m *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
		}
	}
	return nil
}

func (m *MemoryCache) DeleteByPatternWithStore(ctx context.Context, pattern string, storeID string) error {
	return m.DeleteByPattern(ctx, m.buildKey(pattern, storeID))
}

func (m *MemoryCache) Close() error {
	m.cache.Flush()
	return nil
}
