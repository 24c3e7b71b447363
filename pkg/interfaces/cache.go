package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
// Реализация может использовать Redis, Memcached или любую другую систему кэширования
type CachePort interface {
	// Get получает значение из кэша по ключу
	Get(ctx context.Context, key string) ([]byte, error)

	// GetWithStore получает значение из кэша по ключу в пространстве имен магазина
	// Помогает изолировать кэшированные данные разных целевых магазинов
	GetWithStore(ctx context.Context, key string, storeID string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия
	// Если expiration равно 0, срок действия не устанавливается
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// SetWithStore сохраняет значение в кэше в пространстве имен магазина
	SetWithStore(ctx context.Context, key string, value []byte, storeID string, expiration time.Duration) error

	// Delete удаляет значение из кэша по ключу
	Delete(ctx context.Context, key string) error

	// DeleteWithStore удаляет значение из кэша по ключу в пространстве имен магазина
	DeleteWithStore(ctx context.Context, key string, storeID string) error

	// DeleteByPattern удаляет все значения, соответствующие шаблону
	// Например, "attr:*" удалит все ключи, начинающиеся с "attr:"
	DeleteByPattern(ctx context.Context, pattern string) error

	// DeleteByPatternWithStore удаляет все значения по шаблону в пространстве имен магазина
	DeleteByPatternWithStore(ctx context.Context, pattern string, storeID string) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
