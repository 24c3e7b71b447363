package errors

import "errors"

// Общие ошибки инфраструктурных адаптеров
var (
	// ErrCacheMiss возвращается, когда значение отсутствует в кэше
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable возвращается, когда система кэширования недоступна
	ErrCacheUnavailable = errors.New("cache: unavailable")
)
