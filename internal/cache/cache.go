package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss — типизированный промах, чтобы отличать его от ошибок транспорта.
var ErrMiss = errors.New("cache: miss")

// Cache — минимальный контракт key-value кэша. Реализации должны быть
// потокобезопасны; все методы уважают контекст вызывающего.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	// DelPattern удаляет все ключи по glob-шаблону (напр. "sessions:list:*").
	DelPattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
