// Package cache provee un cache key/value con TTL para datos derivados
// (principals resueltos desde un token de sesión).
//
// Backends:
//   - memory (go-cache, in-process)
//   - redis (compartido entre réplicas)
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client operaciones de cache.
type Client interface {
	// Get retorna ErrNotFound si la key no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda value; ttl 0 = sin expiración.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete es idempotente.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// Config para New.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ErrNotFound la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente según cfg.Kind.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
