package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/store"
)

func init() {
	store.RegisterAdapter(&redisAdapter{})
	store.RegisterAdapter(&memoryAdapter{})
}

// redisAdapter abre un namespace sobre Redis.
type redisAdapter struct{}

func (redisAdapter) Name() string { return "redis" }

func (a redisAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, fmt.Errorf("redis: addr required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return NewConnection(a.Name(), NewRedisNamespace(client, cfg.RedisPrefix), cfg.DeletedTTL), nil
}

// memoryAdapter abre un namespace en memoria (desarrollo y tests).
type memoryAdapter struct{}

func (memoryAdapter) Name() string { return "memory" }

func (a memoryAdapter) Connect(_ context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return NewConnection(a.Name(), NewMemoryNamespace(), cfg.DeletedTTL), nil
}

// Connection expone los repositorios sobre un Namespace.
type Connection struct {
	name       string
	ns         Namespace
	deletedTTL time.Duration
	now        func() time.Time
}

// NewConnection crea una conexión sobre un namespace arbitrario.
// deletedTTL 0 = store.DefaultDeletedTTL.
func NewConnection(name string, ns Namespace, deletedTTL time.Duration) *Connection {
	if deletedTTL <= 0 {
		deletedTTL = store.DefaultDeletedTTL
	}
	return &Connection{
		name:       name,
		ns:         ns,
		deletedTTL: deletedTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *Connection) Name() string                           { return c.name }
func (c *Connection) Ping(ctx context.Context) error         { return c.ns.Ping(ctx) }
func (c *Connection) Close() error                           { return c.ns.Close() }
func (c *Connection) Namespace() Namespace                   { return c.ns }
func (c *Connection) Records() repository.RecordRepository   { return &recordRepo{c: c} }
func (c *Connection) Users() repository.UserRepository       { return &userRepo{c: c} }
func (c *Connection) Sessions() repository.SessionRepository { return &sessionRepo{c: c} }

var _ store.AdapterConnection = (*Connection)(nil)
