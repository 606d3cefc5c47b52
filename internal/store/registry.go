// Package store provee el registry de adaptadores de almacenamiento.
//
// Cada adapter se registra en init() y se abre por nombre desde configuración:
//
//	import _ "github.com/dropDatabas3/hellocms/internal/store/adapters/sqldb"
//	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{Name: "postgres", DSN: dsn})
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// Adapter representa un adaptador de almacenamiento capaz de crear repositorios.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "sqlite", "redis", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// ─── Repositorios ───

	Records() repository.RecordRepository
	Users() repository.UserRepository
	Sessions() repository.SessionRepository
}

// Migratable interfaz opcional para conexiones con schema SQL.
type Migratable interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "sqlite", "redis", "memory"
	Name string

	// DSN connection string (para SQL)
	DSN string

	// Pool settings (para SQL)
	MaxOpenConns int
	MaxIdleConns int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// DeletedTTL retención de records soft-deleted en backends key-value.
	// 0 = DefaultDeletedTTL.
	DeletedTTL time.Duration
}

// DefaultDeletedTTL retención por defecto de entradas soft-deleted en KV.
const DefaultDeletedTTL = 30 * 24 * time.Hour

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
// Sin nombre de adapter retorna repository.ErrNoDatabase.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	if cfg.Name == "" {
		return nil, repository.ErrNoDatabase
	}
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered", cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
