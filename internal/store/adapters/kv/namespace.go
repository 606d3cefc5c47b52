// Package kv implementa la variante de namespace key-value del record store.
//
// Layout de keys:
//
//	records/{slug}/{id}   → value: payload JSON, metadata: {version, createdAt, updatedAt, deletedAt}
//	users/{id}            → value: usuario JSON, metadata: {email, roles}
//	users/email/{email}   → value: id del usuario
//	sessions/{id}         → value: sesión JSON (TTL = vida de la sesión)
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

var (
	// ErrKeyNotFound indica que la key no existe (o expiró) en el namespace.
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrInvalidCursor cursor que el namespace no emitió.
	ErrInvalidCursor = fmt.Errorf("%w: kv: invalid cursor", repository.ErrInvalidInput)
)

// Entry es el par value + metadata guardado bajo una key.
type Entry struct {
	Value    []byte
	Metadata []byte
}

// KeyInfo es una key listada con su metadata.
type KeyInfo struct {
	Name     string
	Metadata []byte
}

// Namespace es el contrato mínimo de un store key-value con listado paginado.
type Namespace interface {
	// Get retorna ErrKeyNotFound si la key no existe.
	Get(ctx context.Context, key string) (Entry, error)

	// Put escribe la entrada. ttl 0 = sin expiración.
	Put(ctx context.Context, key string, e Entry, ttl time.Duration) error

	// Delete es idempotente.
	Delete(ctx context.Context, key string) error

	// List devuelve hasta limit keys con el prefijo, a partir de cursor.
	// next vacío indica fin del listado. El cursor es propio de cada implementación.
	List(ctx context.Context, prefix, cursor string, limit int) (keys []KeyInfo, next string, err error)

	Ping(ctx context.Context) error
	Close() error
}
