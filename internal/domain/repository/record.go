package repository

import (
	"context"
	"time"
)

// Data es el payload opaco de un record: un mapa sin orden de claves string.
type Data map[string]any

// Clone retorna una copia superficial del payload.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge retorna una copia de d con las claves de delta aplicadas encima.
func (d Data) Merge(delta Data) Data {
	out := d.Clone()
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// Record es una entrada de una colección.
// El par (Collection, ID) es inmutable una vez creado.
type Record struct {
	ID         string
	Collection string
	Data       Data
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time // presente = soft-deleted
}

// Live indica si el record no fue borrado.
func (r *Record) Live() bool {
	return r != nil && r.DeletedAt == nil
}

// ListOptions opciones de paginación por cursor.
type ListOptions struct {
	// Cursor opaco devuelto por la página anterior. Vacío = primera página.
	Cursor string
	// Limit cantidad máxima de records. 0 = DefaultListLimit.
	Limit int
}

// DefaultListLimit límite por defecto de List.
const DefaultListLimit = 10

// RecordPage una página de resultados.
type RecordPage struct {
	Records []Record
	// NextCursor es nil cuando se devolvió la última página.
	NextCursor *string
}

// RecordRepository es el contrato uniforme sobre los dos backends de records.
//
// Los cursores son tokens opacos propios de cada implementación y no son
// portables entre backends.
type RecordRepository interface {
	// Get obtiene un record vivo. Retorna ErrNotFound si no existe o está soft-deleted.
	Get(ctx context.Context, slug, id string) (*Record, error)

	// Inspect obtiene un record incluso si está soft-deleted (uso diagnóstico).
	Inspect(ctx context.Context, slug, id string) (*Record, error)

	// List lista records vivos de una colección.
	List(ctx context.Context, slug string, opts ListOptions) (*RecordPage, error)

	// Insert crea un record. Retorna ErrConflict si ya existe uno vivo en la misma key.
	Insert(ctx context.Context, slug, id string, data Data, version int) (*Record, error)

	// Update reemplaza data y versión. Retorna ErrNotFound si no hay record vivo.
	Update(ctx context.Context, slug, id string, data Data, version int) (*Record, error)

	// SoftDelete marca el record como borrado. Retorna ErrNotFound si no hay record vivo.
	SoftDelete(ctx context.Context, slug, id string) error

	// MaxLimit límite máximo de página soportado por el backend.
	MaxLimit() int
}

// ClampLimit normaliza un límite pedido contra el default y el máximo del backend.
func ClampLimit(limit, max int) int {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
