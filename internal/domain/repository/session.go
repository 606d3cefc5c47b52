package repository

import (
	"context"
	"time"
)

// Session es una sesión de usuario emitida en sign-in.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired indica si la sesión ya expiró respecto a now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository define operaciones para gestionar sesiones.
type SessionRepository interface {
	// Create persiste una sesión nueva.
	Create(ctx context.Context, s Session) error

	// Get obtiene una sesión por ID. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete elimina una sesión. Es idempotente.
	Delete(ctx context.Context, id string) error
}
