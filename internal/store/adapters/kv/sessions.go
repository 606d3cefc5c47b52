package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

type sessionDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionRepo struct{ c *Connection }

var _ repository.SessionRepository = (*sessionRepo)(nil)

func (r *sessionRepo) Create(ctx context.Context, s repository.Session) error {
	now := r.c.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired", repository.ErrInvalidInput)
	}
	value, err := json.Marshal(sessionDoc{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt.UTC(),
		CreatedAt: s.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.c.ns.Put(ctx, sessionPrefix+s.ID, Entry{Value: value}, ttl); err != nil {
		return fmt.Errorf("sessions: create: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	e, err := r.c.ns.Get(ctx, sessionPrefix+id)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get: %w", err)
	}
	var d sessionDoc
	if err := json.Unmarshal(e.Value, &d); err != nil {
		return nil, fmt.Errorf("sessions: decode: %w", err)
	}
	return &repository.Session{ID: d.ID, UserID: d.UserID, ExpiresAt: d.ExpiresAt, CreatedAt: d.CreatedAt}, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if err := r.c.ns.Delete(ctx, sessionPrefix+id); err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	return nil
}
