package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// sessionRepo implementa repository.SessionRepository.
type sessionRepo struct{ c *Connection }

var _ repository.SessionRepository = (*sessionRepo)(nil)

func (r *sessionRepo) Create(ctx context.Context, s repository.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.c.now()
	}
	_, err := r.c.exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sessions: create: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	var s repository.Session
	err := r.c.queryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get: %w", err)
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.c.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	return nil
}
