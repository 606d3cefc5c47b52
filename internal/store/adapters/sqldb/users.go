package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// userRepo implementa repository.UserRepository.
type userRepo struct{ c *Connection }

var _ repository.UserRepository = (*userRepo)(nil)

const userColumns = `id, name, email, password_hash, roles, config, created_at, updated_at`

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg string) (*repository.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]repository.User, error) {
	rows, err := r.c.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	cfg, err := encodeConfig(in.Config)
	if err != nil {
		return nil, err
	}
	now := r.c.now()
	u := &repository.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		Config:       in.Config,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.c.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, joinRoles(u.Roles), cfg, now, now,
	)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return u, nil
}

func (r *userRepo) Update(ctx context.Context, id string, in repository.UpdateUserInput) (*repository.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.PasswordHash != nil {
		u.PasswordHash = *in.PasswordHash
	}
	if in.Roles != nil {
		u.Roles = append([]string(nil), in.Roles...)
	}
	if in.Config != nil {
		u.Config = in.Config
	}
	cfg, err := encodeConfig(u.Config)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt = r.c.now()

	res, err := r.c.exec(ctx, `
		UPDATE users SET name = ?, email = ?, password_hash = ?, roles = ?, config = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, joinRoles(u.Roles), cfg, u.UpdatedAt, id,
	)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("users: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.c.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("users: count: %w", err)
	}
	return n, nil
}

func scanUser(s rowScanner) (*repository.User, error) {
	var (
		u     repository.User
		roles string
		cfg   []byte
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roles, &cfg, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Roles = splitRoles(roles)
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &u.Config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Los roles se guardan como lista separada por comas ("admin,editor").
func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func encodeConfig(cfg map[string]any) (string, error) {
	if cfg == nil {
		return "{}", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: config is not JSON-encodable: %v", repository.ErrInvalidInput, err)
	}
	return string(b), nil
}

// isUniqueViolation detecta violaciones de unicidad en ambos drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
