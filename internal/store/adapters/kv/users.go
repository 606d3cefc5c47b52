package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

const (
	userPrefix       = "users/"
	userEmailPrefix  = "users/email/"
	sessionPrefix    = "sessions/"
	userListPageSize = 100
)

type userDoc struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"passwordHash"`
	Roles        []string       `json:"roles"`
	Config       map[string]any `json:"config,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type userMeta struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type userRepo struct{ c *Connection }

var _ repository.UserRepository = (*userRepo)(nil)

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	e, err := r.c.ns.Get(ctx, userPrefix+id)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	var d userDoc
	if err := json.Unmarshal(e.Value, &d); err != nil {
		return nil, fmt.Errorf("users: decode: %w", err)
	}
	return d.toUser(), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	e, err := r.c.ns.Get(ctx, userEmailPrefix+email)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get by email: %w", err)
	}
	return r.GetByID(ctx, string(e.Value))
}

func (r *userRepo) List(ctx context.Context) ([]repository.User, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]repository.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.GetByID(ctx, id)
		if repository.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	ids, err := r.ids(ctx)
	return len(ids), err
}

// ids recorre users/ salteando el índice por email.
func (r *userRepo) ids(ctx context.Context) ([]string, error) {
	var ids []string
	cursor := ""
	for {
		keys, next, err := r.c.ns.List(ctx, userPrefix, cursor, userListPageSize)
		if err != nil {
			return nil, fmt.Errorf("users: list: %w", err)
		}
		for _, k := range keys {
			if strings.HasPrefix(k.Name, userEmailPrefix) {
				continue
			}
			ids = append(ids, strings.TrimPrefix(k.Name, userPrefix))
		}
		if next == "" {
			return ids, nil
		}
		cursor = next
	}
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	if _, err := r.c.ns.Get(ctx, userEmailPrefix+in.Email); err == nil {
		return nil, repository.ErrConflict
	} else if !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("users: create: %w", err)
	}

	now := r.c.now()
	d := userDoc{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		Config:       in.Config,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.put(ctx, d); err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	if err := r.c.ns.Put(ctx, userEmailPrefix+d.Email, Entry{Value: []byte(d.ID)}, 0); err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return d.toUser(), nil
}

func (r *userRepo) Update(ctx context.Context, id string, in repository.UpdateUserInput) (*repository.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := docFromUser(u)
	oldEmail := d.Email

	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Email != nil && *in.Email != oldEmail {
		if _, err := r.c.ns.Get(ctx, userEmailPrefix+*in.Email); err == nil {
			return nil, repository.ErrConflict
		}
		d.Email = *in.Email
	}
	if in.PasswordHash != nil {
		d.PasswordHash = *in.PasswordHash
	}
	if in.Roles != nil {
		d.Roles = append([]string(nil), in.Roles...)
	}
	if in.Config != nil {
		d.Config = in.Config
	}
	d.UpdatedAt = r.c.now()

	if err := r.put(ctx, d); err != nil {
		return nil, fmt.Errorf("users: update: %w", err)
	}
	if d.Email != oldEmail {
		if err := r.c.ns.Put(ctx, userEmailPrefix+d.Email, Entry{Value: []byte(d.ID)}, 0); err != nil {
			return nil, fmt.Errorf("users: update: %w", err)
		}
		_ = r.c.ns.Delete(ctx, userEmailPrefix+oldEmail)
	}
	return d.toUser(), nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.c.ns.Delete(ctx, userPrefix+id); err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	return r.c.ns.Delete(ctx, userEmailPrefix+u.Email)
}

func (r *userRepo) put(ctx context.Context, d userDoc) error {
	value, err := json.Marshal(d)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(userMeta{Email: d.Email, Roles: d.Roles})
	if err != nil {
		return err
	}
	return r.c.ns.Put(ctx, userPrefix+d.ID, Entry{Value: value, Metadata: meta}, 0)
}

func (d userDoc) toUser() *repository.User {
	return &repository.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Roles:        d.Roles,
		Config:       d.Config,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func docFromUser(u *repository.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Config:       u.Config,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
