// Package users es el CRUD administrativo de usuarios.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellocms/internal/audit"
	"github.com/dropDatabas3/hellocms/internal/auth"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	"github.com/dropDatabas3/hellocms/internal/security/password"
	"github.com/dropDatabas3/hellocms/internal/validation"
)

// ErrInvalid datos de usuario inválidos (email, password débil).
var ErrInvalid = errors.New("invalid user")

// CreateInput datos de alta.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
	Config   map[string]any
}

// UpdateInput campos modificables; nil = sin cambios.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Roles    []string
	Config   map[string]any
}

// Invalidator descarta los principals cacheados de un usuario
// (implementado por auth.Resolver).
type Invalidator interface {
	ForgetUser(ctx context.Context, userID string)
}

// Service gestiona usuarios hasheando passwords con la política configurada.
type Service struct {
	repo        repository.UserRepository
	policy      password.Policy
	cost        int
	invalidator Invalidator
}

// Option configura el Service.
type Option func(*Service)

// WithInvalidator invalida la cache de principals en cada Update/Delete.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// NewService crea el servicio. cost 0 = bcrypt.DefaultCost.
func NewService(repo repository.UserRepository, policy password.Policy, cost int, opts ...Option) *Service {
	s := &Service{repo: repo, policy: policy, cost: cost}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]repository.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*repository.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Count cantidad de usuarios (bootstrap).
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*repository.User, error) {
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, repository.CreateUserInput{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Roles:        cleanRoles(in.Roles),
		Config:       in.Config,
	})
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.EventUserCreated, logger.UserID(u.ID), audit.Email(u.Email))
	return u, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*repository.User, error) {
	upd := repository.UpdateUserInput{Name: in.Name, Config: in.Config}
	if in.Email != nil {
		email, err := validEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}
	if in.Roles != nil {
		upd.Roles = cleanRoles(in.Roles)
	}
	u, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.forget(ctx, u.ID)
	audit.Log(ctx, audit.EventUserUpdated, logger.UserID(u.ID))
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.forget(ctx, id)
	audit.Log(ctx, audit.EventUserDeleted, logger.UserID(id))
	return nil
}

func (s *Service) forget(ctx context.Context, userID string) {
	if s.invalidator != nil {
		s.invalidator.ForgetUser(ctx, userID)
	}
}

func (s *Service) hash(plain string) (string, error) {
	if reasons := s.policy.Validate(plain); len(reasons) > 0 {
		return "", fmt.Errorf("%w: password %s", ErrInvalid, strings.Join(reasons, ", "))
	}
	return password.Hash(plain, s.cost)
}

func validEmail(raw string) (string, error) {
	email := auth.NormalizeEmail(raw)
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " /") {
		return "", fmt.Errorf("%w: email %q", ErrInvalid, raw)
	}
	return email, nil
}

func cleanRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, r := range in {
		r = strings.TrimSpace(r)
		if !validation.ValidRole(r) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
