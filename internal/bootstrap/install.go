// Package bootstrap crea el primer usuario administrador.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellocms/internal/audit"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	tokens "github.com/dropDatabas3/hellocms/internal/security/token"
	"github.com/dropDatabas3/hellocms/internal/users"
)

// ErrAlreadyInstalled ya existe al menos un usuario.
var ErrAlreadyInstalled = errors.New("already installed")

// Options datos del admin inicial. Password vacío = se genera uno.
type Options struct {
	Name     string
	Email    string
	Password string
}

// Result admin creado. Password solo se completa si fue generado.
type Result struct {
	UserID            string
	Email             string
	GeneratedPassword string
}

// Install crea el admin inicial si el sistema no tiene usuarios.
func Install(ctx context.Context, svc *users.Service, opts Options) (*Result, error) {
	n, err := svc.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil, ErrAlreadyInstalled
	}

	pw := opts.Password
	generated := ""
	if pw == "" {
		if pw, err = tokens.GenerateOpaqueToken(18); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		generated = pw
	}
	name := opts.Name
	if name == "" {
		name = "Admin"
	}

	u, err := svc.Create(ctx, users.CreateInput{
		Name:     name,
		Email:    opts.Email,
		Password: pw,
		Roles:    []string{collection.RoleAdmin},
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.EventInstall, logger.UserID(u.ID), audit.Email(u.Email))
	return &Result{UserID: u.ID, Email: u.Email, GeneratedPassword: generated}, nil
}
