package repository

import (
	"context"
	"time"
)

// User representa un usuario del sistema (principal autenticable).
type User struct {
	ID           string
	Name         string
	Email        string // clave de sign-in
	PasswordHash string
	Roles        []string
	Config       map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole indica si el usuario tiene el rol dado.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	Config       map[string]any
}

// UpdateUserInput contiene los campos actualizables de un usuario.
// Los campos nil no se modifican.
type UpdateUserInput struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Roles        []string
	Config       map[string]any
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail busca un usuario por email. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List lista todos los usuarios.
	List(ctx context.Context) ([]User, error)

	// Create crea un usuario. Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// Update actualiza campos de un usuario. Retorna ErrNotFound si no existe.
	Update(ctx context.Context, id string, input UpdateUserInput) (*User, error)

	// Delete elimina un usuario. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error

	// Count retorna la cantidad de usuarios.
	Count(ctx context.Context) (int, error)
}
