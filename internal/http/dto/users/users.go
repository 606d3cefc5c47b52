// Package users define los DTOs de /users. Nunca exponen el hash del password.
package users

import (
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

type CreateUserRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Roles    []string       `json:"roles"`
	Config   map[string]any `json:"config,omitempty"`
}

// UpdateUserRequest campos nil = sin cambios.
type UpdateUserRequest struct {
	Name     *string        `json:"name,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Password *string        `json:"password,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

type User struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Roles     []string       `json:"roles"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type UserResponse struct {
	User User `json:"user"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

func FromUser(u *repository.User) User {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		Config:    u.Config,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
