// Package auth define los DTOs de /auth e /install.
package auth

import "time"

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}

type InstallRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// InstallResponse incluye el password solo si fue generado por el server.
type InstallResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}
