// Package auth maneja sign-in, sign-out e instalación.
package auth

import (
	"net/http"
	"strings"

	authsvc "github.com/dropDatabas3/hellocms/internal/auth"
	"github.com/dropDatabas3/hellocms/internal/bootstrap"
	dto "github.com/dropDatabas3/hellocms/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	"github.com/dropDatabas3/hellocms/internal/http/helpers"
	mw "github.com/dropDatabas3/hellocms/internal/http/middlewares"
	"github.com/dropDatabas3/hellocms/internal/users"
)

// Controller agrupa /auth/* y /install.
type Controller struct {
	auth  *authsvc.Service
	users *users.Service
}

func NewController(auth *authsvc.Service, users *users.Service) *Controller {
	return &Controller{auth: auth, users: users}
}

// SignIn maneja POST /auth/signin.
func (c *Controller) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := helpers.ReadJSON(w, r, &req, 0); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("email and password are required"))
		return
	}

	res, err := c.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("X-Auth-Token", res.Token)
	helpers.WriteJSON(w, http.StatusOK, dto.SignInResponse{
		Message:   "OK",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		UserID:    res.User.ID,
	})
}

// SignOut maneja POST /auth/signout. Requiere el bearer token de la sesión.
func (c *Controller) SignOut(w http.ResponseWriter, r *http.Request) {
	token := mw.GetToken(r.Context())
	if token == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	if err := c.auth.SignOut(r.Context(), token); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteOK(w, http.StatusOK)
}

// Install maneja POST /install. El body es opcional.
func (c *Controller) Install(w http.ResponseWriter, r *http.Request) {
	var req dto.InstallRequest
	if r.ContentLength != 0 {
		if err := helpers.ReadJSON(w, r, &req, 0); err != nil {
			httperrors.WriteError(w, err)
			return
		}
	}

	res, err := bootstrap.Install(r.Context(), c.users, bootstrap.Options{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.InstallResponse{
		Message:  "OK",
		UserID:   res.UserID,
		Email:    res.Email,
		Password: res.GeneratedPassword,
	})
}
