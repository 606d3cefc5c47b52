// Package users expone el CRUD administrativo de /users.
package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/hellocms/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	"github.com/dropDatabas3/hellocms/internal/http/helpers"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	svc "github.com/dropDatabas3/hellocms/internal/users"
)

type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// List maneja GET /users
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	list, err := c.service.List(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	resp := dto.ListUsersResponse{Users: make([]dto.User, 0, len(list))}
	for i := range list {
		resp.Users = append(resp.Users, dto.FromUser(&list[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
	logger.From(r.Context()).Debug("users listed", logger.Count(len(list)))
}

// Get maneja GET /users/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UserResponse{User: dto.FromUser(u)})
}

// Create maneja POST /users
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := helpers.ReadJSON(w, r, &req, 0); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	u, err := c.service.Create(r.Context(), svc.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		Config:   req.Config,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.UserResponse{User: dto.FromUser(u)})
}

// Update maneja PUT /users/{id}
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := helpers.ReadJSON(w, r, &req, 0); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	u, err := c.service.Update(r.Context(), chi.URLParam(r, "id"), svc.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		Config:   req.Config,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UserResponse{User: dto.FromUser(u)})
}

// Delete maneja DELETE /users/{id}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteOK(w, http.StatusOK)
}
