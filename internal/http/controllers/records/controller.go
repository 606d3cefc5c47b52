// Package records expone el record engine en /data/{slug}.
package records

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	dto "github.com/dropDatabas3/hellocms/internal/http/dto/records"
	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	"github.com/dropDatabas3/hellocms/internal/http/helpers"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	svc "github.com/dropDatabas3/hellocms/internal/records"
)

// Controller maneja las rutas de records.
type Controller struct {
	service *svc.Service
	maxBody int64
}

// NewController crea el controller. maxBody <= 0 usa el default de helpers.
func NewController(service *svc.Service, maxBody int64) *Controller {
	return &Controller{service: service, maxBody: maxBody}
}

// isSingleton indica si slug es una colección singleton. Una colección
// desconocida retorna false y el service produce el 404.
func (c *Controller) isSingleton(slug string) bool {
	col, err := c.service.Collection(slug)
	return err == nil && col.Unique
}

// List maneja GET /data/{slug}. En singletons retorna el único record.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if c.isSingleton(slug) {
		c.get(w, r, slug, "")
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("limit must be a positive integer"))
			return
		}
		limit = n
	}

	page, err := c.service.List(r.Context(), slug, q.Get("cursor"), limit)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromPage(page))
}

// Get maneja GET /data/{slug}/{id}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	c.get(w, r, chi.URLParam(r, "slug"), chi.URLParam(r, "id"))
}

func (c *Controller) get(w http.ResponseWriter, r *http.Request, slug, id string) {
	rec, err := c.service.Get(r.Context(), slug, id)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RecordResponse{Message: "OK", Record: dto.FromRecord(rec)})
}

// Create maneja POST /data/{slug}.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	data, ok := c.readData(w, r)
	if !ok {
		return
	}
	rec, err := c.service.Create(r.Context(), slug, data)
	c.writeResult(w, r, http.StatusCreated, rec, err)
}

// Update maneja PUT /data/{slug}/{id}.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	c.update(w, r, chi.URLParam(r, "slug"), chi.URLParam(r, "id"))
}

// UpdateSingleton maneja PUT /data/{slug} (solo singletons).
func (c *Controller) UpdateSingleton(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !c.singletonOrReject(w, slug, "GET, POST") {
		return
	}
	c.update(w, r, slug, "")
}

func (c *Controller) update(w http.ResponseWriter, r *http.Request, slug, id string) {
	delta, ok := c.readData(w, r)
	if !ok {
		return
	}
	rec, err := c.service.Update(r.Context(), slug, id, delta)
	c.writeResult(w, r, http.StatusOK, rec, err)
}

// Delete maneja DELETE /data/{slug}/{id}.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	c.delete(w, r, chi.URLParam(r, "slug"), chi.URLParam(r, "id"))
}

// DeleteSingleton maneja DELETE /data/{slug} (solo singletons).
func (c *Controller) DeleteSingleton(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !c.singletonOrReject(w, slug, "GET, POST") {
		return
	}
	c.delete(w, r, slug, "")
}

func (c *Controller) delete(w http.ResponseWriter, r *http.Request, slug, id string) {
	err := c.service.Delete(r.Context(), slug, id)
	c.writeResult(w, r, http.StatusOK, nil, err)
}

// singletonOrReject responde 405 si la colección existe y no es singleton.
func (c *Controller) singletonOrReject(w http.ResponseWriter, slug, allow string) bool {
	col, err := c.service.Collection(slug)
	if err != nil || col.Unique {
		// colección desconocida: el service responde 404 tras el chequeo de acceso
		return true
	}
	w.Header().Set("Allow", allow)
	httperrors.WriteError(w, httperrors.ErrMethodNotAllowed.WithDetail("record id is required"))
	return false
}

func (c *Controller) readData(w http.ResponseWriter, r *http.Request) (repository.Data, bool) {
	var req dto.DataRequest
	if err := helpers.ReadJSON(w, r, &req, c.maxBody); err != nil {
		httperrors.WriteError(w, err)
		return nil, false
	}
	if req.Data == nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(`body must be {"data": {...}}`))
		return nil, false
	}
	return req.Data, true
}

// writeResult escribe la respuesta de una mutación. Un fallo de post-hook no
// deshace la escritura: se responde 2xx con hook_error.
func (c *Controller) writeResult(w http.ResponseWriter, r *http.Request, status int, rec *repository.Record, err error) {
	resp := dto.RecordResponse{Message: "OK"}
	if err != nil {
		phe, ok := svc.AsPostHookError(err)
		if !ok {
			httperrors.WriteError(w, err)
			return
		}
		logger.From(r.Context()).Warn("post-hook failed after write",
			logger.Hook(phe.Hook), logger.Err(phe.Err))
		msg := phe.Error()
		resp.HookError = &msg
		if rec == nil {
			rec = phe.Record
		}
	}
	resp.Record = dto.FromRecord(rec)
	helpers.WriteJSON(w, status, resp)
}
