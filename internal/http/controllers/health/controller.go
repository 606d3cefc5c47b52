// Package health contiene /healthz y /readyz.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	"github.com/dropDatabas3/hellocms/internal/http/helpers"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
)

// Pinger es cualquier dependencia con chequeo de conectividad.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check es una dependencia nombrada para /readyz.
type Check struct {
	Name   string
	Pinger Pinger
}

type Controller struct {
	checks  []Check
	timeout time.Duration
}

func NewController(checks ...Check) *Controller {
	return &Controller{checks: checks, timeout: 2 * time.Second}
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz: el proceso está vivo.
func (c *Controller) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, readyResponse{Status: "ok"})
}

// Readyz chequea cada dependencia; cualquiera caída responde 503.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(c.checks))}
	for _, chk := range c.checks {
		if chk.Pinger == nil {
			continue
		}
		if err := chk.Pinger.Ping(ctx); err != nil {
			logger.From(ctx).Error("readiness check failed", logger.Component(chk.Name), logger.Err(err))
			resp.Status = "unavailable"
			resp.Checks[chk.Name] = "down"
			continue
		}
		resp.Checks[chk.Name] = "up"
	}

	if resp.Status != "ok" {
		helpers.WriteJSON(w, httperrors.ErrServiceUnavailable.HTTPStatus, resp)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
