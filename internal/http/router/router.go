// Package router arma el árbol de rutas chi del servidor.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/health"
	recordsctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/records"
	usersctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	mw "github.com/dropDatabas3/hellocms/internal/http/middlewares"
	"github.com/dropDatabas3/hellocms/internal/rate"
)

// Deps son las dependencias del router. Metrics y SignInLimiter son opcionales.
type Deps struct {
	Records  *recordsctrl.Controller
	Auth     *authctrl.Controller
	Users    *usersctrl.Controller
	Health   *healthctrl.Controller
	Resolver mw.PrincipalResolver

	// Metrics handler de /metrics (nil = no se expone).
	Metrics http.Handler
	// SignInLimiter limita /auth/signin e /install por IP.
	SignInLimiter rate.Limiter
}

// New construye el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// health sin logging ni métricas (muy frecuentes)
	r.Group(func(r chi.Router) {
		r.Use(mw.WithRecover())
		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
		if deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", deps.Metrics)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithRequestID(),
			mw.WithLogging(),
			mw.WithRecover(),
			mw.WithMetrics(),
			mw.WithPrincipal(deps.Resolver),
		)

		r.Route("/data/{slug}", func(r chi.Router) {
			r.Get("/", deps.Records.List)
			r.Post("/", deps.Records.Create)
			r.Put("/", deps.Records.UpdateSingleton)
			r.Delete("/", deps.Records.DeleteSingleton)

			r.Get("/{id}", deps.Records.Get)
			r.Put("/{id}", deps.Records.Update)
			r.Delete("/{id}", deps.Records.Delete)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(mw.WithNoStore())
			r.With(mw.WithRateLimit(deps.SignInLimiter, mw.IPPathRateKey)).Post("/signin", deps.Auth.SignIn)
			r.With(mw.RequireAuth()).Post("/signout", deps.Auth.SignOut)
		})

		r.With(mw.WithNoStore(), mw.WithRateLimit(deps.SignInLimiter, mw.IPPathRateKey)).
			Post("/install", deps.Auth.Install)

		r.Route("/users", func(r chi.Router) {
			r.Use(mw.WithNoStore(), mw.RequireAdmin())
			r.Get("/", deps.Users.List)
			r.Post("/", deps.Users.Create)
			r.Get("/{id}", deps.Users.Get)
			r.Put("/{id}", deps.Users.Update)
			r.Delete("/{id}", deps.Users.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})
	return r
}
