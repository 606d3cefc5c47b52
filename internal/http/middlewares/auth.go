package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellocms/internal/access"
	"github.com/dropDatabas3/hellocms/internal/auth"
	httperrors "github.com/dropDatabas3/hellocms/internal/http/errors"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
)

// PrincipalResolver resuelve un bearer token a un principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*access.Principal, error)
}

// bearerToken extrae el token de "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// WithPrincipal resuelve el token (si viene) e inyecta el principal en el
// contexto. Un token inválido deja el request como anónimo: la decisión de
// rechazarlo es del evaluador de acceso, que permite colecciones públicas.
func WithPrincipal(res PrincipalResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := setToken(r.Context(), token)

			p, err := res.Resolve(ctx, token)
			switch {
			case err == nil:
				ctx = access.WithPrincipal(ctx, p)
				ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(p.ID)))
			case errors.Is(err, auth.ErrInvalidSession):
				logger.From(ctx).Debug("bearer token rejected")
			default:
				logger.From(ctx).Error("resolve session failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth exige un principal resuelto (401).
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if access.PrincipalFrom(r.Context()) == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin exige un principal con rol admin (401 sin sesión, 403 sin rol).
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := access.PrincipalFrom(r.Context())
			if p == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			if !p.IsAdmin() {
				httperrors.WriteError(w, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
