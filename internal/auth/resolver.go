// Package auth resuelve tokens de sesión a principals y emite sesiones en sign-in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellocms/internal/access"
	"github.com/dropDatabas3/hellocms/internal/cache"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/jwt"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	tokens "github.com/dropDatabas3/hellocms/internal/security/token"
)

var (
	// ErrInvalidSession token inválido, expirado, revocado o de un usuario inexistente.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidCredentials password incorrecto.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultPrincipalTTL vida en cache de un principal resuelto.
const DefaultPrincipalTTL = 30 * time.Second

// Resolver implementa resolveSession(token) → Principal.
type Resolver struct {
	issuer   *jwt.Issuer
	sessions repository.SessionRepository
	users    repository.UserRepository
	cache    cache.Client
	ttl      time.Duration
	group    singleflight.Group
	now      func() time.Time
}

// NewResolver crea un Resolver. c puede ser nil (sin cache).
func NewResolver(issuer *jwt.Issuer, sessions repository.SessionRepository, users repository.UserRepository, c cache.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultPrincipalTTL
	}
	return &Resolver{
		issuer:   issuer,
		sessions: sessions,
		users:    users,
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
	}
}

func cacheKey(token string) string {
	return "principal:" + tokens.SHA256Base64URL(token)
}

// Resolve valida el token y retorna el principal. Cualquier token que no
// corresponda a una sesión viva es ErrInvalidSession.
func (r *Resolver) Resolve(ctx context.Context, token string) (*access.Principal, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	key := cacheKey(token)

	if p := r.cached(ctx, key); p != nil {
		return p, nil
	}

	// requests concurrentes con el mismo token comparten una sola resolución;
	// la resolución compartida no hereda la cancelación del primer caller
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.resolve(shared, token, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*access.Principal), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, token, key string) (*access.Principal, error) {
	claims, err := r.issuer.Parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	sess, err := r.sessions.Get(ctx, claims.SessionID)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject || sess.Expired(r.now()) {
		return nil, ErrInvalidSession
	}

	u, err := r.users.GetByID(ctx, sess.UserID)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	p := &access.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Roles: u.Roles}
	r.store(ctx, key, p, sess.ExpiresAt)
	return p, nil
}

// cachedPrincipal entrada de cache; Stamp debe coincidir con el stamp
// vigente del usuario (ver ForgetUser).
type cachedPrincipal struct {
	Principal access.Principal `json:"principal"`
	Stamp     string           `json:"stamp"`
}

func userStampKey(userID string) string {
	return "principal-user:" + userID
}

func (r *Resolver) cached(ctx context.Context, key string) *access.Principal {
	if r.cache == nil {
		return nil
	}
	b, err := r.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsNotFound(err) {
			logger.From(ctx).Warn("principal cache get failed", logger.Err(err))
		}
		return nil
	}
	var e cachedPrincipal
	if err := json.Unmarshal(b, &e); err != nil || e.Stamp == "" {
		return nil
	}
	stamp, err := r.cache.Get(ctx, userStampKey(e.Principal.ID))
	if err != nil || string(stamp) != e.Stamp {
		// usuario modificado o borrado después de cachear
		_ = r.cache.Delete(ctx, key)
		return nil
	}
	return &e.Principal
}

func (r *Resolver) store(ctx context.Context, key string, p *access.Principal, expires time.Time) {
	if r.cache == nil {
		return
	}
	ttl := r.ttl
	if left := expires.Sub(r.now()); left < ttl {
		ttl = left
	}
	if ttl <= 0 {
		return
	}
	stamp, err := r.userStamp(ctx, p.ID)
	if err != nil {
		logger.From(ctx).Warn("principal cache stamp failed", logger.Err(err))
		return
	}
	b, err := json.Marshal(cachedPrincipal{Principal: *p, Stamp: stamp})
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, b, ttl); err != nil {
		logger.From(ctx).Warn("principal cache set failed", logger.Err(err))
	}
}

// userStamp retorna el stamp vigente del usuario, creándolo si no existe.
// Vive más que cualquier principal cacheado.
func (r *Resolver) userStamp(ctx context.Context, userID string) (string, error) {
	key := userStampKey(userID)
	b, err := r.cache.Get(ctx, key)
	if err == nil {
		return string(b), nil
	}
	if !cache.IsNotFound(err) {
		return "", err
	}
	stamp, err := tokens.GenerateOpaqueToken(12)
	if err != nil {
		return "", err
	}
	if err := r.cache.Set(ctx, key, []byte(stamp), 2*r.ttl); err != nil {
		return "", err
	}
	return stamp, nil
}

// Forget invalida el principal cacheado para el token.
func (r *Resolver) Forget(ctx context.Context, token string) {
	if r.cache == nil || token == "" {
		return
	}
	_ = r.cache.Delete(ctx, cacheKey(token))
}

// ForgetUser invalida todos los principals cacheados del usuario. Se llama
// cuando cambian sus datos o roles, o cuando se lo borra.
func (r *Resolver) ForgetUser(ctx context.Context, userID string) {
	if r.cache == nil || userID == "" {
		return
	}
	if err := r.cache.Delete(ctx, userStampKey(userID)); err != nil {
		logger.From(ctx).Warn("principal cache invalidation failed", logger.UserID(userID), logger.Err(err))
	}
}
