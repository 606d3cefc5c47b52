package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellocms/internal/audit"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/jwt"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	"github.com/dropDatabas3/hellocms/internal/security/password"
	tokens "github.com/dropDatabas3/hellocms/internal/security/token"
)

// SignInResult token emitido y su expiración.
type SignInResult struct {
	Token     string
	ExpiresAt time.Time
	User      *repository.User
}

// Service sign-in / sign-out.
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	issuer   *jwt.Issuer
	resolver *Resolver
}

// NewService crea el servicio de autenticación.
func NewService(users repository.UserRepository, sessions repository.SessionRepository, issuer *jwt.Issuer, resolver *Resolver) *Service {
	return &Service{users: users, sessions: sessions, issuer: issuer, resolver: resolver}
}

// SignIn verifica credenciales y abre una sesión.
// Email desconocido → repository.ErrNotFound; password incorrecto → ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, plain string) (*SignInResult, error) {
	email = NormalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !password.Verify(plain, u.PasswordHash) {
		audit.Log(ctx, audit.EventSignInRejected, logger.UserID(u.ID))
		return nil, ErrInvalidCredentials
	}

	sid, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	tok, exp, err := s.issuer.Issue(u.ID, sid)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.Create(ctx, repository.Session{ID: sid, UserID: u.ID, ExpiresAt: exp}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	audit.Log(ctx, audit.EventSignIn, logger.UserID(u.ID), logger.SessionID(sid))
	return &SignInResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

// SignOut revoca la sesión del token. Un token inválido es ErrInvalidSession.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return ErrInvalidSession
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return err
	}
	s.resolver.Forget(ctx, token)
	audit.Log(ctx, audit.EventSignOut, logger.UserID(claims.Subject), logger.SessionID(claims.SessionID))
	return nil
}

// NormalizeEmail trim + lower.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
