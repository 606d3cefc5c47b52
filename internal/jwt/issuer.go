// Package jwt emite y valida los tokens de sesión (HS256).
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken firma, formato o claims inválidos.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired el token expiró.
	ErrExpired = errors.New("token expired")
)

// SessionClaims claims de un token de sesión.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwtv5.RegisteredClaims
}

// Issuer firma tokens de sesión con un secreto compartido.
type Issuer struct {
	Iss    string
	secret []byte
	TTL    time.Duration
	now    func() time.Time
}

// NewIssuer crea un Issuer. El secreto debe tener al menos 32 bytes.
func NewIssuer(iss string, secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt: secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{Iss: iss, secret: append([]byte(nil), secret...), TTL: ttl, now: time.Now}, nil
}

// Issue emite un token para el usuario sub y la sesión sid.
func (i *Issuer) Issue(sub, sid string) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.TTL).Truncate(time.Second)

	claims := SessionClaims{
		SessionID: sid,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   sub,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse valida firma, issuer y vigencia (con 30s de tolerancia).
func (i *Issuer) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(30 * time.Second),
		jwtv5.WithTimeFunc(i.now),
		jwtv5.WithExpirationRequired(),
	}
	if i.Iss != "" {
		opts = append(opts, jwtv5.WithIssuer(i.Iss))
	}

	_, err := jwtv5.ParseWithClaims(token, claims, func(*jwtv5.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return nil, ErrExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sub or sid", ErrInvalidToken)
	}
	return claims, nil
}
