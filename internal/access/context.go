package access

import "context"

type principalKey struct{}

// WithPrincipal adjunta el principal autenticado al contexto.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom retorna el principal del contexto, o nil si el request es anónimo.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
