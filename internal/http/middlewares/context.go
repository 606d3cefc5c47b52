package middlewares

import "context"

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxTokenKey     ctxKey = "bearer_token"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

func setToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxTokenKey, token)
}

// GetToken obtiene el bearer token crudo que presentó el cliente.
func GetToken(ctx context.Context) string {
	if s, ok := ctx.Value(ctxTokenKey).(string); ok {
		return s
	}
	return ""
}
