// Package audit emite eventos de auditoría estructurados sobre el logger
// "audit". Los emails se enmascaran antes de loguearse.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellocms/internal/access"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventSignIn         = "auth.signin"
	EventSignInRejected = "auth.signin_rejected"
	EventSignOut        = "auth.signout"
	EventInstall        = "install.completed"
	EventUserCreated    = "user.created"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventRecordCreated  = "record.created"
	EventRecordUpdated  = "record.updated"
	EventRecordDeleted  = "record.deleted"
)

// Log registra el evento con el actor del contexto (si hay principal).
func Log(ctx context.Context, event string, fields ...zap.Field) {
	fs := make([]zap.Field, 0, len(fields)+2)
	fs = append(fs, zap.String("event", event))
	if p := access.PrincipalFrom(ctx); p != nil {
		fs = append(fs, zap.String("actor", p.ID))
	}
	fs = append(fs, fields...)
	logger.From(ctx).Named("audit").Info("audit", fs...)
}

// Email campo de email enmascarado.
func Email(v string) zap.Field { return zap.String("email", maskEmail(v)) }
