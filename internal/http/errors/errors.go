// Package errors define el error HTTP estándar y el mapeo desde errores de dominio.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/hellocms/internal/auth"
	"github.com/dropDatabas3/hellocms/internal/bootstrap"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/records"
	"github.com/dropDatabas3/hellocms/internal/security/password"
	"github.com/dropDatabas3/hellocms/internal/users"
)

// AppError es el error que viaja hasta el cliente.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail retorna una copia con detalle.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause retorna una copia con la causa.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// ---- 4xx ----

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "Uno de los parámetros de la URL o Query String es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Los datos enviados no son válidos.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "El cuerpo de la solicitud excede el tamaño máximo permitido.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Las credenciales proporcionadas son inválidas.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "La ruta solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "La solicitud entra en conflicto con el estado actual del servidor.",
		HTTPStatus: http.StatusConflict,
	}

	ErrAlreadyInstalled = &AppError{
		Code:       "ALREADY_INSTALLED",
		Message:    "La instalación ya fue realizada.",
		HTTPStatus: http.StatusConflict,
	}

	ErrHookRejected = &AppError{
		Code:       "HOOK_REJECTED",
		Message:    "Un hook de la colección rechazó la operación.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Ha excedido el límite de solicitudes. Intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ---- 5xx ----

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// FromDomain traduce un error de las capas internas a AppError.
// Los 5xx no exponen el detalle de la causa.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var base *AppError
	switch {
	case isHook(err):
		base = ErrHookRejected
	case records.IsNotFound(err):
		base = ErrNotFound
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		base = ErrInvalidCredentials
	case stderrors.Is(err, records.ErrUnauthorized), stderrors.Is(err, auth.ErrInvalidSession):
		base = ErrUnauthorized
	case stderrors.Is(err, records.ErrForbidden):
		base = ErrForbidden
	case stderrors.Is(err, records.ErrValidation),
		stderrors.Is(err, users.ErrInvalid),
		stderrors.Is(err, collection.ErrInvalidData),
		stderrors.Is(err, password.ErrEmpty),
		repository.IsInvalidInput(err):
		base = ErrValidation
	case stderrors.Is(err, bootstrap.ErrAlreadyInstalled):
		base = ErrAlreadyInstalled
	case repository.IsConflict(err):
		base = ErrConflict
	default:
		return ErrInternalServerError.WithCause(err)
	}
	return base.WithDetail(err.Error()).WithCause(err)
}

func isHook(err error) bool {
	_, ok := records.AsHookError(err)
	return ok
}

// WriteError escribe la respuesta de error {error, code, detail?}.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromDomain(err)
	if appErr == nil {
		appErr = ErrInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}
