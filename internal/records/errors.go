package records

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

var (
	// ErrUnauthorized no hay sesión válida y el verbo no es público.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden hay sesión pero ningún rol habilita el verbo.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation request mal formado (body, query, campos).
	ErrValidation = errors.New("validation error")
)

// HookError un pre-hook vetó la operación; no se escribió nada.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string { return fmt.Sprintf("hook %s: %v", e.Hook, e.Err) }
func (e *HookError) Unwrap() error { return e.Err }

// PostHookError un post-hook falló después de una escritura exitosa.
// Record es el record resultante de la escritura, que no se revierte.
type PostHookError struct {
	Hook   string
	Err    error
	Record *repository.Record
}

func (e *PostHookError) Error() string { return fmt.Sprintf("hook %s: %v", e.Hook, e.Err) }
func (e *PostHookError) Unwrap() error { return e.Err }

// StorageError falló una llamada al backend de almacenamiento.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound cubre colección desconocida y record inexistente o borrado.
func IsNotFound(err error) bool {
	return repository.IsNotFound(err) || errors.Is(err, collection.ErrNotFound)
}

// AsPostHookError extrae un PostHookError de la cadena.
func AsPostHookError(err error) (*PostHookError, bool) {
	var phe *PostHookError
	if errors.As(err, &phe) {
		return phe, true
	}
	return nil, false
}

// storageErr deja pasar los errores de dominio y envuelve el resto como StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) || repository.IsConflict(err) {
		return err
	}
	if repository.IsInvalidInput(err) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return &StorageError{Op: op, Err: err}
}

// AsHookError extrae un HookError de la cadena.
func AsHookError(err error) (*HookError, bool) {
	var he *HookError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
