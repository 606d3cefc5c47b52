// Package access implementa el evaluador de control de acceso por colección.
//
// Es una función pura de (verbo, colección, principal) → decisión, sin I/O.
// Debe evaluarse antes de cualquier acceso al storage.
package access

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellocms/internal/collection"
)

// Motivos de denegación.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
)

// Principal es el usuario autenticado visto por el core (solo lectura).
type Principal struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// IsAdmin indica si el principal tiene el rol admin.
func (p *Principal) IsAdmin() bool {
	return p.hasRole(collection.RoleAdmin)
}

func (p *Principal) hasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.TrimSpace(r) == role {
			return true
		}
	}
	return false
}

// Decision resultado transitorio de una evaluación.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow decisión positiva.
func Allow() Decision { return Decision{Allowed: true} }

// Deny decisión negativa con motivo.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// VerbFromMethod mapea un método HTTP al verbo de la colección.
func VerbFromMethod(method string) (collection.Verb, bool) {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return collection.VerbRead, true
	case http.MethodPost:
		return collection.VerbCreate, true
	case http.MethodPut, http.MethodPatch:
		return collection.VerbUpdate, true
	case http.MethodDelete:
		return collection.VerbDelete, true
	}
	return "", false
}

// PublicAllowed indica si el verbo está abierto sin sesión ("public" en la lista).
// Permite al caller evitar resolver la sesión cuando no hace falta.
func PublicAllowed(verb collection.Verb, col *collection.Collection) bool {
	return col != nil && col.AllowsRole(verb, collection.RolePublic)
}

// Evaluate decide si el principal (o nadie, si es nil) puede ejecutar verb sobre col.
//
// Orden:
//  1. lista de roles del verbo (ausente = vacía)
//  2. contiene "public" → Allow sin principal
//  3. sin principal → Deny(unauthenticated)
//  4. principal admin → Allow
//  5. intersección de roles → Allow, si no Deny(forbidden)
func Evaluate(verb collection.Verb, col *collection.Collection, p *Principal) Decision {
	if col == nil {
		return Deny(ReasonForbidden)
	}
	if PublicAllowed(verb, col) {
		return Allow()
	}
	if p == nil {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() {
		return Allow()
	}
	for _, r := range p.Roles {
		if col.AllowsRole(verb, r) {
			return Allow()
		}
	}
	return Deny(ReasonForbidden)
}
