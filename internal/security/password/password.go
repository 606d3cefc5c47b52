// Package password hashea y verifica passwords con bcrypt y aplica la
// política de complejidad.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost costo bcrypt por defecto.
const DefaultCost = bcrypt.DefaultCost

// ErrEmpty password vacío.
var ErrEmpty = errors.New("empty password")

// Hash retorna el hash bcrypt del password.
func Hash(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	if cost <= 0 {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara en tiempo constante el password contra el hash.
func Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
