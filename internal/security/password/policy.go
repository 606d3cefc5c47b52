package password

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// Policy reglas mínimas de complejidad.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool

	// Blacklist passwords comunes rechazados (comparación case-insensitive).
	Blacklist map[string]struct{}
}

// DefaultPolicy política usada si la configuración no define otra.
var DefaultPolicy = Policy{MinLength: 8}

// Validate retorna los motivos de rechazo; vacío = válido.
func (p Policy) Validate(s string) []string {
	var reasons []string
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if _, bad := p.Blacklist[strings.ToLower(strings.TrimSpace(s))]; bad {
		reasons = append(reasons, "blacklisted")
	}
	return reasons
}

// ReadBlacklist lee un password por línea; ignora vacías y comentarios (#).
func ReadBlacklist(r io.Reader) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.ToLower(strings.TrimSpace(sc.Text()))
		if s != "" && !strings.HasPrefix(s, "#") {
			out[s] = struct{}{}
		}
	}
	return out, sc.Err()
}
