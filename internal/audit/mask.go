package audit

import "strings"

// maskEmail deja la primera letra del usuario y del primer label del dominio:
// "john@example.com" → "j…@e….com". Sin '@' se enmascara como un token opaco.
func maskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" {
		switch {
		case s == "":
			return ""
		case len(s) <= 3:
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	labels := strings.Split(domain, ".")
	labels[0] = shorten(labels[0])
	return shorten(local) + "@" + strings.Join(labels, ".")
}

func shorten(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + "…"
}
