package validation

import "regexp"

// Reglas para slugs de colección y nombres de rol:
// - Solo minúsculas.
// - Empieza y termina con [a-z0-9].
// - En el medio admite [a-z0-9_-].
// - Largo 1..64.
//
// Válidos: posts, blog-posts, site_settings, a
// Inválidos: Posts, "a b", a/b, -lead, trail_, "", 65+ chars.
var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_-]{0,62}[a-z0-9])?$`)

// ValidSlug indica si s puede usarse como segmento de path (/data/{slug}).
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}

// roleRe es más permisivo: admite ':' y '.' para roles con namespace (ej: blog:editor).
var roleRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidRole indica si r es un nombre de rol aceptable.
func ValidRole(r string) bool {
	return roleRe.MatchString(r)
}
