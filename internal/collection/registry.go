package collection

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound indica que no existe una colección con ese slug.
var ErrNotFound = errors.New("collection not found")

// Registry es el mapa inmutable slug → Collection.
// Después de NewRegistry no expone operaciones de mutación.
type Registry struct {
	bySlug map[string]*Collection
	slugs  []string
}

// Option modifica las colecciones antes de congelar el registry.
type Option func(map[string]*Collection) error

// WithHooks adjunta hooks a una colección ya declarada.
func WithHooks(slug string, h Hooks) Option {
	return func(m map[string]*Collection) error {
		c, ok := m[slug]
		if !ok {
			return fmt.Errorf("hooks for unknown collection %q", slug)
		}
		c.Hooks = h
		return nil
	}
}

// NewRegistry valida y congela las colecciones.
// Las colecciones se copian: mutar los argumentos después no afecta al registry.
func NewRegistry(cols []Collection, opts ...Option) (*Registry, error) {
	m := make(map[string]*Collection, len(cols))
	for i := range cols {
		c := cols[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, dup := m[c.Slug]; dup {
			return nil, fmt.Errorf("duplicate collection %q", c.Slug)
		}
		c = c.clone()
		m[c.Slug] = &c
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	r := &Registry{bySlug: m, slugs: make([]string, 0, len(m))}
	for slug, c := range m {
		c.roles = buildRoleTable(c.Access)
		r.slugs = append(r.slugs, slug)
	}
	sort.Strings(r.slugs)
	return r, nil
}

// Lookup retorna una copia de la colección o ErrNotFound. Mutar la copia no
// altera el registry: los permisos siguen saliendo de la tabla congelada.
func (r *Registry) Lookup(slug string) (*Collection, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	c, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	cp := c.clone()
	return &cp, nil
}

// Slugs retorna los slugs registrados, ordenados.
func (r *Registry) Slugs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.slugs...)
}

// Len cantidad de colecciones registradas.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.bySlug)
}
