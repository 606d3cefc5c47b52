package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/validation"
)

// Verb es la acción sobre una colección que evalúa el control de acceso.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbRead   Verb = "read"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Verbs lista los verbos en orden fijo.
var Verbs = []Verb{VerbCreate, VerbRead, VerbUpdate, VerbDelete}

// Roles sentinela.
const (
	RolePublic = "public"
	RoleAdmin  = "admin"
)

// UniqueID es el id fijo del único record de una colección singleton.
const UniqueID = "unique"

// Access son las listas de roles por verbo, tal como vienen de configuración.
// Una lista ausente equivale a vacía (solo admins).
type Access struct {
	Create []string
	Read   []string
	Update []string
	Delete []string
}

func (a Access) list(v Verb) []string {
	switch v {
	case VerbCreate:
		return a.Create
	case VerbRead:
		return a.Read
	case VerbUpdate:
		return a.Update
	case VerbDelete:
		return a.Delete
	}
	return nil
}

// Hooks son callbacks opcionales del ciclo de vida de un record.
// El orden de invocación lo fija records.Pipeline y es igual para todas las colecciones.
type Hooks struct {
	BeforeCreate func(ctx context.Context, data repository.Data) (repository.Data, error)
	AfterCreate  func(ctx context.Context, rec repository.Record) error
	BeforeUpdate func(ctx context.Context, old repository.Record, data repository.Data) (repository.Data, error)
	AfterUpdate  func(ctx context.Context, old, updated repository.Record) error
	BeforeDelete func(ctx context.Context, old repository.Record) error
	AfterDelete  func(ctx context.Context, old repository.Record) error
	NewVersion   func(ctx context.Context, old repository.Record, oldVersion, newVersion int) (repository.Data, error)
}

// Collection es la configuración inmutable de una colección.
type Collection struct {
	Slug    string
	Label   string
	Fields  []Field
	Access  Access
	Unique  bool
	Version int
	Hooks   Hooks

	// tabla {verbo → roles} normalizada en el build del registry
	roles map[Verb]map[string]struct{}
}

// clone copia los slices de configuración. roles se comparte: el registry
// nunca lo modifica después de construirlo.
func (c Collection) clone() Collection {
	c.Fields = cloneFields(c.Fields)
	c.Access = Access{
		Create: slices.Clone(c.Access.Create),
		Read:   slices.Clone(c.Access.Read),
		Update: slices.Clone(c.Access.Update),
		Delete: slices.Clone(c.Access.Delete),
	}
	return c
}

func cloneFields(fs []Field) []Field {
	if fs == nil {
		return nil
	}
	out := make([]Field, len(fs))
	for i, f := range fs {
		f.Fields = cloneFields(f.Fields)
		out[i] = f
	}
	return out
}

// ErrInvalidData indica que el payload no respeta la lista de campos declarada.
var ErrInvalidData = errors.New("invalid record data")

// Roles retorna los roles permitidos para el verbo, ordenados.
func (c *Collection) Roles(v Verb) []string {
	set := c.roleSet(v)
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// AllowsRole indica si el rol está en la lista del verbo.
func (c *Collection) AllowsRole(v Verb, role string) bool {
	_, ok := c.roleSet(v)[strings.TrimSpace(role)]
	return ok
}

func (c *Collection) roleSet(v Verb) map[string]struct{} {
	if c.roles == nil {
		// colección fuera del registry: no se cachea para no mutar estado compartido
		return buildRoleTable(c.Access)[v]
	}
	return c.roles[v]
}

func buildRoleTable(a Access) map[Verb]map[string]struct{} {
	table := make(map[Verb]map[string]struct{}, len(Verbs))
	for _, v := range Verbs {
		set := map[string]struct{}{}
		for _, r := range a.list(v) {
			if r = strings.TrimSpace(r); r != "" {
				set[r] = struct{}{}
			}
		}
		table[v] = set
	}
	return table
}

// Field busca un campo declarado por nombre.
func (c *Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ApplyDefaults retorna una copia de data con los defaults declarados
// para los campos ausentes.
func (c *Collection) ApplyDefaults(data repository.Data, now time.Time) repository.Data {
	out := data.Clone()
	for _, f := range c.Fields {
		if _, ok := out[f.Name]; ok {
			continue
		}
		if v, ok := f.DefaultValue(now); ok {
			out[f.Name] = v
		}
	}
	return out
}

// CheckFields valida data contra la lista de campos declarada: rechaza campos
// desconocidos y, si partial es false, campos requeridos ausentes.
// Una colección sin campos declarados acepta cualquier payload.
func (c *Collection) CheckFields(data repository.Data, partial bool) error {
	if len(c.Fields) == 0 {
		return nil
	}
	var unknown []string
	for k := range data {
		if _, ok := c.Field(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown fields %s", ErrInvalidData, strings.Join(unknown, ", "))
	}
	if partial {
		return nil
	}
	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if v, ok := data[f.Name]; !ok || v == nil {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields %s", ErrInvalidData, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Collection) validate() error {
	if strings.TrimSpace(c.Slug) == "" {
		return fmt.Errorf("collection slug is required")
	}
	if !validation.ValidSlug(c.Slug) {
		return fmt.Errorf("collection %q: slug must be lowercase [a-z0-9_-], 1..64 chars", c.Slug)
	}
	if c.Version < 0 {
		return fmt.Errorf("collection %q: version must be >= 0", c.Slug)
	}
	for _, v := range Verbs {
		for _, r := range c.Access.list(v) {
			if r = strings.TrimSpace(r); r != "" && !validation.ValidRole(r) {
				return fmt.Errorf("collection %q: invalid role %q in %s", c.Slug, r, v)
			}
		}
	}
	seen := map[string]bool{}
	for _, f := range c.Fields {
		if seen[f.Name] {
			return fmt.Errorf("collection %q: duplicate field %q", c.Slug, f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return fmt.Errorf("collection %q: %w", c.Slug, err)
		}
	}
	return nil
}
