// Package records compone registry, control de acceso, pipeline de hooks y
// record store en las cinco operaciones públicas sobre records.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/hellocms/internal/access"
	"github.com/dropDatabas3/hellocms/internal/audit"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	"github.com/dropDatabas3/hellocms/internal/observability/metrics"
)

// Service es el punto de entrada del record engine.
// Todas las operaciones evalúan el acceso con el principal del contexto
// (access.WithPrincipal) antes de tocar el storage.
type Service struct {
	registry *collection.Registry
	repo     repository.RecordRepository
	pipeline *Pipeline
	newID    func() (string, error)
	now      func() time.Time
}

// Option configura el Service.
type Option func(*Service)

// WithIDGenerator reemplaza el generador de ids (tests).
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock reemplaza el reloj usado para defaults de fecha.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService crea el servicio de records.
func NewService(reg *collection.Registry, repo repository.RecordRepository, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		repo:     repo,
		pipeline: NewPipeline(repo),
		newID:    newRecordID,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// newRecordID genera un UUIDv7: ordenable por tiempo y lexicográficamente.
func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Authorize resuelve la colección y evalúa el verbo para el principal.
// Colección desconocida → collection.ErrNotFound; deny → ErrUnauthorized / ErrForbidden.
func (s *Service) Authorize(ctx context.Context, verb collection.Verb, slug string, p *access.Principal) (*collection.Collection, error) {
	col, err := s.registry.Lookup(slug)
	if err != nil {
		return nil, err
	}
	d := access.Evaluate(verb, col, p)
	if d.Allowed {
		return col, nil
	}

	metrics.AccessDenied(slug, string(verb), d.Reason)
	logger.From(ctx).Debug("access denied",
		logger.Collection(slug), logger.Verb(string(verb)), logger.String("reason", d.Reason))
	if d.Reason == access.ReasonUnauthenticated {
		return nil, ErrUnauthorized
	}
	return nil, ErrForbidden
}

func (s *Service) authorize(ctx context.Context, verb collection.Verb, slug string) (*collection.Collection, error) {
	return s.Authorize(ctx, verb, slug, access.PrincipalFrom(ctx))
}

// Collection expone la configuración de una colección (sin control de acceso).
func (s *Service) Collection(slug string) (*collection.Collection, error) {
	return s.registry.Lookup(slug)
}

// recordID aplica el id fijo en colecciones singleton.
func recordID(col *collection.Collection, id string) string {
	if col.Unique {
		return collection.UniqueID
	}
	return id
}

// List lista records vivos. limit 0 = default del store; negativo es inválido.
func (s *Service) List(ctx context.Context, slug, cursor string, limit int) (page *repository.RecordPage, err error) {
	col, err := s.authorize(ctx, collection.VerbRead, slug)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	defer s.observe(slug, "list", time.Now(), &err)

	page, err = s.repo.List(ctx, col.Slug, repository.ListOptions{Cursor: cursor, Limit: limit})
	if err != nil {
		return nil, storageErr("list", err)
	}
	return page, nil
}

// Get obtiene un record vivo.
func (s *Service) Get(ctx context.Context, slug, id string) (rec *repository.Record, err error) {
	col, err := s.authorize(ctx, collection.VerbRead, slug)
	if err != nil {
		return nil, err
	}
	defer s.observe(slug, "get", time.Now(), &err)

	rec, err = s.repo.Get(ctx, col.Slug, recordID(col, id))
	if err != nil {
		return nil, storageErr("get", err)
	}
	return rec, nil
}

// Create aplica defaults, valida campos y crea el record.
// Si falla un post-hook retorna el record junto con un *PostHookError.
func (s *Service) Create(ctx context.Context, slug string, data repository.Data) (rec *repository.Record, err error) {
	col, err := s.authorize(ctx, collection.VerbCreate, slug)
	if err != nil {
		return nil, err
	}
	defer s.observe(slug, "create", time.Now(), &err)

	data = col.ApplyDefaults(data, s.now())
	if err := col.CheckFields(data, false); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id := collection.UniqueID
	if !col.Unique {
		if id, err = s.newID(); err != nil {
			return nil, fmt.Errorf("generate record id: %w", err)
		}
	}

	rec, err = s.pipeline.Create(ctx, col, id, data)
	if repository.IsConflict(err) && col.Unique {
		return nil, fmt.Errorf("%w: collection %q already has its record", repository.ErrConflict, slug)
	}
	if rec != nil {
		audit.Log(ctx, audit.EventRecordCreated, logger.Collection(slug), logger.RecordID(rec.ID))
	}
	return rec, err
}

// Update aplica delta (merge superficial) sobre el record.
// Si falla un post-hook retorna el record junto con un *PostHookError.
func (s *Service) Update(ctx context.Context, slug, id string, delta repository.Data) (rec *repository.Record, err error) {
	col, err := s.authorize(ctx, collection.VerbUpdate, slug)
	if err != nil {
		return nil, err
	}
	defer s.observe(slug, "update", time.Now(), &err)

	if err := col.CheckFields(delta, true); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	rec, err = s.pipeline.Update(ctx, col, recordID(col, id), delta)
	if rec != nil {
		audit.Log(ctx, audit.EventRecordUpdated, logger.Collection(slug), logger.RecordID(rec.ID))
	}
	return rec, err
}

// Delete hace soft delete. Borrar dos veces el mismo id es ErrNotFound.
func (s *Service) Delete(ctx context.Context, slug, id string) (err error) {
	col, err := s.authorize(ctx, collection.VerbDelete, slug)
	if err != nil {
		return err
	}
	defer s.observe(slug, "delete", time.Now(), &err)

	rid := recordID(col, id)
	if err = s.pipeline.Delete(ctx, col, rid); err != nil && !isPostWriteError(err) {
		return err
	}
	audit.Log(ctx, audit.EventRecordDeleted, logger.Collection(slug), logger.RecordID(rid))
	return err
}

func (s *Service) observe(slug, op string, start time.Time, errp *error) {
	result := "ok"
	if err := *errp; err != nil {
		switch {
		case isHookError(err):
			result = "hook_error"
		case IsNotFound(err):
			result = "not_found"
		default:
			result = "error"
		}
	}
	metrics.RecordOp(slug, op, result, time.Since(start))
}

func isPostWriteError(err error) bool {
	_, ok := AsPostHookError(err)
	return ok
}

func isHookError(err error) bool {
	if _, ok := AsPostHookError(err); ok {
		return true
	}
	_, ok := AsHookError(err)
	return ok
}
