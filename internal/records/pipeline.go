package records

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	"github.com/dropDatabas3/hellocms/internal/observability/metrics"
)

// Nombres de hooks, usados en errores, logs y métricas.
const (
	HookBeforeCreate = "beforeCreate"
	HookAfterCreate  = "afterCreate"
	HookBeforeUpdate = "beforeUpdate"
	HookAfterUpdate  = "afterUpdate"
	HookBeforeDelete = "beforeDelete"
	HookAfterDelete  = "afterDelete"
	HookNewVersion   = "newVersion"
)

// Pipeline ejecuta las mutaciones de un record intercalando los hooks de su
// colección. El orden es fijo para todas las colecciones:
//
//	create: beforeCreate → insert → afterCreate
//	update: get → newVersion → merge delta → beforeUpdate → update → afterUpdate
//	delete: get → beforeDelete → softDelete → afterDelete
//
// Un pre-hook que falla aborta sin escribir (HookError). Un post-hook que falla
// no deshace la escritura (PostHookError con el record resultante).
type Pipeline struct {
	repo repository.RecordRepository
}

// NewPipeline crea un pipeline sobre el repositorio de records.
func NewPipeline(repo repository.RecordRepository) *Pipeline {
	return &Pipeline{repo: repo}
}

// Create inserta data (ya validada) bajo id.
func (p *Pipeline) Create(ctx context.Context, col *collection.Collection, id string, data repository.Data) (*repository.Record, error) {
	h := col.Hooks

	if h.BeforeCreate != nil {
		out, err := guard(ctx, col, id, HookBeforeCreate, func() (repository.Data, error) {
			return h.BeforeCreate(ctx, data.Clone())
		})
		if err != nil {
			return nil, err
		}
		data = orEmpty(out)
	}

	rec, err := p.repo.Insert(ctx, col.Slug, id, data, col.Version)
	if err != nil {
		return nil, storageErr("insert", err)
	}

	if h.AfterCreate != nil {
		if err := guardPost(ctx, col, rec, HookAfterCreate, func() error {
			return h.AfterCreate(ctx, *rec)
		}); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Update aplica delta sobre el record vivo (collection, id).
func (p *Pipeline) Update(ctx context.Context, col *collection.Collection, id string, delta repository.Data) (*repository.Record, error) {
	h := col.Hooks

	old, err := p.repo.Get(ctx, col.Slug, id)
	if err != nil {
		return nil, storageErr("get", err)
	}

	working := old.Data.Clone()
	if old.Version < col.Version && h.NewVersion != nil {
		migrated, err := guard(ctx, col, id, HookNewVersion, func() (repository.Data, error) {
			return h.NewVersion(ctx, snapshot(old), old.Version, col.Version)
		})
		if err != nil {
			return nil, err
		}
		working = orEmpty(migrated)
		logger.From(ctx).Debug("record migrated",
			logger.Collection(col.Slug), logger.RecordID(id), logger.Versions(old.Version, col.Version))
		metrics.RecordMigrated(col.Slug)
	}

	working = working.Merge(delta)

	if h.BeforeUpdate != nil {
		out, err := guard(ctx, col, id, HookBeforeUpdate, func() (repository.Data, error) {
			return h.BeforeUpdate(ctx, snapshot(old), working.Clone())
		})
		if err != nil {
			return nil, err
		}
		working = orEmpty(out)
	}

	updated, err := p.repo.Update(ctx, col.Slug, id, working, col.Version)
	if err != nil {
		return nil, storageErr("update", err)
	}

	if h.AfterUpdate != nil {
		if err := guardPost(ctx, col, updated, HookAfterUpdate, func() error {
			return h.AfterUpdate(ctx, snapshot(old), *updated)
		}); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Delete hace soft delete del record vivo (collection, id).
func (p *Pipeline) Delete(ctx context.Context, col *collection.Collection, id string) error {
	h := col.Hooks

	old, err := p.repo.Get(ctx, col.Slug, id)
	if err != nil {
		return storageErr("get", err)
	}

	if h.BeforeDelete != nil {
		if _, err := guard(ctx, col, id, HookBeforeDelete, func() (repository.Data, error) {
			return nil, h.BeforeDelete(ctx, snapshot(old))
		}); err != nil {
			return err
		}
	}

	if err := p.repo.SoftDelete(ctx, col.Slug, id); err != nil {
		return storageErr("delete", err)
	}

	if h.AfterDelete != nil {
		gone := p.tombstone(ctx, col.Slug, old)
		return guardPost(ctx, col, gone, HookAfterDelete, func() error {
			return h.AfterDelete(ctx, snapshot(gone))
		})
	}
	return nil
}

// tombstone relee el record borrado para exponer el DeletedAt persistido.
// Si la relectura falla se estampa la hora local.
func (p *Pipeline) tombstone(ctx context.Context, slug string, old *repository.Record) *repository.Record {
	if gone, err := p.repo.Inspect(ctx, slug, old.ID); err == nil && gone.DeletedAt != nil {
		return gone
	}
	now := time.Now().UTC()
	gone := snapshot(old)
	gone.DeletedAt = &now
	return &gone
}

// guard ejecuta un pre-hook convirtiendo error o panic en HookError.
func guard(ctx context.Context, col *collection.Collection, id, hook string, fn func() (repository.Data, error)) (out repository.Data, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.From(ctx).Info("hook rejected operation",
				logger.Collection(col.Slug), logger.RecordID(id), logger.Hook(hook), logger.Err(err))
			metrics.HookFailure(col.Slug, hook)
			out, err = nil, &HookError{Hook: hook, Err: err}
		}
	}()
	return fn()
}

// guardPost ejecuta un post-hook; la escritura ya ocurrió y no se revierte.
func guardPost(ctx context.Context, col *collection.Collection, rec *repository.Record, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.From(ctx).Warn("post hook failed, write kept",
				logger.Collection(col.Slug), logger.RecordID(rec.ID), logger.Hook(hook), logger.Err(err))
			metrics.HookFailure(col.Slug, hook)
			err = &PostHookError{Hook: hook, Err: err, Record: rec}
		}
	}()
	return fn()
}

// snapshot copia el record para que un hook no pueda mutar el estado del pipeline.
func snapshot(r *repository.Record) repository.Record {
	out := *r
	out.Data = r.Data.Clone()
	return out
}

func orEmpty(d repository.Data) repository.Data {
	if d == nil {
		return repository.Data{}
	}
	return d
}
