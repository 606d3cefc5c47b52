package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// MaxListLimit máximo de records por página en la variante KV.
const MaxListLimit = 1000

// recordMeta es la metadata guardada junto a cada record.
type recordMeta struct {
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

type recordRepo struct{ c *Connection }

var _ repository.RecordRepository = (*recordRepo)(nil)

func recordPrefix(slug string) string { return "records/" + slug + "/" }

func recordKey(slug, id string) string { return recordPrefix(slug) + id }

func (r *recordRepo) MaxLimit() int { return MaxListLimit }

func (r *recordRepo) Get(ctx context.Context, slug, id string) (*repository.Record, error) {
	rec, err := r.Inspect(ctx, slug, id)
	if err != nil {
		return nil, err
	}
	if !rec.Live() {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (r *recordRepo) Inspect(ctx context.Context, slug, id string) (*repository.Record, error) {
	e, err := r.c.ns.Get(ctx, recordKey(slug, id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("records: get %s/%s: %w", slug, id, err)
	}
	rec, err := decodeRecord(slug, id, e)
	if err != nil {
		return nil, fmt.Errorf("records: get %s/%s: %w", slug, id, err)
	}
	return rec, nil
}

func (r *recordRepo) List(ctx context.Context, slug string, opts repository.ListOptions) (*repository.RecordPage, error) {
	limit := repository.ClampLimit(opts.Limit, MaxListLimit)
	prefix := recordPrefix(slug)
	cursor := opts.Cursor

	page := &repository.RecordPage{Records: []repository.Record{}}
	for {
		keys, next, err := r.c.ns.List(ctx, prefix, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("records: list %s: %w", slug, err)
		}

		for _, k := range keys {
			var meta recordMeta
			if err := json.Unmarshal(k.Metadata, &meta); err != nil || meta.DeletedAt != nil {
				continue
			}
			id := strings.TrimPrefix(k.Name, prefix)
			rec, err := r.Get(ctx, slug, id)
			if repository.IsNotFound(err) {
				// borrado o expirado entre el listado y la lectura
				continue
			}
			if err != nil {
				return nil, err
			}
			page.Records = append(page.Records, *rec)
		}

		if next == "" {
			return page, nil
		}
		// Un lote sin records vivos no corta la paginación: se sigue escaneando.
		if len(page.Records) > 0 {
			page.NextCursor = &next
			return page, nil
		}
		cursor = next
	}
}

func (r *recordRepo) Insert(ctx context.Context, slug, id string, data repository.Data, version int) (*repository.Record, error) {
	existing, err := r.Inspect(ctx, slug, id)
	switch {
	case err == nil && existing.Live():
		return nil, repository.ErrConflict
	case err != nil && !repository.IsNotFound(err):
		return nil, err
	}

	now := r.c.now()
	rec := &repository.Record{
		ID:         id,
		Collection: slug,
		Data:       data.Clone(),
		Version:    version,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.put(ctx, rec, 0); err != nil {
		return nil, fmt.Errorf("records: insert %s/%s: %w", slug, id, err)
	}
	return rec, nil
}

func (r *recordRepo) Update(ctx context.Context, slug, id string, data repository.Data, version int) (*repository.Record, error) {
	old, err := r.Get(ctx, slug, id)
	if err != nil {
		return nil, err
	}
	rec := &repository.Record{
		ID:         id,
		Collection: slug,
		Data:       data.Clone(),
		Version:    version,
		CreatedAt:  old.CreatedAt,
		UpdatedAt:  r.c.now(),
	}
	if err := r.put(ctx, rec, 0); err != nil {
		return nil, fmt.Errorf("records: update %s/%s: %w", slug, id, err)
	}
	return rec, nil
}

func (r *recordRepo) SoftDelete(ctx context.Context, slug, id string) error {
	rec, err := r.Get(ctx, slug, id)
	if err != nil {
		return err
	}
	now := r.c.now()
	rec.DeletedAt = &now
	if err := r.put(ctx, rec, r.c.deletedTTL); err != nil {
		return fmt.Errorf("records: delete %s/%s: %w", slug, id, err)
	}
	return nil
}

func (r *recordRepo) put(ctx context.Context, rec *repository.Record, ttl time.Duration) error {
	d := rec.Data
	if d == nil {
		d = repository.Data{}
	}
	value, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: data is not JSON-encodable: %v", repository.ErrInvalidInput, err)
	}
	meta, err := json.Marshal(recordMeta{
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		DeletedAt: rec.DeletedAt,
	})
	if err != nil {
		return err
	}
	return r.c.ns.Put(ctx, recordKey(rec.Collection, rec.ID), Entry{Value: value, Metadata: meta}, ttl)
}

func decodeRecord(slug, id string, e Entry) (*repository.Record, error) {
	var meta recordMeta
	if err := json.Unmarshal(e.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	data := repository.Data{}
	if len(e.Value) > 0 {
		if err := json.Unmarshal(e.Value, &data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &repository.Record{
		ID:         id,
		Collection: slug,
		Data:       data,
		Version:    meta.Version,
		CreatedAt:  meta.CreatedAt.UTC(),
		UpdatedAt:  meta.UpdatedAt.UTC(),
		DeletedAt:  meta.DeletedAt,
	}, nil
}
