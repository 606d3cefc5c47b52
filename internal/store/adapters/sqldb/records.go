package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// recordRepo implementa repository.RecordRepository sobre la tabla global records.
type recordRepo struct{ c *Connection }

var _ repository.RecordRepository = (*recordRepo)(nil)

const recordColumns = `id, collection, data, version, created_at, updated_at, deleted_at`

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
	row := r.c.queryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? AND id = ?`,
		slug, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("records: get %s/%s: %w", slug, id, err)
	}
	return rec, nil
}

func (r *recordRepo) List(ctx context.Context, slug string, opts repository.ListOptions) (*repository.RecordPage, error) {
	limit := repository.ClampLimit(opts.Limit, MaxListLimit)

	rows, err := r.c.query(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE collection = ? AND deleted_at IS NULL AND id > ?
		ORDER BY id ASC
		LIMIT ?`,
		slug, opts.Cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("records: list %s: %w", slug, err)
	}
	defer rows.Close()

	page := &repository.RecordPage{Records: make([]repository.Record, 0, limit)}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("records: list %s: %w", slug, err)
		}
		page.Records = append(page.Records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list %s: %w", slug, err)
	}

	// Página llena → puede haber más; el cursor es el id de la última fila.
	if len(page.Records) == limit {
		last := page.Records[len(page.Records)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

func (r *recordRepo) Insert(ctx context.Context, slug, id string, data repository.Data, version int) (*repository.Record, error) {
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	now := r.c.now()

	// Un record soft-deleted en la misma key se reemplaza; uno vivo es conflicto.
	res, err := r.c.exec(ctx, `
		INSERT INTO records (id, collection, data, version, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			version = excluded.version,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL
		WHERE records.deleted_at IS NOT NULL`,
		id, slug, payload, version, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("records: insert %s/%s: %w", slug, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.ErrConflict
	}

	return &repository.Record{
		ID:         id,
		Collection: slug,
		Data:       data.Clone(),
		Version:    version,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *recordRepo) Update(ctx context.Context, slug, id string, data repository.Data, version int) (*repository.Record, error) {
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	now := r.c.now()

	tx, err := r.c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("records: update %s/%s: %w", slug, id, err)
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, r.c.dialect.rebind(`
		SELECT created_at FROM records
		WHERE collection = ? AND id = ? AND deleted_at IS NULL`),
		slug, id,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("records: update %s/%s: %w", slug, id, err)
	}

	if _, err := tx.ExecContext(ctx, r.c.dialect.rebind(`
		UPDATE records SET data = ?, version = ?, updated_at = ?
		WHERE collection = ? AND id = ?`),
		payload, version, now, slug, id,
	); err != nil {
		return nil, fmt.Errorf("records: update %s/%s: %w", slug, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("records: update %s/%s: %w", slug, id, err)
	}

	return &repository.Record{
		ID:         id,
		Collection: slug,
		Data:       data.Clone(),
		Version:    version,
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  now,
	}, nil
}

func (r *recordRepo) SoftDelete(ctx context.Context, slug, id string) error {
	res, err := r.c.exec(ctx, `
		UPDATE records SET deleted_at = ?
		WHERE collection = ? AND id = ? AND deleted_at IS NULL`,
		r.c.now(), slug, id,
	)
	if err != nil {
		return fmt.Errorf("records: delete %s/%s: %w", slug, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("records: delete %s/%s: %w", slug, id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*repository.Record, error) {
	var (
		rec       repository.Record
		raw       []byte
		deletedAt sql.NullTime
	)
	if err := s.Scan(&rec.ID, &rec.Collection, &raw, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}
	rec.Data = data
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		rec.DeletedAt = &t
	}
	return &rec, nil
}

func encodeData(d repository.Data) (string, error) {
	if d == nil {
		d = repository.Data{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("%w: data is not JSON-encodable: %v", repository.ErrInvalidInput, err)
	}
	return string(b), nil
}

func decodeData(b []byte) (repository.Data, error) {
	d := repository.Data{}
	if len(b) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return d, nil
}
