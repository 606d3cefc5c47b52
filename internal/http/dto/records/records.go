// Package records define los DTOs de /data.
package records

import (
	"time"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

// DataRequest body de create/update: {"data": {...}}.
type DataRequest struct {
	Data repository.Data `json:"data"`
}

// Record representación pública de un record. DeletedAt nunca se expone.
type Record struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       repository.Data `json:"data"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// RecordResponse {record, hook_error?}.
type RecordResponse struct {
	Message   string  `json:"message"`
	Record    *Record `json:"record,omitempty"`
	HookError *string `json:"hook_error,omitempty"`
}

// ListResponse {records, cursor}. Cursor null en la última página.
type ListResponse struct {
	Records []Record `json:"records"`
	Cursor  *string  `json:"cursor"`
}

// FromRecord mapea el record de dominio.
func FromRecord(rec *repository.Record) *Record {
	if rec == nil {
		return nil
	}
	data := rec.Data
	if data == nil {
		data = repository.Data{}
	}
	return &Record{
		ID:         rec.ID,
		Collection: rec.Collection,
		Data:       data,
		Version:    rec.Version,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

// FromPage mapea una página de records.
func FromPage(page *repository.RecordPage) ListResponse {
	out := ListResponse{Records: make([]Record, 0, len(page.Records))}
	for i := range page.Records {
		out.Records = append(out.Records, *FromRecord(&page.Records[i]))
	}
	out.Cursor = page.NextCursor
	return out
}
