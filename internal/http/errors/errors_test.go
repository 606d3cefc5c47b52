package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellocms/internal/auth"
	"github.com/dropDatabas3/hellocms/internal/bootstrap"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/records"
	"github.com/dropDatabas3/hellocms/internal/users"
)

func TestFromDomainStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"record not found", fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound},
		{"unknown collection", collection.ErrNotFound, http.StatusNotFound},
		{"unauthenticated", records.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid session", auth.ErrInvalidSession, http.StatusUnauthorized},
		{"bad password", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", records.ErrForbidden, http.StatusForbidden},
		{"validation", fmt.Errorf("%w: limit", records.ErrValidation), http.StatusBadRequest},
		{"invalid user", users.ErrInvalid, http.StatusBadRequest},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"installed", bootstrap.ErrAlreadyInstalled, http.StatusConflict},
		{"pre-hook veto", &records.HookError{Hook: "beforeCreate", Err: stderrors.New("nope")}, http.StatusUnprocessableEntity},
		{"hook returned not found", &records.HookError{Hook: "beforeDelete", Err: repository.ErrNotFound}, http.StatusUnprocessableEntity},
		{"storage", &records.StorageError{Op: "insert", Err: stderrors.New("disk full")}, http.StatusInternalServerError},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromDomain(tc.err).HTTPStatus)
		})
	}
}

func TestFromDomainHidesInternalDetail(t *testing.T) {
	appErr := FromDomain(&records.StorageError{Op: "insert", Err: stderrors.New("password=hunter2")})
	assert.Empty(t, appErr.Detail)
	assert.ErrorContains(t, appErr, "hunter2") // la causa queda para logs
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("%w: unknown fields foo", records.ErrValidation))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.NotEmpty(t, body["error"])
	assert.Contains(t, body["detail"], "unknown fields foo")
}

func TestWithDetailDoesNotMutateBase(t *testing.T) {
	_ = ErrNotFound.WithDetail("x")
	assert.Empty(t, ErrNotFound.Detail)
}
