package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/config"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct-horse-battery"
)

func testCollections() []collection.Collection {
	return []collection.Collection{
		{
			Slug:   "posts",
			Fields: []collection.Field{{Name: "title", Kind: collection.KindText, Required: true}, {Name: "body", Kind: collection.KindText}},
			Access: collection.Access{Read: []string{collection.RolePublic}, Create: []string{"editor"}, Update: []string{"editor"}},
		},
		{Slug: "settings", Unique: true},
		{Slug: "events"},
		{Slug: "vetoed"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CACHE_KIND", "memory")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("RATE_ENABLED", "false")

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(context.Background(), cfg,
		WithCollections(testCollections()...),
		WithCollectionOptions(
			collection.WithHooks("events", collection.Hooks{
				AfterCreate: func(context.Context, repository.Record) error { return errors.New("webhook unreachable") },
			}),
			collection.WithHooks("vetoed", collection.Hooks{
				BeforeCreate: func(context.Context, repository.Data) (repository.Data, error) {
					return nil, errors.New("not today")
				},
			}),
		),
		WithMetricsRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type response struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, rd)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	out := response{Code: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.Body), rec.Body.String())
	}
	return out
}

func install(t *testing.T, h http.Handler) string {
	t.Helper()
	res := do(t, h, http.MethodPost, "/install", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	return signIn(t, h, adminEmail, adminPassword)
}

func signIn(t *testing.T, h http.Handler, email, pw string) string {
	t.Helper()
	res := do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	tok, _ := res.Body["token"].(string)
	require.NotEmpty(t, tok)
	assert.Equal(t, tok, res.Header.Get("X-Auth-Token"))
	return tok
}

func record(t *testing.T, res response) map[string]any {
	t.Helper()
	rec, ok := res.Body["record"].(map[string]any)
	require.True(t, ok, "missing record in %v", res.Body)
	return rec
}

func TestInstallAndSignIn(t *testing.T) {
	h := newTestApp(t).Handler
	install(t, h)

	res := do(t, h, http.MethodPost, "/install", "", map[string]string{"email": "other@example.com", "password": adminPassword})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": "ghost@example.com", "password": adminPassword})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": adminEmail})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSignOutRevokesToken(t *testing.T) {
	h := newTestApp(t).Handler
	tok := install(t, h)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/users", tok, nil).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/auth/signout", tok, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/users", tok, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/auth/signout", "", nil).Code)
}

func TestRecordLifecycle(t *testing.T) {
	h := newTestApp(t).Handler
	tok := install(t, h)

	// lectura pública, escritura protegida
	res := do(t, h, http.MethodGet, "/data/posts", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, res.Body["records"])
	assert.Nil(t, res.Body["cursor"])

	res = do(t, h, http.MethodPost, "/data/posts", "", map[string]any{"data": map[string]any{"title": "x"}})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = do(t, h, http.MethodPost, "/data/posts", "not-a-jwt", map[string]any{"data": map[string]any{"title": "x"}})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// create
	res = do(t, h, http.MethodPost, "/data/posts", tok, map[string]any{"data": map[string]any{"title": "hello"}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	created := record(t, res)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "posts", created["collection"])
	assert.Nil(t, res.Body["hook_error"])

	// get
	res = do(t, h, http.MethodGet, "/data/posts/"+id, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "hello", record(t, res)["data"].(map[string]any)["title"])

	// update (merge superficial)
	res = do(t, h, http.MethodPut, "/data/posts/"+id, tok, map[string]any{"data": map[string]any{"body": "world"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	data := record(t, res)["data"].(map[string]any)
	assert.Equal(t, "hello", data["title"])
	assert.Equal(t, "world", data["body"])

	// delete
	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/data/posts/"+id, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/data/posts/"+id, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/data/posts/"+id, tok, nil).Code)
}

func TestRecordValidation(t *testing.T) {
	h := newTestApp(t).Handler
	tok := install(t, h)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"non numeric limit", http.MethodGet, "/data/posts?limit=abc", nil, http.StatusBadRequest},
		{"zero limit", http.MethodGet, "/data/posts?limit=0", nil, http.StatusBadRequest},
		{"negative limit", http.MethodGet, "/data/posts?limit=-3", nil, http.StatusBadRequest},
		{"unknown collection", http.MethodGet, "/data/nope", nil, http.StatusNotFound},
		{"missing data envelope", http.MethodPost, "/data/posts", map[string]any{"title": "x"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/data/posts", map[string]any{"data": map[string]any{"title": "x", "color": "red"}}, http.StatusBadRequest},
		{"missing required", http.MethodPost, "/data/posts", map[string]any{"data": map[string]any{"body": "x"}}, http.StatusBadRequest},
		{"update without id", http.MethodPut, "/data/posts", map[string]any{"data": map[string]any{}}, http.StatusMethodNotAllowed},
		{"update missing record", http.MethodPut, "/data/posts/nope", map[string]any{"data": map[string]any{}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(t, h, tc.method, tc.path, tok, tc.body).Code)
		})
	}
}

func TestListPagination(t *testing.T) {
	h := newTestApp(t).Handler
	tok := install(t, h)

	for _, title := range []string{"a", "b", "c"} {
		res := do(t, h, http.MethodPost, "/data/posts", tok, map[string]any{"data": map[string]any{"title": title}})
		require.Equal(t, http.StatusCreated, res.Code)
	}

	res := do(t, h, http.MethodGet, "/data/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Body["records"], 2)
	cursor, ok := res.Body["cursor"].(string)
	require.True(t, ok, "expected a cursor")

	res = do(t, h, http.MethodGet, "/data/posts?limit=2&cursor="+cursor, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Body["records"], 1)
	assert.Nil(t, res.Body["cursor"])
}

func TestRolesOverHTTP(t *testing.T) {
	h := newTestApp(t).Handler
	admin := install(t, h)

	res := do(t, h, http.MethodPost, "/users", admin, map[string]any{
		"name": "Ed", "email": "ed@example.com", "password": "editor-password", "roles": []string{"editor"},
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	editor := signIn(t, h, "ed@example.com", "editor-password")

	res = do(t, h, http.MethodPost, "/data/posts", editor, map[string]any{"data": map[string]any{"title": "by editor"}})
	require.Equal(t, http.StatusCreated, res.Code)
	id := record(t, res)["id"].(string)

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/data/posts/"+id, editor, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/users", editor, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/users", "", nil).Code)

	res = do(t, h, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	list := res.Body["users"].([]any)
	assert.Len(t, list, 2)
	for _, u := range list {
		_, hasHash := u.(map[string]any)["passwordHash"]
		assert.False(t, hasHash)
		_, hasPw := u.(map[string]any)["password"]
		assert.False(t, hasPw)
	}
}

func TestRoleChangeAppliesToLiveSessions(t *testing.T) {
	h := newTestApp(t).Handler
	admin := install(t, h)

	res := do(t, h, http.MethodPost, "/users", admin, map[string]any{
		"name": "Ed", "email": "ed@example.com", "password": "editor-password", "roles": []string{"editor"},
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	userID := res.Body["user"].(map[string]any)["id"].(string)
	editor := signIn(t, h, "ed@example.com", "editor-password")

	post := map[string]any{"data": map[string]any{"title": "x"}}
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/data/posts", editor, post).Code)

	// el principal ya está cacheado; degradar el rol debe aplicar en el próximo request
	res = do(t, h, http.MethodPut, "/users/"+userID, admin, map[string]any{"roles": []string{"viewer"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/data/posts", editor, post).Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/users/"+userID, admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/data/posts", editor, post).Code)
}

func TestSingletonOverHTTP(t *testing.T) {
	h := newTestApp(t).Handler
	tok := install(t, h)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/data/settings", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, h, http.MethodPut, "/data/settings", tok, map[string]any{"data": map[string]any{"theme": "dark"}}).Code)

	res := do(t, h, http.MethodPost, "/data/settings", tok, map[string]any{"data": map[string]any{"theme": "light"}})
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, collection.UniqueID, record(t, res)["id"])

	res = do(t, h, http.MethodPost, "/data/settings", tok, map[string]any{"data": map[string]any{"theme": "dark"}})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(t, h, http.MethodPut, "/data/settings", tok, map[string]any{"data": map[string]any{"theme": "dark"}})
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodGet, "/data/settings/whatever", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "dark", record(t, res)["data"].(map[string]any)["theme"])

	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/data/settings", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/data/settings", tok, nil).Code)
}

func TestHookFailuresOverHTTP(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler
	tok := install(t, h)

	// post-hook: la escritura se mantiene y la respuesta lleva hook_error
	res := do(t, h, http.MethodPost, "/data/events", tok, map[string]any{"data": map[string]any{"kind": "signup"}})
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body["hook_error"], "webhook unreachable")
	id := record(t, res)["id"].(string)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/data/events/"+id, tok, nil).Code)

	// pre-hook: veto sin escritura
	res = do(t, h, http.MethodPost, "/data/vetoed", tok, map[string]any{"data": map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, "HOOK_REJECTED", res.Body["code"])

	res = do(t, h, http.MethodGet, "/data/vetoed", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, res.Body["records"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestApp(t).Handler

	res := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, map[string]any{"store": "up", "cache": "up"}, res.Body["checks"])

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/nowhere", "", nil).Code)
}
