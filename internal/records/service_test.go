package records_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellocms/internal/access"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/records"
	"github.com/dropDatabas3/hellocms/internal/store/adapters/kv"
)

var (
	admin  = &access.Principal{ID: "u-admin", Roles: []string{"admin"}}
	editor = &access.Principal{ID: "u-editor", Roles: []string{"editor"}}
	reader = &access.Principal{ID: "u-reader", Roles: []string{"reader"}}
)

// spyRepo cuenta las llamadas que llegan al store.
type spyRepo struct {
	repository.RecordRepository
	calls   int
	updates int
}

func (s *spyRepo) Get(ctx context.Context, slug, id string) (*repository.Record, error) {
	s.calls++
	return s.RecordRepository.Get(ctx, slug, id)
}

func (s *spyRepo) List(ctx context.Context, slug string, o repository.ListOptions) (*repository.RecordPage, error) {
	s.calls++
	return s.RecordRepository.List(ctx, slug, o)
}

func (s *spyRepo) Insert(ctx context.Context, slug, id string, d repository.Data, v int) (*repository.Record, error) {
	s.calls++
	return s.RecordRepository.Insert(ctx, slug, id, d, v)
}

func (s *spyRepo) Update(ctx context.Context, slug, id string, d repository.Data, v int) (*repository.Record, error) {
	s.calls++
	s.updates++
	return s.RecordRepository.Update(ctx, slug, id, d, v)
}

func (s *spyRepo) SoftDelete(ctx context.Context, slug, id string) error {
	s.calls++
	return s.RecordRepository.SoftDelete(ctx, slug, id)
}

func newRepo(t *testing.T) *spyRepo {
	t.Helper()
	conn := kv.NewConnection("memory", kv.NewMemoryNamespace(), 0)
	t.Cleanup(func() { conn.Close() })
	return &spyRepo{RecordRepository: conn.Records()}
}

func newService(t *testing.T, repo repository.RecordRepository, cols []collection.Collection, opts ...collection.Option) *records.Service {
	t.Helper()
	reg, err := collection.NewRegistry(cols, opts...)
	require.NoError(t, err)
	return records.NewService(reg, repo)
}

func as(p *access.Principal) context.Context {
	return access.WithPrincipal(context.Background(), p)
}

func postsCollection(version int) collection.Collection {
	return collection.Collection{
		Slug:    "posts",
		Version: version,
		Access: collection.Access{
			Read:   []string{"public"},
			Create: []string{"editor"},
			Update: []string{"editor"},
			Delete: []string{"editor"},
		},
	}
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func TestUpdateMigratesStaleRecord(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)

	v1 := newService(t, repo, []collection.Collection{postsCollection(1)})
	rec, err := v1.Create(ctx, "posts", repository.Data{"title": "Hello World"})
	require.NoError(t, err)
	require.Equal(t, 1, rec.Version)

	var order []string
	var seenByBeforeUpdate repository.Data
	v2 := newService(t, repo, []collection.Collection{postsCollection(2)},
		collection.WithHooks("posts", collection.Hooks{
			NewVersion: func(_ context.Context, old repository.Record, from, to int) (repository.Data, error) {
				order = append(order, "newVersion")
				assert.Equal(t, 1, from)
				assert.Equal(t, 2, to)
				d := old.Data.Clone()
				d["slug"] = slugify(old.Data["title"].(string))
				return d, nil
			},
			BeforeUpdate: func(_ context.Context, _ repository.Record, data repository.Data) (repository.Data, error) {
				order = append(order, "beforeUpdate")
				seenByBeforeUpdate = data.Clone()
				return data, nil
			},
		}))

	updated, err := v2.Update(ctx, "posts", rec.ID, repository.Data{"title": "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"newVersion", "beforeUpdate"}, order)
	assert.Equal(t, "hello-world", seenByBeforeUpdate["slug"], "beforeUpdate receives the migrated payload")
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, repository.Data{"title": "x", "slug": "hello-world"}, updated.Data)
	assert.True(t, updated.CreatedAt.Equal(rec.CreatedAt))

	got, err := v2.Get(ctx, "posts", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, repository.Data{"title": "x", "slug": "hello-world"}, got.Data)

	// ya está en la versión declarada: no se vuelve a migrar
	order = nil
	_, err = v2.Update(ctx, "posts", rec.ID, repository.Data{"title": "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beforeUpdate"}, order)
}

func TestUpdateWithoutMigrationHookStampsDeclaredVersion(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)

	rec, err := newService(t, repo, []collection.Collection{postsCollection(0)}).
		Create(ctx, "posts", repository.Data{"title": "a", "body": "b"})
	require.NoError(t, err)

	updated, err := newService(t, repo, []collection.Collection{postsCollection(3)}).
		Update(ctx, "posts", rec.ID, repository.Data{"title": "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.Equal(t, repository.Data{"title": "c", "body": "b"}, updated.Data)
}

func TestBeforeUpdateFailureWritesNothing(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)
	veto := errors.New("title is locked")

	svc := newService(t, repo, []collection.Collection{postsCollection(2)},
		collection.WithHooks("posts", collection.Hooks{
			NewVersion: func(_ context.Context, old repository.Record, _, _ int) (repository.Data, error) {
				d := old.Data.Clone()
				d["migrated"] = true
				return d, nil
			},
			BeforeUpdate: func(context.Context, repository.Record, repository.Data) (repository.Data, error) {
				return nil, veto
			},
		}))

	rec, err := newService(t, repo, []collection.Collection{postsCollection(1)}).
		Create(ctx, "posts", repository.Data{"title": "a"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = svc.Update(ctx, "posts", rec.ID, repository.Data{"title": "b"})
	require.Error(t, err)

	he, ok := records.AsHookError(err)
	require.True(t, ok)
	assert.Equal(t, records.HookBeforeUpdate, he.Hook)
	assert.ErrorIs(t, err, veto)
	assert.Zero(t, repo.updates)

	got, err := svc.Get(ctx, "posts", rec.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt), "updatedAt unchanged")
	assert.Equal(t, 1, got.Version, "migration discarded")
	assert.Equal(t, repository.Data{"title": "a"}, got.Data)
}

func TestNewVersionFailureAbortsUpdate(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)
	called := false

	rec, err := newService(t, repo, []collection.Collection{postsCollection(1)}).
		Create(ctx, "posts", repository.Data{"title": "a"})
	require.NoError(t, err)

	svc := newService(t, repo, []collection.Collection{postsCollection(2)},
		collection.WithHooks("posts", collection.Hooks{
			NewVersion: func(context.Context, repository.Record, int, int) (repository.Data, error) {
				return nil, errors.New("cannot migrate")
			},
			BeforeUpdate: func(_ context.Context, _ repository.Record, d repository.Data) (repository.Data, error) {
				called = true
				return d, nil
			},
		}))

	_, err = svc.Update(ctx, "posts", rec.ID, repository.Data{"title": "b"})
	he, ok := records.AsHookError(err)
	require.True(t, ok)
	assert.Equal(t, records.HookNewVersion, he.Hook)
	assert.False(t, called)
	assert.Zero(t, repo.updates)
}

func TestAfterUpdateFailureKeepsWrite(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)

	svc := newService(t, repo, []collection.Collection{postsCollection(0)},
		collection.WithHooks("posts", collection.Hooks{
			AfterUpdate: func(_ context.Context, old, updated repository.Record) error {
				assert.Equal(t, "a", old.Data["title"])
				assert.Equal(t, "b", updated.Data["title"])
				return errors.New("webhook down")
			},
		}))

	rec, err := svc.Create(ctx, "posts", repository.Data{"title": "a"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "posts", rec.ID, repository.Data{"title": "b"})
	phe, ok := records.AsPostHookError(err)
	require.True(t, ok)
	assert.Equal(t, records.HookAfterUpdate, phe.Hook)
	require.NotNil(t, updated)
	assert.Equal(t, updated, phe.Record)

	got, err := svc.Get(ctx, "posts", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Data["title"])
}

func TestUpdateMissingRecordRunsNoHooks(t *testing.T) {
	called := false
	svc := newService(t, newRepo(t), []collection.Collection{postsCollection(1)},
		collection.WithHooks("posts", collection.Hooks{
			NewVersion: func(context.Context, repository.Record, int, int) (repository.Data, error) {
				called = true
				return nil, nil
			},
			BeforeUpdate: func(_ context.Context, _ repository.Record, d repository.Data) (repository.Data, error) {
				called = true
				return d, nil
			},
		}))

	_, err := svc.Update(as(editor), "posts", "missing", repository.Data{"title": "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.True(t, records.IsNotFound(err))
	assert.False(t, called)
}

func TestCreateHooks(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)
	var created repository.Record

	svc := newService(t, repo, []collection.Collection{postsCollection(1)},
		collection.WithHooks("posts", collection.Hooks{
			BeforeCreate: func(_ context.Context, d repository.Data) (repository.Data, error) {
				if d["title"] == "" {
					return nil, errors.New("title required")
				}
				d["slug"] = slugify(d["title"].(string))
				return d, nil
			},
			AfterCreate: func(_ context.Context, rec repository.Record) error {
				created = rec
				return nil
			},
		}))

	rec, err := svc.Create(ctx, "posts", repository.Data{"title": "Hola Mundo"})
	require.NoError(t, err)
	assert.Equal(t, "hola-mundo", rec.Data["slug"])
	assert.Equal(t, rec.ID, created.ID)
	assert.Equal(t, 1, rec.Version)

	_, err = svc.Create(ctx, "posts", repository.Data{"title": ""})
	he, ok := records.AsHookError(err)
	require.True(t, ok)
	assert.Equal(t, records.HookBeforeCreate, he.Hook)

	page, err := svc.List(ctx, "posts", "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Records, 1, "vetoed create wrote nothing")
}

func TestHookPanicBecomesHookError(t *testing.T) {
	svc := newService(t, newRepo(t), []collection.Collection{postsCollection(0)},
		collection.WithHooks("posts", collection.Hooks{
			BeforeCreate: func(context.Context, repository.Data) (repository.Data, error) {
				panic("boom")
			},
		}))

	_, err := svc.Create(as(editor), "posts", repository.Data{})
	he, ok := records.AsHookError(err)
	require.True(t, ok)
	assert.Contains(t, he.Error(), "boom")
}

func TestDeleteHooksAndDoubleDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := as(editor)
	var order []string

	svc := newService(t, repo, []collection.Collection{postsCollection(0)},
		collection.WithHooks("posts", collection.Hooks{
			BeforeDelete: func(_ context.Context, old repository.Record) error {
				order = append(order, "beforeDelete")
				if old.Data["pinned"] == true {
					return errors.New("pinned posts cannot be deleted")
				}
				return nil
			},
			AfterDelete: func(context.Context, repository.Record) error {
				order = append(order, "afterDelete")
				return nil
			},
		}))

	pinned, err := svc.Create(ctx, "posts", repository.Data{"pinned": true})
	require.NoError(t, err)
	_, ok := records.AsHookError(svc.Delete(ctx, "posts", pinned.ID))
	assert.True(t, ok)
	_, err = svc.Get(ctx, "posts", pinned.ID)
	assert.NoError(t, err)

	order = nil
	rec, err := svc.Create(ctx, "posts", repository.Data{"title": "bye"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "posts", rec.ID))
	assert.Equal(t, []string{"beforeDelete", "afterDelete"}, order)

	_, err = svc.Get(ctx, "posts", rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	order = nil
	err = svc.Delete(ctx, "posts", rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, order, "no hooks for a missing record")

	page, err := svc.List(ctx, "posts", "", 0)
	require.NoError(t, err)
	for _, r := range page.Records {
		assert.NotEqual(t, rec.ID, r.ID)
	}
}

func TestAfterDeleteFailureKeepsDelete(t *testing.T) {
	svc := newService(t, newRepo(t), []collection.Collection{postsCollection(0)},
		collection.WithHooks("posts", collection.Hooks{
			AfterDelete: func(context.Context, repository.Record) error { return errors.New("cdn purge failed") },
		}))
	ctx := as(editor)

	rec, err := svc.Create(ctx, "posts", repository.Data{})
	require.NoError(t, err)

	phe, ok := records.AsPostHookError(svc.Delete(ctx, "posts", rec.ID))
	require.True(t, ok)
	assert.Equal(t, records.HookAfterDelete, phe.Hook)

	_, err = svc.Get(ctx, "posts", rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAfterDeleteSeesDeletedAt(t *testing.T) {
	var seen repository.Record
	svc := newService(t, newRepo(t), []collection.Collection{postsCollection(0)},
		collection.WithHooks("posts", collection.Hooks{
			AfterDelete: func(_ context.Context, old repository.Record) error {
				seen = old
				return errors.New("cdn purge failed")
			},
		}))
	ctx := as(editor)

	rec, err := svc.Create(ctx, "posts", repository.Data{"title": "bye"})
	require.NoError(t, err)

	phe, ok := records.AsPostHookError(svc.Delete(ctx, "posts", rec.ID))
	require.True(t, ok)

	require.NotNil(t, seen.DeletedAt)
	require.NotNil(t, phe.Record)
	require.NotNil(t, phe.Record.DeletedAt)
	assert.True(t, seen.DeletedAt.Equal(*phe.Record.DeletedAt))
	assert.Equal(t, rec.ID, seen.ID)
	assert.Equal(t, "bye", seen.Data["title"])
	assert.Equal(t, seen.Data, phe.Record.Data)
}

func TestSingletonCollection(t *testing.T) {
	settings := collection.Collection{
		Slug:   "settings",
		Unique: true,
		Access: collection.Access{Read: []string{"public"}},
	}
	svc := newService(t, newRepo(t), []collection.Collection{settings})
	ctx := as(admin)

	rec, err := svc.Create(ctx, "settings", repository.Data{"theme": "dark"})
	require.NoError(t, err)
	assert.Equal(t, collection.UniqueID, rec.ID)

	_, err = svc.Create(ctx, "settings", repository.Data{"theme": "light"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// cualquier id se reemplaza por el fijo
	got, err := svc.Get(context.Background(), "settings", "whatever")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Data["theme"])

	_, err = svc.Update(ctx, "settings", "other-id", repository.Data{"theme": "light"})
	require.NoError(t, err)

	page, err := svc.List(ctx, "settings", "", 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "light", page.Records[0].Data["theme"])

	require.NoError(t, svc.Delete(ctx, "settings", ""))
	_, err = svc.Create(ctx, "settings", repository.Data{"theme": "blue"})
	assert.NoError(t, err, "singleton can be recreated after delete")
}

func TestAccessIsCheckedBeforeStorage(t *testing.T) {
	repo := newRepo(t)
	secrets := collection.Collection{Slug: "secrets", Access: collection.Access{Read: []string{"admin"}}}
	svc := newService(t, repo, []collection.Collection{secrets, postsCollection(0)})

	_, err := svc.Get(context.Background(), "secrets", "x")
	assert.ErrorIs(t, err, records.ErrUnauthorized)

	_, err = svc.Get(as(reader), "secrets", "x")
	assert.ErrorIs(t, err, records.ErrForbidden)

	_, err = svc.Create(context.Background(), "posts", repository.Data{})
	assert.ErrorIs(t, err, records.ErrUnauthorized)

	err = svc.Delete(as(reader), "posts", "x")
	assert.ErrorIs(t, err, records.ErrForbidden)

	_, err = svc.List(as(editor), "nope", "", 0)
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.True(t, records.IsNotFound(err))

	assert.Zero(t, repo.calls, "denied requests never reach the store")

	_, err = svc.Get(as(admin), "secrets", "x")
	assert.ErrorIs(t, err, repository.ErrNotFound, "admin passes access and hits the store")
	assert.Equal(t, 1, repo.calls)

	page, err := svc.List(context.Background(), "posts", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestCreateAppliesDefaultsAndChecksFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	articles := collection.Collection{
		Slug: "articles",
		Fields: []collection.Field{
			{Name: "title", Kind: collection.KindText, Required: true},
			{Name: "views", Kind: collection.KindNumber, Default: 0},
			{Name: "publishedAt", Kind: collection.KindDate, Default: collection.DateNow},
		},
	}
	reg, err := collection.NewRegistry([]collection.Collection{articles})
	require.NoError(t, err)
	n := 0
	svc := records.NewService(reg, newRepo(t),
		records.WithClock(func() time.Time { return now }),
		records.WithIDGenerator(func() (string, error) {
			n++
			return fmt.Sprintf("id-%03d", n), nil
		}),
	)
	ctx := as(admin)

	rec, err := svc.Create(ctx, "articles", repository.Data{"title": "t"})
	require.NoError(t, err)
	assert.Equal(t, "id-001", rec.ID)
	assert.EqualValues(t, 0, rec.Data["views"])
	assert.NotNil(t, rec.Data["publishedAt"])

	_, err = svc.Create(ctx, "articles", repository.Data{"views": 3})
	assert.ErrorIs(t, err, records.ErrValidation)
	assert.ErrorIs(t, err, collection.ErrInvalidData)

	_, err = svc.Create(ctx, "articles", repository.Data{"title": "t", "color": "red"})
	assert.ErrorIs(t, err, records.ErrValidation)

	_, err = svc.Update(ctx, "articles", rec.ID, repository.Data{"views": 10})
	assert.NoError(t, err, "partial update does not require title")

	_, err = svc.Update(ctx, "articles", rec.ID, repository.Data{"color": "red"})
	assert.ErrorIs(t, err, records.ErrValidation)

	_, err = svc.List(ctx, "articles", "", -1)
	assert.ErrorIs(t, err, records.ErrValidation)
}

func TestRecordIDsAreSortable(t *testing.T) {
	svc := newService(t, newRepo(t), []collection.Collection{postsCollection(0)})
	ctx := as(editor)

	var prev string
	for i := 0; i < 20; i++ {
		rec, err := svc.Create(ctx, "posts", repository.Data{"n": i})
		require.NoError(t, err)
		assert.Greater(t, rec.ID, prev)
		prev = rec.ID
	}
}
