package sqldb_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/store"
	_ "github.com/dropDatabas3/hellocms/internal/store/adapters/sqldb"
)

func openSQLite(t *testing.T) store.AdapterConnection {
	t.Helper()
	ctx := context.Background()

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "cms.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, ok := conn.(store.Migratable)
	require.True(t, ok, "sqlite connection must be migratable")
	res, err := m.Migrate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.Applied)
	return conn
}

func TestAdaptersRegistered(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite"} {
		a, ok := store.GetAdapter(name)
		require.True(t, ok, name)
		assert.Equal(t, name, a.Name())
	}
}

func TestConnectRequiresDSN(t *testing.T) {
	a, _ := store.GetAdapter("postgres")
	_, err := a.Connect(context.Background(), store.AdapterConfig{})
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openSQLite(t)
	res, err := conn.(store.Migratable).Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.NotEmpty(t, res.Skipped)
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	recs := openSQLite(t).Records()

	created, err := recs.Insert(ctx, "posts", "a1", repository.Data{"title": "Hello"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := recs.Get(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Data["title"])
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))

	_, err = recs.Insert(ctx, "posts", "a1", repository.Data{}, 1)
	assert.ErrorIs(t, err, repository.ErrConflict)

	time.Sleep(2 * time.Millisecond)
	updated, err := recs.Update(ctx, "posts", "a1", repository.Data{"title": "Bye"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	require.NoError(t, recs.SoftDelete(ctx, "posts", "a1"))

	_, err = recs.Get(ctx, "posts", "a1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ghost, err := recs.Inspect(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.False(t, ghost.Live())
	assert.Equal(t, "Bye", ghost.Data["title"])

	assert.ErrorIs(t, recs.SoftDelete(ctx, "posts", "a1"), repository.ErrNotFound)

	_, err = recs.Update(ctx, "posts", "a1", repository.Data{}, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInsertReplacesSoftDeletedRecord(t *testing.T) {
	ctx := context.Background()
	recs := openSQLite(t).Records()

	_, err := recs.Insert(ctx, "settings", "unique", repository.Data{"theme": "dark"}, 0)
	require.NoError(t, err)
	require.NoError(t, recs.SoftDelete(ctx, "settings", "unique"))

	again, err := recs.Insert(ctx, "settings", "unique", repository.Data{"theme": "light"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "light", again.Data["theme"])

	got, err := recs.Get(ctx, "settings", "unique")
	require.NoError(t, err)
	assert.True(t, got.Live())
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	recs := openSQLite(t).Records()

	_, err := recs.Insert(ctx, "posts", "same", repository.Data{"k": "posts"}, 0)
	require.NoError(t, err)
	_, err = recs.Insert(ctx, "pages", "same", repository.Data{"k": "pages"}, 0)
	require.NoError(t, err)

	p, err := recs.Get(ctx, "pages", "same")
	require.NoError(t, err)
	assert.Equal(t, "pages", p.Data["k"])

	page, err := recs.List(ctx, "posts", repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "posts", page.Records[0].Collection)
}

func TestListPaginatesEveryLiveRecordOnce(t *testing.T) {
	ctx := context.Background()
	recs := openSQLite(t).Records()

	for i := 0; i < 25; i++ {
		_, err := recs.Insert(ctx, "posts", fmt.Sprintf("id-%02d", i), repository.Data{"n": i}, 0)
		require.NoError(t, err)
	}
	require.NoError(t, recs.SoftDelete(ctx, "posts", "id-03"))
	require.NoError(t, recs.SoftDelete(ctx, "posts", "id-17"))

	seen := map[string]int{}
	cursor := ""
	pages := 0
	for {
		page, err := recs.List(ctx, "posts", repository.ListOptions{Cursor: cursor, Limit: 5})
		require.NoError(t, err)
		pages++
		for _, r := range page.Records {
			seen[r.ID]++
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
		require.Less(t, pages, 10, "pagination must terminate")
	}

	assert.Len(t, seen, 23)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
	assert.NotContains(t, seen, "id-03")
	assert.NotContains(t, seen, "id-17")
}

func TestListClampsLimit(t *testing.T) {
	ctx := context.Background()
	recs := openSQLite(t).Records()
	assert.Equal(t, 100, recs.MaxLimit())

	for i := 0; i < 12; i++ {
		_, err := recs.Insert(ctx, "posts", fmt.Sprintf("r%02d", i), repository.Data{}, 0)
		require.NoError(t, err)
	}

	page, err := recs.List(ctx, "posts", repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Records, repository.DefaultListLimit)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "r09", *page.NextCursor)

	page, err = recs.List(ctx, "posts", repository.ListOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Records, 12)
	assert.Nil(t, page.NextCursor)
}

func TestUsersAndSessions(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	users := conn.Users()

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u, err := users.Create(ctx, repository.CreateUserInput{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Roles:        []string{"admin", "editor"},
		Config:       map[string]any{"lang": "es"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = users.Create(ctx, repository.CreateUserInput{Email: "ada@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	byEmail, err := users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, []string{"admin", "editor"}, byEmail.Roles)
	assert.Equal(t, "es", byEmail.Config["lang"])

	name := "Ada L."
	upd, err := users.Update(ctx, u.ID, repository.UpdateUserInput{Name: &name, Roles: []string{"editor"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", upd.Name)
	assert.False(t, upd.HasRole("admin"))

	sessions := conn.Sessions()
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, sessions.Create(ctx, repository.Session{ID: "s1", UserID: u.ID, ExpiresAt: exp}))

	s, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)
	assert.True(t, s.ExpiresAt.Equal(exp))

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "sessions cascade with their user")

	assert.NoError(t, sessions.Delete(ctx, "s1"))
	assert.ErrorIs(t, users.Delete(ctx, u.ID), repository.ErrNotFound)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
