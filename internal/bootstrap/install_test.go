package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/hellocms/internal/security/password"
	"github.com/dropDatabas3/hellocms/internal/store/adapters/kv"
	"github.com/dropDatabas3/hellocms/internal/users"
)

func TestInstall(t *testing.T) {
	ctx := context.Background()
	conn := kv.NewConnection("memory", kv.NewMemoryNamespace(), 0)
	defer conn.Close()
	svc := users.NewService(conn.Users(), password.DefaultPolicy, bcrypt.MinCost)

	res, err := Install(ctx, svc, Options{Email: "root@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", res.Email)
	require.NotEmpty(t, res.GeneratedPassword)

	u, err := svc.Get(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, u.Roles)
	assert.True(t, password.Verify(res.GeneratedPassword, u.PasswordHash))

	_, err = Install(ctx, svc, Options{Email: "other@example.com", Password: "whatever-123"})
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
}
