package account

import (
	"context"
	"testing"

	"github.com/crop-up-dev/hub/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(storage.NewMemoryStore())
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, "Alice@Example.com", "secret", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret", user.Password, "password must not be stored verbatim")

	logged, err := svc.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	current, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, "alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "other", "Alice 2")
	assert.ErrorIs(t, err, ErrDuplicateRegistration)

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed registration must not add an account")
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, "alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound, "failed login must not create a session")
}

func TestService_DeactivatedUserCannotLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, "alice@example.com", "secret", "Alice")
	require.NoError(t, err)
	require.NoError(t, svc.ToggleActive(ctx, user.ID))

	_, err = svc.Login(ctx, "alice@example.com", "secret")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// Reactivation restores access.
	require.NoError(t, svc.ToggleActive(ctx, user.ID))
	_, err = svc.Login(ctx, "alice@example.com", "secret")
	assert.NoError(t, err)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, "alice@example.com", "secret", "Alice")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))

	_, err = svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_SeedAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.SeedAdmin(ctx, "Admin@Example.com", "admin-pass"))

	admin, err := svc.Login(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin-001", admin.ID)
	assert.Equal(t, RoleAdmin, admin.Role)

	// Reseeding replaces the stale record instead of duplicating it.
	require.NoError(t, svc.SeedAdmin(ctx, "admin@example.com", "rotated"))
	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = svc.Login(ctx, "admin@example.com", "admin-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "admin@example.com", "rotated")
	assert.NoError(t, err)
}

func TestService_AdminUserManagement(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, "alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateRole(ctx, user.ID, RoleAdmin))
	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, RoleAdmin, users[0].Role)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	users, err = svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrUserNotFound)
	assert.ErrorIs(t, svc.UpdateRole(ctx, "missing", RoleAdmin), ErrUserNotFound)
	assert.ErrorIs(t, svc.ToggleActive(ctx, "missing"), ErrUserNotFound)
}

func TestProfileRepository_DefaultAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(storage.NewMemoryStore())

	p, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Trader", p.DisplayName)
	assert.Equal(t, "market", p.Settings.DefaultOrderType)
	assert.True(t, p.Settings.Notifications)

	p.DisplayName = "Satoshi"
	p.Settings.Currency = "EUR"
	require.NoError(t, repo.Save(ctx, p))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}
