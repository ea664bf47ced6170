package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

func newService(t *testing.T) (*account.Service, *account.MemoryStore, account.Account) {
	t.Helper()
	store := account.NewMemoryStore()
	users := account.NewMemoryUsers(
		account.User{ID: "owner", Email: "owner@example.com", DisplayName: "Zed", LastLoginTime: time.UnixMilli(1700000000000)},
		account.User{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"},
		account.User{ID: "carol", Email: "Carol@Example.com", DisplayName: "Carol"},
	)
	svc := account.NewService(store, users, nil)
	acc, err := svc.CreateAccount(context.Background(), "owner", "acme")
	require.NoError(t, err)
	return svc, store, acc
}

func TestService_CreateAccount(t *testing.T) {
	t.Parallel()

	_, _, acc := newService(t)
	assert.Equal(t, "acme", acc.Name)
	assert.Equal(t, "owner", acc.OwnerID)
	assert.Equal(t, []string{"owner"}, acc.Access)
	assert.Equal(t, []string{"owner"}, acc.Admins)
	assert.Equal(t, 1, acc.AccessCount)
	assert.Equal(t, 1, acc.AdminCount)
}

func TestService_ChangeRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("non admin caller", func(t *testing.T) {
		t.Parallel()
		svc, _, acc := newService(t)
		require.NoError(t, svc.GrantAccess(ctx, acc.ID, "bob", false))

		err := svc.ChangeRole(ctx, "bob", acc.ID, "bob", account.RoleAdmin)
		assert.ErrorIs(t, err, account.ErrPermissionDenied)
	})

	t.Run("promote and remove", func(t *testing.T) {
		t.Parallel()
		svc, store, acc := newService(t)
		require.NoError(t, svc.GrantAccess(ctx, acc.ID, "bob", false))

		require.NoError(t, svc.ChangeRole(ctx, "owner", acc.ID, "bob", account.RoleAdmin))
		got, err := store.Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AdminCount)

		require.NoError(t, svc.ChangeRole(ctx, "owner", acc.ID, "bob", account.RoleRemove))
		got, err = store.Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner"}, got.Access)
		assert.Equal(t, 1, got.AdminCount)
	})

	t.Run("unknown member", func(t *testing.T) {
		t.Parallel()
		svc, _, acc := newService(t)
		err := svc.ChangeRole(ctx, "owner", acc.ID, "ghost", account.RoleUser)
		assert.ErrorIs(t, err, account.ErrNotFound)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("invalid role", func(t *testing.T) {
		t.Parallel()
		svc, _, acc := newService(t)
		err := svc.ChangeRole(ctx, "owner", acc.ID, "owner", "superuser")
		assert.ErrorIs(t, err, account.ErrInvalidRole)
	})
}

func TestService_ListUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, acc := newService(t)
	require.NoError(t, svc.GrantAccess(ctx, acc.ID, "carol", true))
	require.NoError(t, svc.GrantAccess(ctx, acc.ID, "bob", false))

	members, err := svc.ListUsers(ctx, "owner", acc.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Bob", members[0].DisplayName)
	assert.Equal(t, account.RoleUser, members[0].Role)
	assert.Equal(t, "Carol", members[1].DisplayName)
	assert.Equal(t, account.RoleAdmin, members[1].Role)
	assert.Equal(t, "Zed", members[2].DisplayName)
	assert.EqualValues(t, 1700000000000, members[2].LastLoginTime)

	_, err = svc.ListUsers(ctx, "bob", acc.ID)
	assert.ErrorIs(t, err, account.ErrPermissionDenied)
}

func TestService_GetUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, acc := newService(t)
	m, err := svc.GetUser(ctx, "owner", acc.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, m.Role)

	_, err = svc.GetUser(ctx, "owner", acc.ID, "bob")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestService_AddUserByEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, store, acc := newService(t)
	require.NoError(t, svc.AddUserByEmail(ctx, "owner", acc.ID, " carol@example.com ", account.RoleAdmin))

	got, err := store.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin("carol"))

	err = svc.AddUserByEmail(ctx, "owner", acc.ID, "carol@example.com", account.RoleUser)
	assert.ErrorIs(t, err, account.ErrAlreadyMember)

	err = svc.AddUserByEmail(ctx, "owner", acc.ID, "nobody@example.com", account.RoleUser)
	assert.ErrorIs(t, err, account.ErrNotFound)

	err = svc.AddUserByEmail(ctx, "carol", acc.ID, "bob@example.com", account.RoleRemove)
	assert.ErrorIs(t, err, account.ErrInvalidRole)
}
