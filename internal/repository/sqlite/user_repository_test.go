package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/domain"
	"newsdesk/internal/repository"
	"newsdesk/internal/repository/sqlite"
	"newsdesk/internal/testutil"
)

func TestUserCreateAndGet(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "users-crud")
	users := sqlite.NewUserRepository(db)
	ctx := context.Background()

	created := testutil.CreateUser(t, users, "alice", "password123", domain.RoleAdmin)

	byName, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, domain.RoleAdmin, byName.Role)

	byID, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserUsernameUnique(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "users-unique")
	users := sqlite.NewUserRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, users, "alice", "password123", domain.RoleUser)

	_, err := users.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUserList(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "users-list")
	users := sqlite.NewUserRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, users, "alice", "password123", domain.RoleAdmin)
	testutil.CreateUser(t, users, "bob", "password123", domain.RoleUser)

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
}

func TestUserDefaultRole(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "users-role")
	users := sqlite.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Username: "carol", PasswordHash: "h"}
	_, err := users.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
}
