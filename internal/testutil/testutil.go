// Package testutil holds shared helpers for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"newsdesk/internal/domain"
	"newsdesk/internal/repository"
	"newsdesk/internal/repository/sqlite"
)

// OpenInMemoryDB opens a shared-cache in-memory sqlite database and creates
// the schema. The database is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	news := sqlite.NewNewsRepository(db)
	if err := users.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := news.Init(ctx); err != nil {
		t.Fatalf("init news: %v", err)
	}
	return db
}

// CreateUser inserts a user with a bcrypt hash of the given password and
// returns the stored record.
func CreateUser(t *testing.T, users repository.UserRepository, username, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if _, err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
