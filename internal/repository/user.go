package repository

import (
	"context"
	"errors"

	"newsdesk/internal/domain"
)

// ErrNotFound is returned by repositories when the requested row is absent.
var ErrNotFound = errors.New("not found")

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
