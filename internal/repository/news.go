package repository

import (
	"context"

	"newsdesk/internal/domain"
)

// NewsPage is one page of news items ordered by creation time, newest first.
type NewsPage struct {
	Items   []domain.News
	Total   int
	Page    int
	PerPage int
	Pages   int
}

// NewsFilter narrows a listing; the zero value matches everything.
type NewsFilter struct {
	// AuthorID, when non-nil, restricts the listing to a single author.
	AuthorID *int64
}

// NewsRepository exposes persistence operations for News items.
type NewsRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, news *domain.News) (int64, error)
	Get(ctx context.Context, id int64) (*domain.News, error)
	Update(ctx context.Context, news *domain.News) error
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, filter NewsFilter, page, perPage int) (*NewsPage, error)
}
