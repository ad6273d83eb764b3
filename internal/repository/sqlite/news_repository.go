package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/repository"
)

const createNewsTable = `
CREATE TABLE IF NOT EXISTS news (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	image_path TEXT NOT NULL DEFAULT '',
	author_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type NewsRepository struct {
	db *sql.DB
}

func NewNewsRepository(db *sql.DB) repository.NewsRepository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNewsTable); err != nil {
		return fmt.Errorf("create news table: %w", err)
	}
	return nil
}

func (r *NewsRepository) Create(ctx context.Context, news *domain.News) (int64, error) {
	now := time.Now().UTC()
	news.CreatedAt = now
	news.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO news (title, description, image_path, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		news.Title,
		news.Description,
		news.ImagePath,
		news.AuthorID,
		news.CreatedAt,
		news.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert news: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("news last insert id: %w", err)
	}
	news.ID = id
	return id, nil
}

func (r *NewsRepository) Get(ctx context.Context, id int64) (*domain.News, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, description, image_path, author_id, created_at, updated_at
FROM news
WHERE id = ?`,
		id,
	)
	return scanNews(row)
}

func (r *NewsRepository) Update(ctx context.Context, news *domain.News) error {
	news.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE news
SET title=?, description=?, image_path=?, updated_at=?
WHERE id=?`,
		news.Title,
		news.Description,
		news.ImagePath,
		news.UpdatedAt,
		news.ID,
	)
	if err != nil {
		return fmt.Errorf("update news: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("news update rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("news: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *NewsRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM news WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("news delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("news: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *NewsRepository) ListPage(ctx context.Context, filter repository.NewsFilter, page, perPage int) (*repository.NewsPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	where := ""
	args := []any{}
	if filter.AuthorID != nil {
		where = " WHERE author_id = ?"
		args = append(args, *filter.AuthorID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count news: %w", err)
	}

	query := `
SELECT id, title, description, image_path, author_id, created_at, updated_at
FROM news` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, fmt.Errorf("query news page: %w", err)
	}
	defer rows.Close()

	items := []domain.News{}
	for rows.Next() {
		news, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *news)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.NewsPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	}, nil
}

func scanNews(row interface {
	Scan(dest ...any) error
}) (*domain.News, error) {
	var news domain.News
	if err := row.Scan(
		&news.ID,
		&news.Title,
		&news.Description,
		&news.ImagePath,
		&news.AuthorID,
		&news.CreatedAt,
		&news.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("news: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan news: %w", err)
	}
	return &news, nil
}
