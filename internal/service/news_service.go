package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"newsdesk/internal/domain"
	"newsdesk/internal/policy"
	"newsdesk/internal/repository"
	"newsdesk/internal/upload"
)

var (
	// ErrMissingFields is returned when title or description is absent.
	ErrMissingFields = errors.New("title and description are required")
	// ErrPermissionDenied indicates the principal may not perform the mutation.
	ErrPermissionDenied = errors.New("permission denied")
)

const unknownUser = "unknown user"

// ImageUpload carries an attached multipart file into the service layer.
type ImageUpload struct {
	Reader   io.Reader
	Filename string
}

// NewsInput is the mutable payload of a create or update request.
type NewsInput struct {
	Title       string
	Description string
	// Image is nil when the request carries no file.
	Image *ImageUpload
}

// NewsItem is a news record joined with its author's display name and a
// resolved public image URL.
type NewsItem struct {
	News     domain.News
	Username string
	ImageURL string
}

// NewsPage is one page of joined news items.
type NewsPage struct {
	Items   []NewsItem
	Total   int
	Page    int
	PerPage int
	Pages   int
}

// NewsService orchestrates authorization, upload lifecycle and persistence
// for news items.
type NewsService interface {
	// Create persists a new item attributed to the principal. adminOnly
	// selects the admin-gated creation policy over the self-service one.
	Create(ctx context.Context, p domain.Principal, in NewsInput, adminOnly bool) (*NewsItem, error)
	Update(ctx context.Context, p domain.Principal, id int64, in NewsInput) (*NewsItem, error)
	Delete(ctx context.Context, p domain.Principal, id int64) error
	Get(ctx context.Context, id int64) (*NewsItem, error)
	List(ctx context.Context, page, perPage int) (*NewsPage, error)
	ListMine(ctx context.Context, p domain.Principal, page, perPage int) (*NewsPage, error)
}

const (
	defaultPerPage     = 6
	defaultMinePerPage = 10
	maxPerPage         = 20
)

type newsService struct {
	news    repository.NewsRepository
	users   repository.UserRepository
	uploads *upload.Manager
	logger  logrus.FieldLogger
}

func NewNewsService(news repository.NewsRepository, users repository.UserRepository, uploads *upload.Manager, logger logrus.FieldLogger) NewsService {
	return &newsService{
		news:    news,
		users:   users,
		uploads: uploads,
		logger:  logger,
	}
}

func (s *newsService) Create(ctx context.Context, p domain.Principal, in NewsInput, adminOnly bool) (*NewsItem, error) {
	if !policy.CanCreate(p, adminOnly) {
		return nil, ErrPermissionDenied
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, ErrMissingFields
	}

	imagePath := ""
	if in.Image != nil {
		stored, err := s.uploads.Store(ctx, in.Image.Reader, in.Image.Filename, p.ID)
		if err != nil {
			return nil, err
		}
		imagePath = stored
	}

	news := &domain.News{
		Title:       title,
		Description: description,
		ImagePath:   imagePath,
		AuthorID:    p.ID,
	}
	if _, err := s.news.Create(ctx, news); err != nil {
		return nil, err
	}

	return s.joinItem(ctx, news), nil
}

func (s *newsService) Update(ctx context.Context, p domain.Principal, id int64, in NewsInput) (*NewsItem, error) {
	news, err := s.news.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(p, *news) {
		return nil, ErrPermissionDenied
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		news.Title = title
	}
	if description := strings.TrimSpace(in.Description); description != "" {
		news.Description = description
	}

	if in.Image != nil {
		// The new file must be fully stored before the row references it;
		// removing the old one is best-effort and never blocks the update.
		stored, err := s.uploads.Store(ctx, in.Image.Reader, in.Image.Filename, p.ID)
		if err != nil {
			return nil, err
		}
		s.removeFile(ctx, news.ImagePath)
		news.ImagePath = stored
	}

	if err := s.news.Update(ctx, news); err != nil {
		return nil, err
	}
	return s.joinItem(ctx, news), nil
}

func (s *newsService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	news, err := s.news.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(p, *news) {
		return ErrPermissionDenied
	}

	s.removeFile(ctx, news.ImagePath)
	return s.news.Delete(ctx, id)
}

func (s *newsService) Get(ctx context.Context, id int64) (*NewsItem, error) {
	news, err := s.news.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.joinItem(ctx, news), nil
}

func (s *newsService) List(ctx context.Context, page, perPage int) (*NewsPage, error) {
	return s.listPage(ctx, repository.NewsFilter{}, page, normalizePerPage(perPage, defaultPerPage))
}

func (s *newsService) ListMine(ctx context.Context, p domain.Principal, page, perPage int) (*NewsPage, error) {
	filter := repository.NewsFilter{AuthorID: &p.ID}
	return s.listPage(ctx, filter, page, normalizePerPage(perPage, defaultMinePerPage))
}

func (s *newsService) listPage(ctx context.Context, filter repository.NewsFilter, page, perPage int) (*NewsPage, error) {
	if page < 1 {
		page = 1
	}

	result, err := s.news.ListPage(ctx, filter, page, perPage)
	if err != nil {
		return nil, err
	}

	usernames := map[int64]string{}
	items := make([]NewsItem, 0, len(result.Items))
	for i := range result.Items {
		news := result.Items[i]
		username, ok := usernames[news.AuthorID]
		if !ok {
			username = s.authorName(ctx, news.AuthorID)
			usernames[news.AuthorID] = username
		}
		items = append(items, NewsItem{
			News:     news,
			Username: username,
			ImageURL: s.uploads.PublicURL(news.ImagePath),
		})
	}

	return &NewsPage{
		Items:   items,
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
		Pages:   result.Pages,
	}, nil
}

func (s *newsService) joinItem(ctx context.Context, news *domain.News) *NewsItem {
	return &NewsItem{
		News:     *news,
		Username: s.authorName(ctx, news.AuthorID),
		ImageURL: s.uploads.PublicURL(news.ImagePath),
	}
}

func (s *newsService) authorName(ctx context.Context, authorID int64) string {
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return unknownUser
	}
	return author.Username
}

// removeFile deletes a stored image, swallowing failures: a transient
// filesystem error must not block the database mutation.
func (s *newsService) removeFile(ctx context.Context, storedPath string) {
	if storedPath == "" {
		return
	}
	if err := s.uploads.Remove(ctx, storedPath); err != nil {
		s.logger.WithError(err).Warnf("remove stored image %s", storedPath)
	}
}

func normalizePerPage(perPage, fallback int) int {
	if perPage < 1 {
		return fallback
	}
	if perPage > maxPerPage {
		return maxPerPage
	}
	return perPage
}
