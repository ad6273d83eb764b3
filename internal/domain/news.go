package domain

import "time"

// News represents a published news item, optionally carrying an uploaded image.
type News struct {
	ID          int64
	Title       string
	Description string
	// ImagePath is the relative stored path under the upload root, empty when
	// the item has no image.
	ImagePath string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
