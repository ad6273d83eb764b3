// Package upload implements the image upload lifecycle: extension
// validation, collision-resistant naming, persistence through a blob store
// and public URL resolution.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"newsdesk/internal/storage"
)

// ErrInvalidType is returned when the uploaded file has a disallowed
// extension or carries no bytes.
var ErrInvalidType = errors.New("invalid image type")

// Config carries upload settings; it is passed in at construction instead of
// living in package globals.
type Config struct {
	// Dir is the relative prefix stored paths live under, e.g. "static/uploads".
	Dir string
	// BaseURL is prepended to stored paths when resolving public URLs.
	BaseURL string
	// AllowedExtensions is the lowercase extension allow-set.
	AllowedExtensions []string
}

// Manager validates, names and stores uploaded images.
type Manager struct {
	store   storage.Store
	dir     string
	baseURL string
	allowed map[string]struct{}
	now     func() time.Time
}

func NewManager(store storage.Store, cfg Config) *Manager {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &Manager{
		store:   store,
		dir:     strings.Trim(cfg.Dir, "/"),
		baseURL: cfg.BaseURL,
		allowed: allowed,
		now:     time.Now,
	}
}

// Allowed reports whether the filename carries an extension from the
// allow-set. Names without an extension are rejected.
func (m *Manager) Allowed(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	_, ok := m.allowed[strings.ToLower(filename[idx+1:])]
	return ok
}

// Store validates and persists an uploaded file for the given owner and
// returns the relative stored path. The name embeds the owner id and a
// second-resolution timestamp; a re-upload of the same filename by the same
// owner within one second overwrites the previous blob.
func (m *Manager) Store(ctx context.Context, r io.Reader, originalName string, ownerID int64) (string, error) {
	if !m.Allowed(originalName) {
		return "", ErrInvalidType
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrInvalidType
	}

	name := fmt.Sprintf("%d_%s_%s", ownerID, m.now().Format("20060102150405"), sanitizeFilename(originalName))
	key := path.Join(m.dir, name)
	if err := m.store.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return key, nil
}

// Remove deletes a previously stored file. It is idempotent: an empty path,
// a path outside the upload prefix or an already absent file are not errors.
func (m *Manager) Remove(ctx context.Context, storedPath string) error {
	key := strings.Trim(path.Clean("/"+storedPath), "/")
	if key == "" || !strings.HasPrefix(key, m.dir+"/") {
		return nil
	}
	return m.store.Remove(ctx, key)
}

// PublicURL resolves a stored path to an absolute URL, or returns the empty
// string for an empty path.
func (m *Manager) PublicURL(storedPath string) string {
	if storedPath == "" {
		return ""
	}
	return strings.TrimRight(m.baseURL, "/") + "/" + strings.TrimLeft(storedPath, "/")
}

// sanitizeFilename strips path separators and anything outside a
// conservative character set from an uploaded filename.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
