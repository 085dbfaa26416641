// Package storage persists uploaded media on the local filesystem.
package storage

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"threads/internal/models"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "uploads"

var extensionsByMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// LocalStore writes uploads beneath a directory with random file names.
type LocalStore struct {
	dir      string
	maxBytes int64
}

// NewLocalStore returns a store rooted at dir accepting files up to maxBytes.
func NewLocalStore(dir string, maxBytes int64) *LocalStore {
	return &LocalStore{dir: dir, maxBytes: maxBytes}
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save stores an image and returns its public path, "uploads/<uuid>.<ext>".
// The sniffed content type must be an allowed image type; the client file
// name only contributes its extension when it agrees with the content.
func (s *LocalStore) Save(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", models.NewValidationError("Uploaded file is empty")
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError("Uploaded file is too large")
	}

	ext, ok := extensionsByMime[http.DetectContentType(content)]
	if !ok {
		return "", models.NewValidationError("Only JPEG, PNG, GIF and WebP images are allowed")
	}
	if given := strings.ToLower(filepath.Ext(filename)); given != "" {
		if _, allowed := allowedExtensions[given]; !allowed {
			return "", models.NewValidationError("Only JPEG, PNG, GIF and WebP images are allowed")
		}
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	return path.Join(PublicPrefix, name), nil
}

// IsStoredPath reports whether p points into the upload directory.
func IsStoredPath(p string) bool {
	return strings.HasPrefix(strings.TrimSpace(p), PublicPrefix+"/")
}

// Delete removes a file previously returned by Save. Unknown paths are ignored.
func (s *LocalStore) Delete(publicPath string) error {
	name := strings.TrimPrefix(publicPath, PublicPrefix+"/")
	if name == publicPath || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
