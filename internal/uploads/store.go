package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"roomchat-service/internal/models"
)

var (
	ErrEmptyUpload = errors.New("upload is empty")
	ErrTooLarge    = errors.New("upload exceeds maximum size")
)

// kindByExtension is the fixed classification table for uploads. Unknown or
// missing extensions fall back to the generic file kind. webm is classified
// by container as video.
var kindByExtension = map[string]string{
	"jpg":  models.KindImage,
	"jpeg": models.KindImage,
	"png":  models.KindImage,
	"gif":  models.KindImage,
	"webp": models.KindImage,
	"mp4":  models.KindVideo,
	"webm": models.KindVideo,
	"mov":  models.KindVideo,
	"m4v":  models.KindVideo,
	"mp3":  models.KindAudio,
	"wav":  models.KindAudio,
	"m4a":  models.KindAudio,
	"ogg":  models.KindAudio,
	"oga":  models.KindAudio,
	"opus": models.KindAudio,
}

// KindFor maps an original filename to a message kind.
func KindFor(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if kind, ok := kindByExtension[ext]; ok {
		return kind
	}
	return models.KindFile
}

// Store persists media on disk under generated names. The stored name is the
// opaque handle kept in the message content; bytes are never interpreted.
type Store struct {
	dir     string
	maxSize int64
}

// NewStore creates the upload directory if needed.
func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Save writes the upload to disk and returns the generated stored name. The
// size limit is enforced before the caller persists anything; oversized
// uploads are rejected, never truncated.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString()
	if ext := storedExtension(originalName); ext != "" {
		name += "." + ext
	}

	limited := io.LimitReader(r, s.maxSize+1)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	written, err := io.Copy(f, limited)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written == 0 {
		err = ErrEmptyUpload
	}
	if err == nil && written > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}
	return name, nil
}

// Remove deletes a stored file. A missing file is not an error; retention
// sweeps may race with manual cleanup.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves a stored name to its on-disk location for serving.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// storedExtension sanitizes the original extension for reuse in the stored
// name. Anything but short alphanumeric extensions is dropped.
func storedExtension(originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
