// Package uploads guarda imágenes subidas por usuarios en disco.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"petpal/internal/platform/apperr"

	"github.com/google/uuid"
)

const DefaultMaxBytes int64 = 6 * 1024 * 1024

var allowedExt = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

var (
	ErrTypeNotAllowed = apperr.New(apperr.ErrInvalidInput, "only png, jpg, jpeg and gif images are allowed")
	ErrTooLarge       = apperr.New(apperr.ErrInvalidInput, "image is too large")
	ErrNotImage       = apperr.New(apperr.ErrInvalidInput, "file is not an image")
)

type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("uploads: dir required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save valida extensión, tamaño y contenido, y escribe el archivo con nombre uuid.
// Devuelve el nombre almacenado (sin directorio).
func (s *Store) Save(original string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if _, ok := allowedExt[ext]; !ok {
		return "", ErrTypeNotAllowed
	}

	// +1 para detectar excedente sin leer todo
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("uploads: read: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", ErrNotImage
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("uploads: create: %w", err)
	}
	if _, err := io.Copy(dst, bytes.NewReader(data)); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("uploads: write: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("uploads: close: %w", err)
	}
	return name, nil
}

// Remove borra un archivo guardado. Un archivo inexistente devuelve un error
// que cumple errors.Is(err, os.ErrNotExist).
func (s *Store) Remove(name string) error {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil
	}
	return os.Remove(filepath.Join(s.dir, name))
}
