package uploads

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"petpal/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cabecera PNG mínima, suficiente para http.DetectContentType
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newStore(t *testing.T, max int64) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), max)
	require.NoError(t, err)
	return s
}

func TestSave_WritesUUIDNamedFile(t *testing.T) {
	s := newStore(t, 0)

	name, err := s.Save("Milo.PNG", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "Milo")

	got, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestSave_Rejections(t *testing.T) {
	s := newStore(t, int64(len(pngBytes)))

	_, err := s.Save("doc.pdf", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrTypeNotAllowed)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = s.Save("big.png", bytes.NewReader(append(pngBytes, 0)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Save("fake.png", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotImage)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemove(t *testing.T) {
	s := newStore(t, 0)
	name, err := s.Save("a.gif", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, s.Remove(name))
	err = s.Remove(name)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// no escapa del directorio
	assert.NoError(t, s.Remove(""))
}
