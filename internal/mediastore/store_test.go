package mediastore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

func TestInsertDeduplicates(t *testing.T) {
	s := New(t.TempDir())

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01, 0x02, 0x03}

	k1, err := s.Insert(bytes.NewReader(png), "image/png")
	require.NoError(t, err)

	k2, err := s.Insert(bytes.NewReader(png), "image/png")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, s.Iter(), 1)
}

func TestInsertSniffsMimeType(t *testing.T) {
	s := New(t.TempDir())
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	key, err := s.Insert(bytes.NewReader(png), "")
	require.NoError(t, err)

	mime, r, err := s.Get(key)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "image/png", mime)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestGetUnknownIsDanglingRef(t *testing.T) {
	s := New(t.TempDir())
	_, _, err := s.Get("deadbeef")
	require.Error(t, err)
}

func TestVerifyChecksumDetectsTamper(t *testing.T) {
	s := New(t.TempDir())
	key, err := s.Insert(bytes.NewReader([]byte("hello world")), "text/plain")
	require.NoError(t, err)
	require.NoError(t, s.VerifyChecksum(key))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), key), []byte("tampered"), 0o644))
	var collision *evperrors.ChecksumCollision
	require.ErrorAs(t, s.VerifyChecksum(key), &collision)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New(t.TempDir())
	key, err := s.Insert(bytes.NewReader([]byte("payload")), "application/octet-stream")
	require.NoError(t, err)

	require.NoError(t, s.Remove(key))
	require.NoError(t, s.Remove(key)) // removing twice is a no-op, not an error

	_, _, err = s.Get(key)
	assert.Error(t, err)
}
