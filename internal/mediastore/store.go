// Package mediastore implements the content-addressed blob storage used by
// an evidence package: payloads are keyed by the lowercase hex SHA-256 of
// their bytes and are never buffered whole in memory on insert.
package mediastore

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Entry describes one stored blob's metadata, without its bytes.
type Entry struct {
	SHA256   string
	MimeType string
}

// Store is a content-addressed blob store backed by a directory on disk.
// The package engine stages blobs here between load and save; it owns no
// ZIP-specific logic itself.
type Store struct {
	mu   sync.Mutex
	dir  string
	keys []string // insertion order, for stable Iter
	ent  map[string]Entry
}

// New creates a Store rooted at dir. dir must already exist.
func New(dir string) *Store {
	return &Store{dir: dir, ent: make(map[string]Entry)}
}

func (s *Store) blobPath(sha256hex string) string {
	return filepath.Join(s.dir, sha256hex)
}

// Adopt registers a blob already present on disk (e.g. extracted from an
// opened archive) without rehashing it. Used only by the package loader,
// which checks each manifest-listed blob with VerifyChecksum after adopting
// it.
func (s *Store) Adopt(sha256hex, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ent[sha256hex]; !ok {
		s.keys = append(s.keys, sha256hex)
	}
	s.ent[sha256hex] = Entry{SHA256: sha256hex, MimeType: mimeType}
}

// AdoptStream writes r to disk under sha256hex and registers it, without
// recomputing the digest — the package loader calls this while extracting
// an archive, streaming straight from the ZIP reader so the blob is never
// buffered whole (spec.md 4.1/5), and verifies the digest afterwards.
func (s *Store) AdoptStream(sha256hex, mimeType string, r io.Reader) error {
	f, err := os.Create(s.blobPath(sha256hex))
	if err != nil {
		return &evperrors.Io{Op: "mediastore: adopt blob", Err: err}
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return &evperrors.Io{Op: "mediastore: adopt blob", Err: err}
	}
	s.Adopt(sha256hex, mimeType)
	return nil
}

// Insert streams r into the store, computing its SHA-256 as it copies, and
// returns the resulting hex digest. If a blob with that digest already
// exists, the newly staged temp file is discarded and the existing key is
// returned (deduplication) per spec.md 4.1.
//
// mimeType may be empty, in which case it is sniffed from the first 512
// bytes written.
func (s *Store) Insert(r io.Reader, mimeType string) (string, error) {
	// The final name is content-derived and unknown until the stream is
	// fully hashed, so (unlike Save's archive rewrite, which knows its
	// target path upfront) this stages into an arbitrarily-named temp file
	// inside the store directory and renames it once the digest is known —
	// the same two-step dance directory/directory_dest.go's PutBlob uses.
	t, err := os.CreateTemp(s.dir, "blob-*.tmp")
	if err != nil {
		return "", &evperrors.Io{Op: "mediastore: create temp file", Err: err}
	}
	succeeded := false
	defer func() {
		t.Close()
		if !succeeded {
			os.Remove(t.Name())
		}
	}()

	h := sha256.New()
	tee := io.TeeReader(r, h)

	if mimeType == "" {
		mtype, rest, err := sniff(tee)
		if err != nil {
			return "", &evperrors.Io{Op: "mediastore: sniff mime type", Err: err}
		}
		mimeType = mtype
		tee = rest
	}

	if _, err := io.Copy(t, tee); err != nil {
		return "", &evperrors.Io{Op: "mediastore: stream blob", Err: err}
	}
	if err := t.Sync(); err != nil {
		return "", &evperrors.Io{Op: "mediastore: sync blob", Err: err}
	}

	sum := digest.NewDigestFromBytes(digest.SHA256, h.Sum(nil)).Encoded()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.ent[sum]; ok {
		logrus.Debugf("mediastore: deduplicated blob %s (mime %s)", sum, existing.MimeType)
		return sum, nil
	}

	if err := t.Close(); err != nil {
		return "", &evperrors.Io{Op: "mediastore: close blob", Err: err}
	}
	if err := os.Rename(t.Name(), s.blobPath(sum)); err != nil {
		return "", &evperrors.Io{Op: "mediastore: place blob", Err: err}
	}
	succeeded = true
	s.keys = append(s.keys, sum)
	s.ent[sum] = Entry{SHA256: sum, MimeType: mimeType}
	return sum, nil
}

// sniff peeks the leading bytes of r for MIME detection and returns a
// reader that still yields the full original stream.
func sniff(r io.Reader) (string, io.Reader, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head := buf[:n]
	mtype := mimetype.Detect(head).String()
	return mtype, io.MultiReader(bytes.NewReader(head), r), nil
}

// Get returns the MIME type and a streaming reader for the blob identified
// by sha256hex. Callers own the returned ReadCloser and must Close it.
func (s *Store) Get(sha256hex string) (string, io.ReadCloser, error) {
	s.mu.Lock()
	entry, ok := s.ent[sha256hex]
	s.mu.Unlock()
	if !ok {
		return "", nil, &evperrors.DanglingMediaRef{SHA256: sha256hex}
	}
	f, err := os.Open(s.blobPath(sha256hex))
	if err != nil {
		return "", nil, &evperrors.Io{Op: "mediastore: open blob", Err: err}
	}
	return entry.MimeType, f, nil
}

// Remove deletes an unreferenced blob. Callers must have already verified
// no evidence references it.
func (s *Store) Remove(sha256hex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ent[sha256hex]; !ok {
		return nil
	}
	delete(s.ent, sha256hex)
	for i, k := range s.keys {
		if k == sha256hex {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	if err := os.Remove(s.blobPath(sha256hex)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "mediastore: remove blob %s", sha256hex)
	}
	return nil
}

// Iter enumerates entries in stable insertion order.
func (s *Store) Iter() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.ent[k])
	}
	return out
}

// VerifyChecksum recomputes the digest of the stored blob for key and
// compares it against key itself, satisfying the checksum-integrity
// property (spec.md 8).
func (s *Store) VerifyChecksum(sha256hex string) error {
	_, r, err := s.Get(sha256hex)
	if err != nil {
		return err
	}
	defer r.Close()
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return &evperrors.Io{Op: "mediastore: verify checksum", Err: err}
	}
	sum := digest.NewDigestFromBytes(digest.SHA256, h.Sum(nil)).Encoded()
	if sum != sha256hex {
		return &evperrors.ChecksumCollision{SHA256: sha256hex}
	}
	return nil
}

// Dir exposes the backing directory, used by the package engine to copy
// blobs directly into a ZIP writer without an intermediate buffer.
func (s *Store) Dir() string { return s.dir }
