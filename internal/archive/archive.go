// Package archive implements the ZIP container conventions for an evidence
// package: manifest.json at the root, media/<sha256> blobs, and
// testcases/<uuid>.json documents (spec.md 4.3).
//
// The deflate codec is swapped for klauspost/compress/flate, the same
// drop-in-faster-codec substitution the teacher makes throughout
// pkg/compression for gzip and zstd.
package archive

import (
	"archive/zip"
	"io"

	kflate "github.com/klauspost/compress/flate"
)

func init() {
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return kflate.NewWriter(w, kflate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return kflate.NewReader(r)
	})
}

// Entry is one file found in an opened archive, read fully into memory.
// manifest.json and the (typically small) testcase documents are read this
// way; media blobs are streamed separately through internal/mediastore and
// never routed through Entry.
type Entry struct {
	Name string
	Data []byte
}

// Read opens path as a ZIP archive and returns every entry's name and raw
// bytes except those under mediaDir, which are instead copied into
// mediaSink keyed by their basename (the sha256 hex) so the media store
// never has to hold a whole blob in memory at once.
func Read(path string, mediaDir string, mediaSink func(name string, r io.Reader) error) ([]Entry, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if isUnder(f.Name, mediaDir) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			err = mediaSink(baseName(f.Name), rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: f.Name, Data: data})
	}
	return entries, nil
}

func isUnder(name, dir string) bool {
	prefix := dir + "/"
	return len(name) > len(prefix) && name[:len(prefix)] == prefix
}

func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// Writer wraps a zip.Writer with the two write modes the engine needs:
// small JSON documents (deflated) and streamed media blobs (also deflated,
// via io.Copy so the whole blob is never buffered).
type Writer struct {
	zw *zip.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteJSON writes name (e.g. "manifest.json") with Deflate compression.
func (w *Writer) WriteJSON(name string, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// WriteStream writes name by streaming r into the archive, never buffering
// it whole (spec.md 5: "Saves stream media blobs through fixed-size
// buffers").
func (w *Writer) WriteStream(name string, r io.Reader) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, r)
	return err
}

// Close finalizes the central directory.
func (w *Writer) Close() error { return w.zw.Close() }
