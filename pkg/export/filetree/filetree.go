// Package filetree implements the ZIP-of-files export backend (spec.md
// 4.5): one directory per test case, one file per evidence item, mirroring
// the way the teacher's docker/tarfile and oci/archive backends write an
// archive-of-files tree straight against the stdlib archive/zip package
// rather than a third-party wrapper.
package filetree

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

// Backend implements export.Backend by writing a ZIP archive of plain
// files. The zero value is ready to use.
type Backend struct{}

// Export writes pkg (or, under a TestCase scope, just that test case) to
// target as a ZIP of `<test case title>/NNN-<kind>[.ext]` entries.
func (Backend) Export(pkg *evp.Package, target string, scope export.Scope, opts export.Options) error {
	pf, err := export.OpenTarget(target, opts)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	zw := zip.NewWriter(pf)

	var testCases []*evp.TestCase
	if id, ok := scope.TestCaseID(); ok {
		tc, found := pkg.TestCase(id)
		if !found {
			return &evperrors.ExportFailed{Backend: "filetree", Reason: "scope references an unknown test case"}
		}
		testCases = []*evp.TestCase{tc}
	} else {
		testCases = pkg.TestCases()
	}

	used := make(map[string]int)
	for _, tc := range testCases {
		dir := disambiguate(used, tc.Metadata.Title)
		for i, ev := range tc.Evidence {
			name, data, err := renderEvidence(pkg, ev)
			if err != nil {
				return err
			}
			entryName := fmt.Sprintf("%s/%03d-%s", dir, i, name)
			w, err := zw.Create(entryName)
			if err != nil {
				return &evperrors.Io{Op: "filetree: create zip entry", Err: err}
			}
			if _, err := w.Write(data); err != nil {
				return &evperrors.Io{Op: "filetree: write zip entry", Err: err}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return &evperrors.Io{Op: "filetree: finalize zip", Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &evperrors.Io{Op: "filetree: commit export", Err: err}
	}
	return nil
}

// disambiguate returns dir's sanitized name, appending "-<n>" on repeat
// titles (spec.md 4.5: "Collisions on test-case titles are disambiguated
// with a -<n> suffix").
func disambiguate(used map[string]int, title string) string {
	base := sanitizeDirName(title)
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

func sanitizeDirName(title string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	return r.Replace(title)
}

func renderEvidence(pkg *evp.Package, ev evp.Evidence) (name string, data []byte, err error) {
	kind := strings.ToLower(ev.Kind.String())
	switch ev.Kind {
	case evp.EvidenceText:
		s, _ := ev.Value.Plain()
		return kind + ".txt", []byte(s), nil

	case evp.EvidenceRichText:
		s, _ := ev.Value.Plain()
		return kind + ".md", []byte(s), nil

	case evp.EvidenceImage:
		hash, _ := ev.Value.Media()
		mt, r, err := pkg.Media().Get(hash)
		if err != nil {
			return "", nil, err
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return "", nil, &evperrors.Io{Op: "filetree: read media", Err: err}
		}
		return kind + extFor(mt), b, nil

	case evp.EvidenceFile:
		hash, _ := ev.Value.Media()
		_, r, err := pkg.Media().Get(hash)
		if err != nil {
			return "", nil, err
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return "", nil, &evperrors.Io{Op: "filetree: read media", Err: err}
		}
		return kind + filepath.Ext(ev.OriginalFilename), b, nil

	case evp.EvidenceHTTP:
		req, resp, ok := evp.SplitHTTP(ev.Value)
		if !ok {
			return "", nil, &evperrors.ExportFailed{Backend: "filetree", Reason: "malformed http evidence value"}
		}
		var buf bytes.Buffer
		buf.Write(req)
		buf.WriteString("\n\n---\n\n")
		buf.Write(resp)
		return kind + ".http", buf.Bytes(), nil

	default:
		return "", nil, &evperrors.ExportFailed{Backend: "filetree", Reason: "unknown evidence kind"}
	}
}

func extFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
