package filetree

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

func buildTestPackage(t *testing.T) *evp.Package {
	t.Helper()
	pkg, err := evp.Create(filepath.Join(t.TempDir(), "evidence.evp"))
	require.NoError(t, err)
	t.Cleanup(func() { pkg.Close() })

	require.NoError(t, pkg.SetTitle("Sample"))
	tc, err := pkg.CreateTestCase("Smoke Test")
	require.NoError(t, err)

	sha, err := pkg.Media().Add(bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}), "image/png")
	require.NoError(t, err)

	require.NoError(t, tc.AppendEvidence(evp.Evidence{Kind: evp.EvidenceText, Value: evp.PlainValue("hello")}))
	require.NoError(t, tc.AppendEvidence(evp.Evidence{Kind: evp.EvidenceImage, Value: evp.MediaValue(sha)}))
	return pkg
}

func TestFiletreeExportProducesOneFilePerEvidence(t *testing.T) {
	pkg := buildTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.zip")

	require.NoError(t, Backend{}.Export(pkg, target, export.PackageScope(), export.Options{}))

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Smoke Test/000-text.txt")
	assert.Contains(t, names, "Smoke Test/001-image.png")
}

func TestFiletreeExportRejectsExistingTargetWithoutOverwrite(t *testing.T) {
	pkg := buildTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.zip")

	require.NoError(t, Backend{}.Export(pkg, target, export.PackageScope(), export.Options{}))
	err := Backend{}.Export(pkg, target, export.PackageScope(), export.Options{})
	require.Error(t, err)

	require.NoError(t, Backend{}.Export(pkg, target, export.PackageScope(), export.Options{Overwrite: true}))
}
