package html

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

func TestHTMLExportEmbedsImageAndTabs(t *testing.T) {
	pkg, err := evp.Create(filepath.Join(t.TempDir(), "evidence.evp"))
	require.NoError(t, err)
	defer pkg.Close()
	require.NoError(t, pkg.SetTitle("Report"))

	tc1, err := pkg.CreateTestCase("First")
	require.NoError(t, err)
	sha, err := pkg.Media().Add(bytes.NewReader([]byte("fake-image-bytes")), "image/png")
	require.NoError(t, err)
	require.NoError(t, tc1.AppendEvidence(evp.Evidence{Kind: evp.EvidenceImage, Value: evp.MediaValue(sha)}))
	require.NoError(t, tc1.AppendEvidence(evp.Evidence{Kind: evp.EvidenceRichText, Value: evp.PlainValue("# Heading\n")}))

	_, err = pkg.CreateTestCase("Second")
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out.html")
	require.NoError(t, Backend{}.Export(pkg, target, export.PackageScope(), export.Options{}))

	out, err := os.ReadFile(target)
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, `id="tab-metadata"`)
	assert.Contains(t, content, `id="tab0"`)
	assert.Contains(t, content, `id="tab1"`)
	assert.Contains(t, content, "data:image/png;base64,")
	assert.Contains(t, content, "<h1>Heading</h1>")
}
