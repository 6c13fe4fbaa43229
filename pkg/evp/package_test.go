package evp

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSaveReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.evp")

	pkg, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, pkg.SetTitle("My Package"))
	require.NoError(t, pkg.AddAuthor("Ada Lovelace", "ada@example.com"))

	tc, err := pkg.CreateTestCase("Login flow")
	require.NoError(t, err)

	sha, err := pkg.Media().Add(bytes.NewReader([]byte("fake png bytes")), "image/png")
	require.NoError(t, err)

	require.NoError(t, tc.AppendEvidence(Evidence{Kind: EvidenceText, Value: PlainValue("it worked")}))
	require.NoError(t, tc.AppendEvidence(Evidence{Kind: EvidenceImage, Value: MediaValue(sha)}))
	assert.True(t, pkg.Dirty())

	require.NoError(t, pkg.Save())
	assert.False(t, pkg.Dirty())
	require.NoError(t, pkg.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "My Package", reopened.Title())
	require.Len(t, reopened.Authors(), 2)
	assert.Equal(t, "Ada Lovelace", reopened.Authors()[1].Name)

	tcs := reopened.TestCases()
	require.Len(t, tcs, 1)
	require.Len(t, tcs[0].Evidence, 2)

	text, ok := tcs[0].Evidence[0].Value.Plain()
	require.True(t, ok)
	assert.Equal(t, "it worked", text)

	hash, ok := tcs[0].Evidence[1].Value.Media()
	require.True(t, ok)
	assert.Equal(t, sha, hash)

	mt, r, err := reopened.Media().Get(hash)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "image/png", mt)
}

func TestMediaGCDropsUnreferencedBlobOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.evp")

	pkg, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, pkg.SetTitle("GC Test"))

	tc, err := pkg.CreateTestCase("Case")
	require.NoError(t, err)

	sha, err := pkg.Media().Add(bytes.NewReader([]byte("orphan")), "application/octet-stream")
	require.NoError(t, err)
	require.NoError(t, tc.AppendEvidence(Evidence{Kind: EvidenceImage, Value: MediaValue(sha)}))
	require.NoError(t, pkg.Save())

	require.NoError(t, tc.RemoveEvidence(0))
	require.NoError(t, pkg.Save())

	_, _, err = pkg.Media().Get(sha)
	require.Error(t, err)
	require.NoError(t, pkg.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Empty(t, reopened.Media().List())
}

func TestDeduplicatesIdenticalMedia(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "evidence.evp"))
	require.NoError(t, err)
	defer pkg.Close()

	a, err := pkg.Media().Add(bytes.NewReader([]byte("same bytes")), "text/plain")
	require.NoError(t, err)
	b, err := pkg.Media().Add(bytes.NewReader([]byte("same bytes")), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, pkg.Media().List(), 1)
}

func TestUnknownManifestKeyIsPreservedAcrossSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.evp")

	pkg, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, pkg.SetTitle("Forward Compat"))
	pkg.manifestExtras.Set("future_field", []byte(`"from the future"`))

	require.NoError(t, pkg.Save())
	require.NoError(t, pkg.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.manifestExtras.Get("future_field")
	require.True(t, ok)
	assert.Equal(t, `"from the future"`, string(v))
}

func TestValidateCatchesDuplicatePrimaryField(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "evidence.evp"))
	require.NoError(t, err)
	defer pkg.Close()

	idA, err := pkg.AddCustomField("Environment", "")
	require.NoError(t, err)
	idB, err := pkg.AddCustomField("Tester", "")
	require.NoError(t, err)

	require.NoError(t, pkg.PromotePrimary(idA))
	pkg.customFields[idB].Primary = true // force the invariant violation directly

	require.Error(t, pkg.Validate())
}
