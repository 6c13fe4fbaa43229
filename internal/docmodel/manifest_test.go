package docmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestUnknownFieldsRoundTrip(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Demo","authors":[{"name":"Ada"}]},"custom_test_case_metadata":{},"media":[],"test_cases":[],"vendor":{"x":1}}`)

	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, 1, m.Extras.Len())

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var roundTripped, original map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	require.NoError(t, json.Unmarshal(raw, &original))
	assert.Equal(t, original, roundTripped)
}

func TestManifestCustomFieldIDPopulatedFromMapKey(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Demo","authors":[]},"custom_test_case_metadata":{"env":{"name":"Environment","primary":true}},"media":[],"test_cases":[]}`)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "env", m.CustomTestCaseMetadata["env"].ID)
}

func TestValidateManifestRejectsMultiplePrimary(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Demo","authors":[]},"custom_test_case_metadata":{"a":{"name":"A","primary":true},"b":{"name":"B","primary":true}},"media":[],"test_cases":[]}`)
	err := ValidateManifest(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary")
}

func TestValidateManifestRejectsLongTitle(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"this title is absolutely way too long","authors":[]},"custom_test_case_metadata":{},"media":[],"test_cases":[]}`)
	err := ValidateManifest(raw)
	require.Error(t, err)
}

func TestValidateManifestAcceptsWellFormed(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Demo","authors":[{"name":"Ada"}]},"custom_test_case_metadata":{},"media":[],"test_cases":[]}`)
	require.NoError(t, ValidateManifest(raw))
}
