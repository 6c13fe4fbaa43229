package docmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCaseDocumentUnknownFieldsRoundTrip(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Case 1","execution_datetime":"2026-01-01T00:00:00Z","passed":true,"custom":{}},"evidence":[],"internal_note":"keep me"}`)

	var tc TestCaseDocument
	require.NoError(t, json.Unmarshal(raw, &tc))
	assert.Equal(t, 1, tc.Extras.Len())

	out, err := json.Marshal(tc)
	require.NoError(t, err)

	var roundTripped, original map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	require.NoError(t, json.Unmarshal(raw, &original))
	assert.Equal(t, original, roundTripped)
}

func TestValidateTestCaseRejectsUnknownCustomField(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Case 1","execution_datetime":"2026-01-01T00:00:00Z","passed":null,"custom":{"env":"staging"}},"evidence":[]}`)
	err := ValidateTestCase(raw, map[string]bool{})
	require.Error(t, err)
}

func TestValidateTestCaseAcceptsKnownCustomField(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Case 1","execution_datetime":"2026-01-01T00:00:00Z","passed":null,"custom":{"env":"staging"}},"evidence":[]}`)
	require.NoError(t, ValidateTestCase(raw, map[string]bool{"env": true}))
}

func TestValidateTestCaseRejectsFileKindMismatch(t *testing.T) {
	raw := []byte(`{"metadata":{"title":"Case 1","execution_datetime":"2026-01-01T00:00:00Z","passed":null,"custom":{}},"evidence":[{"kind":"Text","value":"plain:hi","original_filename":"x.txt"}]}`)
	err := ValidateTestCase(raw, map[string]bool{})
	require.Error(t, err)
}
