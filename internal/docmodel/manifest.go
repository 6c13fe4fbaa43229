package docmodel

import (
	"encoding/json"
)

// Author is one author entry in a package's metadata.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// PackageMetadata is the "metadata" object of manifest.json.
type PackageMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Authors     []Author `json:"authors"`
}

// CustomMetadataField is one entry of manifest.json's
// custom_test_case_metadata map.
type CustomMetadataField struct {
	ID          string `json:"-"` // the map key, not serialized inside the value
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
}

// MediaEntry is one entry of manifest.json's "media" array.
type MediaEntry struct {
	SHA256Checksum string `json:"sha256_checksum"`
	MimeType       string `json:"mime_type"`
}

// TestCaseRef is one entry of manifest.json's "test_cases" array.
type TestCaseRef struct {
	ID string `json:"id"`
}

// Manifest is the typed, order-preserving representation of manifest.json.
type Manifest struct {
	Schema                 string                          `json:"$schema,omitempty"`
	Metadata               PackageMetadata                 `json:"metadata"`
	CustomTestCaseMetadata map[string]CustomMetadataField `json:"custom_test_case_metadata"`
	Media                  []MediaEntry                   `json:"media"`
	TestCases              []TestCaseRef                  `json:"test_cases"`

	Extras Extras `json:"-"`
}

var manifestKnownKeys = map[string]bool{
	"$schema": true, "metadata": true, "custom_test_case_metadata": true,
	"media": true, "test_cases": true,
}

// MarshalJSON emits known fields in schema-declared order followed by
// extras in their observed order, per spec.md 4.2 "Canonical output".
func (m Manifest) MarshalJSON() ([]byte, error) {
	type known Manifest
	body, err := json.Marshal(known(m))
	if err != nil {
		return nil, err
	}
	if m.Extras.Len() == 0 {
		return body, nil
	}
	// body is a '{'...'}' object with at least the "metadata" field, so it
	// is always safe to splice extras in before the final brace.
	out := append([]byte(nil), body[:len(body)-1]...)
	out, err = m.Extras.appendRawObjectFields(out)
	if err != nil {
		return nil, err
	}
	return append(out, '}'), nil
}

// UnmarshalJSON decodes known fields and retains unknown top-level keys in
// Extras, in their original order.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type known Manifest
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*m = Manifest(k)
	for id, f := range m.CustomTestCaseMetadata {
		f.ID = id
		m.CustomTestCaseMetadata[id] = f
	}

	extras, err := extractExtras(data, manifestKnownKeys)
	if err != nil {
		return err
	}
	m.Extras = extras
	return nil
}
