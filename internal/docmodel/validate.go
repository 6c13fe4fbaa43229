package docmodel

import (
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/manifest.schema.json
var manifestSchemaJSON []byte

//go:embed schema/testcase.schema.json
var testCaseSchemaJSON []byte

var (
	manifestSchema *gojsonschema.Schema
	testCaseSchema *gojsonschema.Schema
)

func init() {
	var err error
	manifestSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchemaJSON))
	if err != nil {
		panic(errors.Wrap(err, "docmodel: compiling manifest schema"))
	}
	testCaseSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(testCaseSchemaJSON))
	if err != nil {
		panic(errors.Wrap(err, "docmodel: compiling testcase schema"))
	}
}

// ValidationError collects every schema/invariant violation found, so
// callers see the whole picture rather than stopping at the first issue.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Reasons, "; ") }

// ValidateManifest checks shape via gojsonschema (including that every media
// checksum is a lowercase 64-hex-digit string), then the invariants checked
// in Go: non-empty custom field IDs, at most one primary custom field, and a
// title of 1..30 characters.
func ValidateManifest(raw []byte) error {
	result, err := manifestSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.Wrap(err, "docmodel: validating manifest against schema")
	}
	var reasons []string
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err == nil {
		reasons = append(reasons, validateManifestInvariants(&m)...)
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validateManifestInvariants(m *Manifest) []string {
	var reasons []string
	primaryCount := 0
	for id, f := range m.CustomTestCaseMetadata {
		if id == "" {
			reasons = append(reasons, "custom metadata field id must not be empty")
		}
		if f.Primary {
			primaryCount++
		}
	}
	if primaryCount > 1 {
		reasons = append(reasons, "at most one custom metadata field may be primary")
	}
	if len(m.Metadata.Title) == 0 {
		reasons = append(reasons, "metadata.title must not be empty")
	}
	if utf8.RuneCountInString(m.Metadata.Title) > 30 {
		reasons = append(reasons, "metadata.title must be at most 30 characters")
	}
	return reasons
}

// ValidateTestCase checks shape via gojsonschema, then that every key of
// "custom" is declared in knownCustomFields (spec.md 3, TestCase.metadata).
func ValidateTestCase(raw []byte, knownCustomFields map[string]bool) error {
	result, err := testCaseSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.Wrap(err, "docmodel: validating test case against schema")
	}
	var reasons []string
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}

	var tc TestCaseDocument
	if err := json.Unmarshal(raw, &tc); err == nil {
		reasons = append(reasons, validateTestCaseInvariants(&tc, knownCustomFields)...)
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validateTestCaseInvariants(tc *TestCaseDocument, knownCustomFields map[string]bool) []string {
	var reasons []string
	for id := range tc.Metadata.Custom {
		if !knownCustomFields[id] {
			reasons = append(reasons, "custom metadata key \""+id+"\" is not declared in the package")
		}
	}
	for i, ev := range tc.Evidence {
		hasFilename := ev.OriginalFilename != ""
		isFileKind := ev.Kind == "File"
		if hasFilename != isFileKind {
			reasons = append(reasons, "evidence index "+strconv.Itoa(i)+" must have original_filename iff kind is File")
		}
	}
	return reasons
}
