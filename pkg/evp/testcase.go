package evp

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/evidenceangel/evidenceangel-go/internal/docmodel"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// TestCaseMetadata is the "metadata" object of a TestCase (spec.md 3).
type TestCaseMetadata struct {
	Title             string
	ExecutionDateTime time.Time
	Passed            *bool // nil = not run / unknown
	Custom            map[string]string
}

// TestCase is a named, UUID-keyed group of evidence items (spec.md 3,
// glossary). It is owned by exactly one Package; there is no API to move a
// TestCase between packages (spec.md 9, Open Question (a)).
type TestCase struct {
	ID       uuid.UUID
	Metadata TestCaseMetadata
	Evidence []Evidence

	extras docmodel.Extras
	owner  *Package
}

// TestCases returns the package's test cases, in order.
func (p *Package) TestCases() []*TestCase {
	out := make([]*TestCase, len(p.testCases))
	copy(out, p.testCases)
	return out
}

// TestCase looks up a test case by UUID.
func (p *Package) TestCase(id uuid.UUID) (*TestCase, bool) {
	for _, tc := range p.testCases {
		if tc.ID == id {
			return tc, true
		}
	}
	return nil, false
}

// CreateTestCase appends a new, empty test case with the given title.
func (p *Package) CreateTestCase(title string) (*TestCase, error) {
	if len(title) == 0 {
		return nil, &evperrors.NameEmpty{Field: "test case title"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, &evperrors.NameTooLong{Field: "test case title", Max: maxTitleLen}
	}
	tc := &TestCase{
		ID: uuid.New(),
		Metadata: TestCaseMetadata{
			Title:             title,
			ExecutionDateTime: time.Now().UTC(),
			Custom:            make(map[string]string),
		},
		owner: p,
	}
	p.testCases = append(p.testCases, tc)
	p.markDirty()
	return tc, nil
}

// DuplicateTestCase deep-clones the test case identified by id, appending
// the clone at the end of the package with a regenerated UUID and a title
// suffix (spec.md 3, "Lifecycle").
func (p *Package) DuplicateTestCase(id uuid.UUID) (*TestCase, error) {
	src, ok := p.TestCase(id)
	if !ok {
		return nil, &evperrors.InvalidTestCase{UUID: id.String(), Reason: "not found"}
	}

	clone := &TestCase{
		ID: uuid.New(),
		Metadata: TestCaseMetadata{
			Title:             truncatedTitleWithSuffix(src.Metadata.Title, " (copy)"),
			ExecutionDateTime: src.Metadata.ExecutionDateTime,
			Custom:            make(map[string]string, len(src.Metadata.Custom)),
		},
		owner: p,
	}
	if src.Metadata.Passed != nil {
		b := *src.Metadata.Passed
		clone.Metadata.Passed = &b
	}
	for k, v := range src.Metadata.Custom {
		clone.Metadata.Custom[k] = v
	}
	for _, ev := range src.Evidence {
		clone.Evidence = append(clone.Evidence, ev.Clone())
	}

	p.testCases = append(p.testCases, clone)
	p.markDirty()
	return clone, nil
}

func truncatedTitleWithSuffix(title, suffix string) string {
	combined := title + suffix
	if len(combined) <= maxTitleLen {
		return combined
	}
	keep := maxTitleLen - len(suffix)
	if keep < 0 {
		keep = 0
	}
	return title[:keep] + suffix
}

// SwapTestCases reorders the package's test cases by swapping the entries
// at adjacent indices i and i+1 (spec.md 6: "reorder (swap adjacent)").
func (p *Package) SwapTestCases(i int) error {
	if i < 0 || i+1 >= len(p.testCases) {
		return &evperrors.Io{Op: "evp: swap test cases", Err: errIndexOutOfRange}
	}
	p.testCases[i], p.testCases[i+1] = p.testCases[i+1], p.testCases[i]
	p.markDirty()
	return nil
}

// DeleteTestCase removes the test case identified by id. Any media it
// alone referenced is not removed here; garbage collection happens at Save
// time, not on every mutation (spec.md 3, "Media is ... garbage-collected
// on save").
func (p *Package) DeleteTestCase(id uuid.UUID) error {
	for i, tc := range p.testCases {
		if tc.ID == id {
			p.testCases = append(p.testCases[:i], p.testCases[i+1:]...)
			p.markDirty()
			return nil
		}
	}
	return &evperrors.InvalidTestCase{UUID: id.String(), Reason: "not found"}
}

func testCaseToDoc(tc *TestCase) docmodel.TestCaseDocument {
	custom := make(map[string]string, len(tc.Metadata.Custom))
	for k, v := range tc.Metadata.Custom {
		custom[k] = v
	}
	var passed *bool
	if tc.Metadata.Passed != nil {
		b := *tc.Metadata.Passed
		passed = &b
	}
	doc := docmodel.TestCaseDocument{
		Schema: testCaseSchema,
		Metadata: docmodel.TestCaseMetadataDoc{
			Title:             tc.Metadata.Title,
			ExecutionDateTime: tc.Metadata.ExecutionDateTime.Format(time.RFC3339),
			Passed:            passed,
			Custom:            custom,
		},
		Evidence: []docmodel.EvidenceDoc{},
		Extras:   tc.extras,
	}
	for _, ev := range tc.Evidence {
		doc.Evidence = append(doc.Evidence, evidenceToDoc(ev))
	}
	return doc
}

// --- Evidence operations on a test case ---

// AppendEvidence appends ev to the end of the test case's evidence list.
func (tc *TestCase) AppendEvidence(ev Evidence) error {
	if err := ev.validate(); err != nil {
		return err
	}
	tc.Evidence = append(tc.Evidence, ev)
	tc.touch()
	return nil
}

// InsertEvidenceAt inserts ev at index i.
func (tc *TestCase) InsertEvidenceAt(i int, ev Evidence) error {
	if err := ev.validate(); err != nil {
		return err
	}
	if i < 0 || i > len(tc.Evidence) {
		return &evperrors.Io{Op: "evp: insert evidence", Err: errIndexOutOfRange}
	}
	tc.Evidence = append(tc.Evidence, Evidence{})
	copy(tc.Evidence[i+1:], tc.Evidence[i:])
	tc.Evidence[i] = ev
	tc.touch()
	return nil
}

// MoveEvidenceUp swaps the evidence at index i with its predecessor.
func (tc *TestCase) MoveEvidenceUp(i int) error {
	if i <= 0 || i >= len(tc.Evidence) {
		return &evperrors.Io{Op: "evp: move evidence up", Err: errIndexOutOfRange}
	}
	tc.Evidence[i-1], tc.Evidence[i] = tc.Evidence[i], tc.Evidence[i-1]
	tc.touch()
	return nil
}

// MoveEvidenceDown swaps the evidence at index i with its successor.
func (tc *TestCase) MoveEvidenceDown(i int) error {
	if i < 0 || i+1 >= len(tc.Evidence) {
		return &evperrors.Io{Op: "evp: move evidence down", Err: errIndexOutOfRange}
	}
	tc.Evidence[i], tc.Evidence[i+1] = tc.Evidence[i+1], tc.Evidence[i]
	tc.touch()
	return nil
}

// RemoveEvidence deletes the evidence at index i.
func (tc *TestCase) RemoveEvidence(i int) error {
	if i < 0 || i >= len(tc.Evidence) {
		return &evperrors.Io{Op: "evp: remove evidence", Err: errIndexOutOfRange}
	}
	tc.Evidence = append(tc.Evidence[:i], tc.Evidence[i+1:]...)
	tc.touch()
	return nil
}

// SetEvidenceCaption edits the caption of the evidence at index i.
func (tc *TestCase) SetEvidenceCaption(i int, caption string) error {
	if i < 0 || i >= len(tc.Evidence) {
		return &evperrors.Io{Op: "evp: set evidence caption", Err: errIndexOutOfRange}
	}
	tc.Evidence[i].Caption = caption
	tc.touch()
	return nil
}

// touch marks the owning package dirty, if this test case is attached to
// one (a TestCase constructed purely in-memory via testCaseFromDoc before
// being appended has no owner yet).
func (tc *TestCase) touch() {
	if tc.owner != nil {
		tc.owner.markDirty()
	}
}
