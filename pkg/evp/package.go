// Package evp is the public API of the evidenceangel-go engine: it opens,
// mutates, saves, and exports Evidence Packages as described in spec.md.
//
// It plays the role the teacher's top-level types.Image/ImageSource
// interfaces play for container images — a single façade external
// collaborators (a CLI, a UI) consume without reaching into internal/*.
package evp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evidenceangel/evidenceangel-go/internal/archive"
	"github.com/evidenceangel/evidenceangel-go/internal/docmodel"
	"github.com/evidenceangel/evidenceangel-go/internal/lockfile"
	"github.com/evidenceangel/evidenceangel-go/internal/mediastore"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

const (
	maxTitleLen     = 30
	defaultTitle    = "Unnamed Evidence Package"
	defaultAuthor   = "Anonymous Author"
	manifestName    = "manifest.json"
	mediaDirName    = "media"
	testCasesDir    = "testcases"
	manifestSchema  = "https://evidenceangel.dev/schema/manifest.1.schema.json"
	testCaseSchema  = "https://evidenceangel.dev/schema/testcase.1.schema.json"
)

// Package is an open handle on an Evidence Package. It is not safe for
// concurrent use by multiple goroutines (spec.md 5: "synchronous and
// single-threaded per package handle").
type Package struct {
	path string
	lock *lockfile.Lock

	dirty bool

	title       string
	description string
	authors     []Author

	customFields      map[string]*CustomField
	customFieldOrder  []string

	testCases []*TestCase

	media    *mediastore.Store
	mediaDir string

	unknownRootFiles map[string][]byte
	manifestExtras   docmodel.Extras
}

// Author is one author entry in a package's metadata.
type Author struct {
	Name  string
	Email string
}

// Create builds a new, empty Evidence Package in memory at path and
// acquires its lock file. The package is not written to disk until Save or
// SaveAs is called.
func Create(path string) (*Package, error) {
	lock, err := lockfile.Acquire(path)
	if err != nil {
		return nil, err
	}
	mediaDir, err := os.MkdirTemp("", "evp-media-*")
	if err != nil {
		lock.Release()
		return nil, &evperrors.Io{Op: "evp: create media staging dir", Err: err}
	}

	p := &Package{
		path:             path,
		lock:             lock,
		title:            defaultTitle,
		authors:          []Author{{Name: defaultAuthor}},
		customFields:     make(map[string]*CustomField),
		media:            mediastore.New(mediaDir),
		mediaDir:         mediaDir,
		unknownRootFiles: make(map[string][]byte),
		dirty:            true,
	}
	return p, nil
}

// Open reads an existing Evidence Package from path, validating its
// manifest and every referenced test case (spec.md 4.3 "Open").
func Open(path string) (*Package, error) {
	lock, err := lockfile.Acquire(path)
	if err != nil {
		return nil, err
	}

	mediaDir, err := os.MkdirTemp("", "evp-media-*")
	if err != nil {
		lock.Release()
		return nil, &evperrors.Io{Op: "evp: create media staging dir", Err: err}
	}

	p := &Package{
		path:             path,
		lock:             lock,
		customFields:     make(map[string]*CustomField),
		media:            mediastore.New(mediaDir),
		mediaDir:         mediaDir,
		unknownRootFiles: make(map[string][]byte),
	}

	if err := p.load(); err != nil {
		lock.Release()
		os.RemoveAll(mediaDir)
		return nil, err
	}
	return p, nil
}

func (p *Package) load() error {
	var manifestRaw []byte
	testCaseRaw := make(map[string][]byte)

	entries, err := archive.Read(p.path, mediaDirName, func(name string, r io.Reader) error {
		// Media entries are adopted without a known MIME type yet; the
		// manifest (read below, since archive.Read has no ordering
		// guarantee between entries) supplies it in a second pass.
		return p.media.AdoptStream(name, "application/octet-stream", r)
	})
	if err != nil {
		return &evperrors.NotAnArchive{Path: p.path, Err: err}
	}

	for _, e := range entries {
		switch {
		case e.Name == manifestName:
			manifestRaw = e.Data
		case len(e.Name) > len(testCasesDir)+1 && e.Name[:len(testCasesDir)+1] == testCasesDir+"/":
			testCaseRaw[e.Name] = e.Data
		default:
			p.unknownRootFiles[e.Name] = e.Data
		}
	}

	if manifestRaw == nil {
		return &evperrors.InvalidManifest{Reason: "manifest.json is missing"}
	}
	if err := docmodel.ValidateManifest(manifestRaw); err != nil {
		return &evperrors.InvalidManifest{Reason: err.Error()}
	}

	var m docmodel.Manifest
	if err := json.Unmarshal(manifestRaw, &m); err != nil {
		return &evperrors.InvalidManifest{Reason: err.Error()}
	}

	p.title = m.Metadata.Title
	p.description = m.Metadata.Description
	for _, a := range m.Metadata.Authors {
		p.authors = append(p.authors, Author{Name: a.Name, Email: a.Email})
	}
	p.manifestExtras = m.Extras

	for id, f := range m.CustomTestCaseMetadata {
		p.customFields[id] = &CustomField{ID: id, Name: f.Name, Description: f.Description, Primary: f.Primary}
		p.customFieldOrder = append(p.customFieldOrder, id)
	}
	sort.Strings(p.customFieldOrder) // deterministic order for a map-sourced set

	// Now that we know each blob's declared MIME type, correct the
	// placeholder adopted above.
	for _, me := range m.Media {
		p.media.Adopt(me.SHA256Checksum, me.MimeType)
		if err := p.media.VerifyChecksum(me.SHA256Checksum); err != nil {
			return err
		}
	}

	knownCustom := make(map[string]bool, len(p.customFieldOrder))
	for id := range p.customFields {
		knownCustom[id] = true
	}

	for _, ref := range m.TestCases {
		name := testCasesDir + "/" + ref.ID + ".json"
		raw, ok := testCaseRaw[name]
		if !ok {
			return &evperrors.InvalidTestCase{UUID: ref.ID, Reason: "referenced by manifest but missing from archive"}
		}
		if err := docmodel.ValidateTestCase(raw, knownCustom); err != nil {
			return &evperrors.InvalidTestCase{UUID: ref.ID, Reason: err.Error()}
		}
		var doc docmodel.TestCaseDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return &evperrors.InvalidTestCase{UUID: ref.ID, Reason: err.Error()}
		}
		tc, err := testCaseFromDoc(ref.ID, &doc)
		if err != nil {
			return err
		}
		tc.owner = p
		p.testCases = append(p.testCases, tc)
	}

	logrus.Debugf("evp: opened %s (%d test cases, %d media blobs)", p.path, len(p.testCases), len(p.media.Iter()))
	return nil
}

func testCaseFromDoc(idStr string, doc *docmodel.TestCaseDocument) (*TestCase, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, &evperrors.InvalidTestCase{UUID: idStr, Reason: "id is not a valid UUID"}
	}
	var passed *bool
	if doc.Metadata.Passed != nil {
		b := *doc.Metadata.Passed
		passed = &b
	}
	execTime, err := time.Parse(time.RFC3339, doc.Metadata.ExecutionDateTime)
	if err != nil {
		return nil, &evperrors.InvalidTestCase{UUID: idStr, Reason: "execution_datetime is not RFC 3339"}
	}

	custom := make(map[string]string, len(doc.Metadata.Custom))
	for k, v := range doc.Metadata.Custom {
		custom[k] = v
	}

	tc := &TestCase{
		ID: id,
		Metadata: TestCaseMetadata{
			Title:             doc.Metadata.Title,
			ExecutionDateTime: execTime,
			Passed:            passed,
			Custom:            custom,
		},
		extras: doc.Extras,
	}
	for _, ed := range doc.Evidence {
		ev, err := evidenceFromDoc(&ed)
		if err != nil {
			return nil, &evperrors.InvalidTestCase{UUID: idStr, Reason: err.Error()}
		}
		tc.Evidence = append(tc.Evidence, ev)
	}
	return tc, nil
}

// Path returns the package's on-disk path (its identity, per spec.md 3).
func (p *Package) Path() string { return p.path }

// Dirty reports whether the package has unsaved mutations.
func (p *Package) Dirty() bool { return p.dirty }

func (p *Package) markDirty() { p.dirty = true }

// Validate checks referential integrity and the custom-field primary
// invariant without performing a save. Exposed publicly (spec.md SPEC_FULL
// "supplemented features") so a UI layer can surface problems proactively.
func (p *Package) Validate() error {
	primaryCount := 0
	for _, f := range p.customFields {
		if f.Primary {
			primaryCount++
		}
	}
	if primaryCount > 1 {
		return &evperrors.DuplicatePrimaryField{}
	}

	known := make(map[string]bool, len(p.customFields))
	for id := range p.customFields {
		known[id] = true
	}

	referenced := p.referencedMedia()
	for hash := range referenced {
		if _, ok := p.mediaEntryByHash(hash); !ok {
			return &evperrors.DanglingMediaRef{SHA256: hash}
		}
	}

	for _, tc := range p.testCases {
		for id := range tc.Metadata.Custom {
			if !known[id] {
				return &evperrors.InvalidTestCase{UUID: tc.ID.String(), Reason: fmt.Sprintf("custom field %q is not declared", id)}
			}
		}
	}
	return nil
}

func (p *Package) mediaEntryByHash(hash string) (mediastore.Entry, bool) {
	for _, e := range p.media.Iter() {
		if e.SHA256 == hash {
			return e, true
		}
	}
	return mediastore.Entry{}, false
}

// referencedMedia computes the union of every media: evidence value's
// checksum across every test case (spec.md "Media GC").
func (p *Package) referencedMedia() map[string]bool {
	refs := make(map[string]bool)
	for _, tc := range p.testCases {
		for _, ev := range tc.Evidence {
			if hash, ok := ev.Value.Media(); ok {
				refs[hash] = true
			}
		}
	}
	return refs
}

// Close releases the package's lock file. It does not prompt about unsaved
// changes; per spec.md 4.3 that is the UI collaborator's responsibility.
func (p *Package) Close() error {
	os.RemoveAll(p.mediaDir)
	return p.lock.Release()
}

// ForceUnlock removes the lock file of the package at path regardless of
// its content, so a stale lock left by a crashed process can be cleared.
func ForceUnlock(path string) error {
	return lockfile.ForceUnlock(path)
}

func packagePathsDiffer(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a != b
	}
	return absA != absB
}
