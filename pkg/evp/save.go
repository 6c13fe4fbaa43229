package evp

import (
	"encoding/json"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evidenceangel/evidenceangel-go/internal/archive"
	"github.com/evidenceangel/evidenceangel-go/internal/docmodel"
	"github.com/evidenceangel/evidenceangel-go/internal/lockfile"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Save rebuilds the package's archive at its current path, atomically
// (spec.md 4.3 "Save"): the new archive is written to a temp file beside
// the target via google/renameio/v2 and only then renamed over it. On any
// failure the temp file is removed and the original is untouched — the
// packaged equivalent of the teacher's copy/blob.go "succeeded bool; defer"
// rollback idiom.
func (p *Package) Save() error {
	if err := p.Validate(); err != nil {
		return err
	}

	pf, err := renameio.NewPendingFile(p.path, renameio.WithPermissions(0o644))
	if err != nil {
		return &evperrors.Io{Op: "evp: open pending file", Err: err}
	}
	defer pf.Cleanup()

	if err := p.writeArchive(pf); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &evperrors.Io{Op: "evp: commit save", Err: err}
	}

	p.dirty = false
	logrus.Debugf("evp: saved %s (%d test cases)", p.path, len(p.testCases))
	return nil
}

// SaveAs serializes the package to a new path, acquiring that path's lock
// and releasing the previous one (the handle now identifies the new path,
// per spec.md 3: "identity equal to its file path").
func (p *Package) SaveAs(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !packagePathsDiffer(p.path, path) {
		return p.Save()
	}

	newLock, err := lockfile.Acquire(path)
	if err != nil {
		return err
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		newLock.Release()
		return &evperrors.Io{Op: "evp: open pending file", Err: err}
	}
	defer pf.Cleanup()

	if err := p.writeArchive(pf); err != nil {
		newLock.Release()
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		newLock.Release()
		return &evperrors.Io{Op: "evp: commit save", Err: err}
	}

	oldLock := p.lock
	p.lock = newLock
	p.path = path
	p.dirty = false
	oldLock.Release()

	logrus.Debugf("evp: saved %s as new path (%d test cases)", p.path, len(p.testCases))
	return nil
}

// writeArchive serializes the manifest, every test case, unknown passthrough
// root files, and only the referenced media blobs into w (spec.md 3 "Media
// is ... garbage-collected on save", 4.3 "Save").
func (p *Package) writeArchive(w *renameio.PendingFile) error {
	zw := archive.NewWriter(w)

	manifest := p.buildManifestDoc()
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "evp: marshal manifest")
	}
	if err := zw.WriteJSON(manifestName, manifestBytes); err != nil {
		return &evperrors.Io{Op: "evp: write manifest", Err: err}
	}

	for _, tc := range p.testCases {
		doc := testCaseToDoc(tc)
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "evp: marshal test case %s", tc.ID)
		}
		name := testCasesDir + "/" + tc.ID.String() + ".json"
		if err := zw.WriteJSON(name, raw); err != nil {
			return &evperrors.Io{Op: "evp: write test case " + tc.ID.String(), Err: err}
		}
	}

	referenced := p.referencedMedia()
	for _, e := range p.media.Iter() {
		if !referenced[e.SHA256] {
			continue // garbage collected: unreferenced media is dropped on save
		}
		if err := p.streamMediaBlob(zw, e.SHA256); err != nil {
			return err
		}
	}
	// Drop in-memory entries for anything not referenced, mirroring what
	// was just written, so the in-memory model matches the saved archive.
	for _, e := range p.media.Iter() {
		if referenced[e.SHA256] {
			continue
		}
		if err := p.media.Remove(e.SHA256); err != nil {
			logrus.Warnf("evp: gc: failed to remove unreferenced blob %s: %v", e.SHA256, err)
		}
	}

	for name, data := range p.unknownRootFiles {
		if err := zw.WriteJSON(name, data); err != nil {
			return &evperrors.Io{Op: "evp: write preserved file " + name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return &evperrors.Io{Op: "evp: finalize archive", Err: err}
	}
	return nil
}

func (p *Package) streamMediaBlob(zw *archive.Writer, sha256hex string) error {
	_, r, err := p.media.Get(sha256hex)
	if err != nil {
		return err
	}
	defer r.Close()
	name := mediaDirName + "/" + sha256hex
	if err := zw.WriteStream(name, r); err != nil {
		return &evperrors.Io{Op: "evp: stream media blob " + sha256hex, Err: err}
	}
	return nil
}

func (p *Package) buildManifestDoc() docmodel.Manifest {
	authors := make([]docmodel.Author, len(p.authors))
	for i, a := range p.authors {
		authors[i] = docmodel.Author{Name: a.Name, Email: a.Email}
	}

	customFields := make(map[string]docmodel.CustomMetadataField, len(p.customFields))
	for id, f := range p.customFields {
		customFields[id] = docmodel.CustomMetadataField{
			Name:        f.Name,
			Description: f.Description,
			Primary:     f.Primary,
		}
	}

	referenced := p.referencedMedia()
	media := []docmodel.MediaEntry{}
	for _, e := range p.media.Iter() {
		if !referenced[e.SHA256] {
			continue
		}
		media = append(media, docmodel.MediaEntry{SHA256Checksum: e.SHA256, MimeType: e.MimeType})
	}

	testCaseRefs := []docmodel.TestCaseRef{}
	for _, tc := range p.testCases {
		testCaseRefs = append(testCaseRefs, docmodel.TestCaseRef{ID: tc.ID.String()})
	}

	return docmodel.Manifest{
		Schema: manifestSchema,
		Metadata: docmodel.PackageMetadata{
			Title:       p.title,
			Description: p.description,
			Authors:     authors,
		},
		CustomTestCaseMetadata: customFields,
		Media:                  media,
		TestCases:              testCaseRefs,
		Extras:                 p.manifestExtras,
	}
}
