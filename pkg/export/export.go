// Package export holds the target-file policy shared by every export
// backend (spec.md 4.5) and re-exports the Scope/Options/Backend contract
// from pkg/evp so a backend package only needs to import pkg/export for the
// types it must satisfy, alongside pkg/evp for the Package model itself.
package export

import (
	"os"

	"github.com/google/renameio/v2"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Scope, Options, and Backend are aliases of the identically-named types
// declared on pkg/evp.Package.Export's signature, not copies — a value
// satisfying export.Backend is interchangeable with one satisfying
// evp.Backend.
type (
	Scope   = evp.Scope
	Options = evp.Options
	Backend = evp.Backend
)

// PackageScope and TestCaseScope forward to their pkg/evp equivalents.
var (
	PackageScope  = evp.PackageScope
	TestCaseScope = evp.TestCaseScope
)

// OpenTarget applies spec.md 4.5's "Export target file policy": fail with
// ExportTargetExists unless the caller opted into overwrite, otherwise
// return a pending file to write into and atomically commit, the same
// google/renameio/v2 discipline pkg/evp/save.go uses for package saves.
func OpenTarget(path string, opts Options) (*renameio.PendingFile, error) {
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, &evperrors.ExportTargetExists{Path: path}
		} else if !os.IsNotExist(err) {
			return nil, &evperrors.Io{Op: "export: stat target", Err: err}
		}
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, &evperrors.Io{Op: "export: open pending file", Err: err}
	}
	return pf, nil
}
