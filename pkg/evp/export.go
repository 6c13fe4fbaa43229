package evp

import (
	"github.com/google/uuid"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Scope selects what an export backend should render: the whole package or
// a single test case (spec.md 4.5: "scope ∈ {Package, TestCase(uuid)}").
type Scope struct {
	testCaseID *uuid.UUID
}

// PackageScope selects the whole package (plus a synthesized "metadata" tab
// where a backend has the notion of one, per spec.md 4.5).
func PackageScope() Scope { return Scope{} }

// TestCaseScope selects a single test case by ID.
func TestCaseScope(id uuid.UUID) Scope { return Scope{testCaseID: &id} }

// IsPackage reports whether this scope selects the whole package.
func (s Scope) IsPackage() bool { return s.testCaseID == nil }

// TestCaseID returns the selected test case's ID and true, or the zero
// value and false when the scope selects the whole package.
func (s Scope) TestCaseID() (uuid.UUID, bool) {
	if s.testCaseID == nil {
		return uuid.UUID{}, false
	}
	return *s.testCaseID, true
}

// Options controls export target handling.
type Options struct {
	// Overwrite permits replacing an existing target file (spec.md 4.5
	// "Export target file policy").
	Overwrite bool
}

// Backend renders a Package to target according to scope. export/html,
// export/spreadsheet, and export/filetree each implement exactly this
// contract (spec.md 4.5) — the role the teacher's types.ImageDestination
// plays as the one interface its directory/oci/docker-archive backends all
// satisfy.
type Backend interface {
	Export(pkg *Package, target string, scope Scope, opts Options) error
}

// Export renders the package through backend at target. Target-path
// policy (overwrite consent, atomic replace) is each backend's own
// responsibility via pkg/export's shared helper, not this method's; Export
// only validates the scope against this package before dispatching.
func (p *Package) Export(target string, scope Scope, opts Options, backend Backend) error {
	if id, ok := scope.TestCaseID(); ok {
		if _, found := p.TestCase(id); !found {
			return &evperrors.ExportFailed{Backend: "export", Reason: "scope references an unknown test case " + id.String()}
		}
	}
	return backend.Export(p, target, scope, opts)
}
