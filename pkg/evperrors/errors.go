// Package evperrors defines the typed error taxonomy raised across the
// evidenceangel-go engine. Each kind is a concrete struct implementing error
// so that callers can recover the structured payload with errors.As, while
// internal call sites still wrap causes with github.com/pkg/errors to keep a
// readable chain for logs.
package evperrors

import "fmt"

// Io wraps an underlying filesystem error.
type Io struct {
	Op  string
	Err error
}

func (e *Io) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *Io) Unwrap() error { return e.Err }

// NotAnArchive is raised when the target file is not a readable ZIP.
type NotAnArchive struct {
	Path string
	Err  error
}

func (e *NotAnArchive) Error() string {
	return fmt.Sprintf("%s: not an evidence package archive: %v", e.Path, e.Err)
}
func (e *NotAnArchive) Unwrap() error { return e.Err }

// InvalidManifest is raised when manifest.json is missing, malformed, or
// fails schema/invariant validation.
type InvalidManifest struct {
	Reason string
}

func (e *InvalidManifest) Error() string { return fmt.Sprintf("invalid manifest: %s", e.Reason) }

// InvalidTestCase is raised when a testcases/<uuid>.json document is missing
// or invalid.
type InvalidTestCase struct {
	UUID   string
	Reason string
}

func (e *InvalidTestCase) Error() string {
	return fmt.Sprintf("invalid test case %s: %s", e.UUID, e.Reason)
}

// DanglingMediaRef is raised when evidence references media absent from the
// package's media store.
type DanglingMediaRef struct {
	SHA256 string
}

func (e *DanglingMediaRef) Error() string {
	return fmt.Sprintf("dangling media reference: %s", e.SHA256)
}

// ChecksumCollision is raised when two distinct payloads hash to the same
// SHA-256, or a stored blob no longer matches its recorded key.
type ChecksumCollision struct {
	SHA256 string
}

func (e *ChecksumCollision) Error() string {
	return fmt.Sprintf("checksum collision or tamper detected for %s", e.SHA256)
}

// Locked is raised when a package's lock file is present on open.
type Locked struct {
	PID string
}

func (e *Locked) Error() string { return fmt.Sprintf("package is locked by pid %s", e.PID) }

// NameTooLong is raised when a title exceeds 30 characters.
type NameTooLong struct {
	Field string
	Max   int
}

func (e *NameTooLong) Error() string {
	return fmt.Sprintf("%s exceeds maximum length of %d characters", e.Field, e.Max)
}

// NameEmpty is raised when a required title/name is empty.
type NameEmpty struct {
	Field string
}

func (e *NameEmpty) Error() string { return fmt.Sprintf("%s must not be empty", e.Field) }

// DuplicatePrimaryField is raised when more than one custom field is marked primary.
type DuplicatePrimaryField struct {
	ExistingID string
	NewID      string
}

func (e *DuplicatePrimaryField) Error() string {
	return fmt.Sprintf("field %s is already primary, cannot also mark %s primary", e.ExistingID, e.NewID)
}

// MarkupParseError is raised by the AngelMark parser on malformed input.
type MarkupParseError struct {
	Line     int
	Column   int
	Expected string
}

func (e *MarkupParseError) Error() string {
	return fmt.Sprintf("angelmark parse error at %d:%d: expected %s", e.Line, e.Column, e.Expected)
}

// ExportTargetExists is raised when an export destination exists without
// overwrite consent.
type ExportTargetExists struct {
	Path string
}

func (e *ExportTargetExists) Error() string {
	return fmt.Sprintf("export target already exists: %s", e.Path)
}

// ExportFailed is raised on a backend-specific export failure.
type ExportFailed struct {
	Backend string
	Reason  string
}

func (e *ExportFailed) Error() string {
	return fmt.Sprintf("%s export failed: %s", e.Backend, e.Reason)
}
