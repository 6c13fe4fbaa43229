package evp

import (
	"encoding/base64"
	"strings"

	"github.com/evidenceangel/evidenceangel-go/internal/docmodel"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// EvidenceKind is the tag of an Evidence variant (spec.md 3).
type EvidenceKind int

const (
	EvidenceText EvidenceKind = iota
	EvidenceRichText
	EvidenceImage
	EvidenceHTTP
	EvidenceFile
)

func (k EvidenceKind) String() string {
	switch k {
	case EvidenceText:
		return "Text"
	case EvidenceRichText:
		return "RichText"
	case EvidenceImage:
		return "Image"
	case EvidenceHTTP:
		return "Http"
	case EvidenceFile:
		return "File"
	default:
		return "Unknown"
	}
}

func parseEvidenceKind(s string) (EvidenceKind, bool) {
	switch s {
	case "Text":
		return EvidenceText, true
	case "RichText":
		return EvidenceRichText, true
	case "Image":
		return EvidenceImage, true
	case "Http":
		return EvidenceHTTP, true
	case "File":
		return EvidenceFile, true
	default:
		return 0, false
	}
}

// EvidenceValue is the discriminated "plain:"/"media:"/"base64:" string
// from spec.md 3, exposed as a small closed variant rather than a bare
// string so callers can't hand-construct malformed values.
type EvidenceValue struct {
	raw string
}

// PlainValue wraps literal UTF-8 text as an evidence value.
func PlainValue(s string) EvidenceValue { return EvidenceValue{raw: "plain:" + s} }

// MediaValue wraps a SHA-256 hex digest referencing a Media Store entry.
// Callers should obtain sha256hex from Package.Media().Add, never hand-roll
// one (spec.md 4.3 referential integrity).
func MediaValue(sha256hex string) EvidenceValue { return EvidenceValue{raw: "media:" + sha256hex} }

// Base64Value wraps raw bytes inlined as unpadded base64. HTTPValue uses it
// for Http payloads; nothing in this package inlines media this way on a
// checksum collision.
func Base64Value(b []byte) EvidenceValue {
	return EvidenceValue{raw: "base64:" + base64.RawStdEncoding.EncodeToString(b)}
}

func evidenceValueFromRaw(raw string) (EvidenceValue, error) {
	for _, prefix := range []string{"plain:", "media:", "base64:"} {
		if strings.HasPrefix(raw, prefix) {
			return EvidenceValue{raw: raw}, nil
		}
	}
	return EvidenceValue{}, &evperrors.InvalidTestCase{Reason: "evidence value has no recognized plain:/media:/base64: prefix"}
}

// Plain returns the literal text and true if this value is a plain: value.
func (v EvidenceValue) Plain() (string, bool) {
	if s, ok := strings.CutPrefix(v.raw, "plain:"); ok {
		return s, true
	}
	return "", false
}

// Media returns the SHA-256 hex digest and true if this value is a media:
// value.
func (v EvidenceValue) Media() (string, bool) {
	if s, ok := strings.CutPrefix(v.raw, "media:"); ok {
		return s, true
	}
	return "", false
}

// Base64 returns the decoded bytes and true if this value is a base64:
// value.
func (v EvidenceValue) Base64() ([]byte, bool) {
	s, ok := strings.CutPrefix(v.raw, "base64:")
	if !ok {
		return nil, false
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// String returns the raw discriminated-string form, as stored on disk.
func (v EvidenceValue) String() string { return v.raw }

// httpSeparator is the 0x1E separator joining an Http evidence item's
// request and response halves (spec.md 3).
const httpSeparator = "\x1e"

// HTTPValue builds the request+0x1E+response payload for Http evidence and
// wraps it as a base64: value (Http payloads are binary-safe, so they are
// never stored as plain: text).
func HTTPValue(request, response []byte) EvidenceValue {
	buf := make([]byte, 0, len(request)+1+len(response))
	buf = append(buf, request...)
	buf = append(buf, httpSeparator[0])
	buf = append(buf, response...)
	return Base64Value(buf)
}

// SplitHTTP decodes an Http evidence value's payload back into its request
// and response halves. ok is false if the value has no embedded separator.
func SplitHTTP(v EvidenceValue) (request, response []byte, ok bool) {
	b, isB64 := v.Base64()
	if !isB64 {
		return nil, nil, false
	}
	idx := strings.IndexByte(string(b), httpSeparator[0])
	if idx < 0 {
		return nil, nil, false
	}
	return b[:idx], b[idx+1:], true
}

// Evidence is one atomic piece of captured data within a TestCase
// (spec.md 3).
type Evidence struct {
	Kind             EvidenceKind
	Value            EvidenceValue
	Caption          string
	OriginalFilename string // only meaningful when Kind == EvidenceFile
}

// validate enforces the "original_filename present iff kind == File"
// invariant (spec.md 3, 8).
func (e Evidence) validate() error {
	hasFilename := e.OriginalFilename != ""
	isFile := e.Kind == EvidenceFile
	if hasFilename != isFile {
		return &evperrors.InvalidTestCase{Reason: "original_filename must be present iff kind is File"}
	}
	return nil
}

// Clone deep-copies an evidence item. Evidence.Value and Caption are plain
// strings so the copy is trivially independent; Clone exists as its own
// method (SPEC_FULL "supplemented features") since duplicating a single
// item is a natural standalone operation even though spec.md only names
// whole-test-case duplication.
func (e Evidence) Clone() Evidence { return e }

func evidenceFromDoc(doc *docmodel.EvidenceDoc) (Evidence, error) {
	kind, ok := parseEvidenceKind(doc.Kind)
	if !ok {
		return Evidence{}, &evperrors.InvalidTestCase{Reason: "unknown evidence kind: " + doc.Kind}
	}
	value, err := evidenceValueFromRaw(doc.Value)
	if err != nil {
		return Evidence{}, err
	}
	ev := Evidence{
		Kind:             kind,
		Value:            value,
		Caption:          doc.Caption,
		OriginalFilename: doc.OriginalFilename,
	}
	if err := ev.validate(); err != nil {
		return Evidence{}, err
	}
	return ev, nil
}

func evidenceToDoc(ev Evidence) docmodel.EvidenceDoc {
	return docmodel.EvidenceDoc{
		Kind:             ev.Kind.String(),
		Value:            ev.Value.String(),
		Caption:          ev.Caption,
		OriginalFilename: ev.OriginalFilename,
	}
}
