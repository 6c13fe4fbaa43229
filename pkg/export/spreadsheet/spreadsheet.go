// Package spreadsheet implements the workbook export backend (spec.md 4.5):
// one worksheet per test case, a header block of metadata followed by the
// evidence in order, grounded on github.com/xuri/excelize/v2 the way
// dc4eu-vc uses it for structured multi-sheet report generation.
package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

// Backend implements export.Backend by writing an xlsx workbook.
type Backend struct{}

const defaultSheetName = "Sheet1"

// Export writes pkg (or, under a TestCase scope, just that test case) to
// target as a workbook with one worksheet per test case.
func (Backend) Export(pkg *evp.Package, target string, scope export.Scope, opts export.Options) error {
	pf, err := export.OpenTarget(target, opts)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	var testCases []*evp.TestCase
	if id, ok := scope.TestCaseID(); ok {
		tc, found := pkg.TestCase(id)
		if !found {
			return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: "scope references an unknown test case"}
		}
		testCases = []*evp.TestCase{tc}
	} else {
		testCases = pkg.TestCases()
	}

	f := excelize.NewFile()
	customFields := pkg.CustomFields()

	used := make(map[string]int)
	for i, tc := range testCases {
		name := disambiguate(used, sheetName(tc.Metadata.Title))
		if i == 0 {
			if err := f.SetSheetName(defaultSheetName, name); err != nil {
				return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: err.Error()}
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: err.Error()}
		}
		if err := writeWorksheet(f, pkg, name, tc, customFields); err != nil {
			return err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return &evperrors.Io{Op: "spreadsheet: serialize workbook", Err: err}
	}
	if _, err := io.Copy(pf, buf); err != nil {
		return &evperrors.Io{Op: "spreadsheet: write target", Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &evperrors.Io{Op: "spreadsheet: commit export", Err: err}
	}
	return nil
}

func writeWorksheet(f *excelize.File, pkg *evp.Package, sheet string, tc *evp.TestCase, fields []evp.CustomField) error {
	row := 1
	set := func(col string, v any) error {
		return f.SetCellValue(sheet, col+strconv.Itoa(row), v)
	}

	if err := set("A", "Title"); err != nil {
		return wrapSheetErr(err)
	}
	if err := set("B", tc.Metadata.Title); err != nil {
		return wrapSheetErr(err)
	}
	row++

	if err := set("A", "Execution Time"); err != nil {
		return wrapSheetErr(err)
	}
	if err := set("B", tc.Metadata.ExecutionDateTime.Format("2006-01-02T15:04:05Z07:00")); err != nil {
		return wrapSheetErr(err)
	}
	row++

	passed := "unknown"
	if tc.Metadata.Passed != nil {
		if *tc.Metadata.Passed {
			passed = "true"
		} else {
			passed = "false"
		}
	}
	if err := set("A", "Passed"); err != nil {
		return wrapSheetErr(err)
	}
	if err := set("B", passed); err != nil {
		return wrapSheetErr(err)
	}
	row++

	for _, field := range fields {
		if err := set("A", field.Name); err != nil {
			return wrapSheetErr(err)
		}
		if err := set("B", tc.Metadata.Custom[field.ID]); err != nil {
			return wrapSheetErr(err)
		}
		row++
	}

	row++ // blank separator row
	if err := set("A", "Kind"); err != nil {
		return wrapSheetErr(err)
	}
	if err := set("B", "Caption"); err != nil {
		return wrapSheetErr(err)
	}
	if err := set("C", "Value"); err != nil {
		return wrapSheetErr(err)
	}
	row++

	for _, ev := range tc.Evidence {
		if err := set("A", ev.Kind.String()); err != nil {
			return wrapSheetErr(err)
		}
		if err := set("B", ev.Caption); err != nil {
			return wrapSheetErr(err)
		}
		if err := writeEvidenceCell(f, pkg, sheet, row, ev); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeEvidenceCell(f *excelize.File, pkg *evp.Package, sheet string, row int, ev evp.Evidence) error {
	cell := "C" + strconv.Itoa(row)
	switch ev.Kind {
	case evp.EvidenceText, evp.EvidenceRichText:
		s, _ := ev.Value.Plain()
		return wrapSheetErr(f.SetCellValue(sheet, cell, s))

	case evp.EvidenceImage:
		hash, _ := ev.Value.Media()
		mt, r, err := pkg.Media().Get(hash)
		if err != nil {
			return err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return &evperrors.Io{Op: "spreadsheet: read media", Err: err}
		}
		pic := &excelize.Picture{Extension: extensionFor(mt), File: data}
		if err := f.AddPictureFromBytes(sheet, cell, pic); err != nil {
			return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: err.Error()}
		}
		return nil

	case evp.EvidenceFile:
		hash, _ := ev.Value.Media()
		_, r, err := pkg.Media().Get(hash)
		if err != nil {
			return err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return &evperrors.Io{Op: "spreadsheet: read media", Err: err}
		}
		// excelize has no generic file-attachment object, so fall back to
		// a textual summary row per spec.md 4.5.
		return wrapSheetErr(f.SetCellValue(sheet, cell, fmt.Sprintf("File: %s, %d bytes", ev.OriginalFilename, len(data))))

	case evp.EvidenceHTTP:
		req, resp, ok := evp.SplitHTTP(ev.Value)
		if !ok {
			return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: "malformed http evidence value"}
		}
		return wrapSheetErr(f.SetCellValue(sheet, cell, "Request:\n"+string(req)+"\n\nResponse:\n"+string(resp)))

	default:
		return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: "unknown evidence kind"}
	}
}

func wrapSheetErr(err error) error {
	if err == nil {
		return nil
	}
	return &evperrors.ExportFailed{Backend: "spreadsheet", Reason: err.Error()}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".jpg" // excelize's supported picture set otherwise defaults to jpeg
	}
}

// sheetName clamps title to Excel's 31-character, delimiter-free sheet
// name constraint.
func sheetName(title string) string {
	r := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	name := r.Replace(title)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Sheet"
	}
	return name
}

func disambiguate(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	suffix := fmt.Sprintf("-%d", n)
	if len(name)+len(suffix) > 31 {
		name = name[:31-len(suffix)]
	}
	return name + suffix
}
