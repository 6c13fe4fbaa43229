package spreadsheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

func TestSpreadsheetExportOneSheetPerTestCase(t *testing.T) {
	pkg, err := evp.Create(filepath.Join(t.TempDir(), "evidence.evp"))
	require.NoError(t, err)
	defer pkg.Close()
	require.NoError(t, pkg.SetTitle("Report"))

	tc1, err := pkg.CreateTestCase("Alpha")
	require.NoError(t, err)
	require.NoError(t, tc1.AppendEvidence(evp.Evidence{Kind: evp.EvidenceText, Value: evp.PlainValue("result")}))

	_, err = pkg.CreateTestCase("Beta")
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Backend{}.Export(pkg, target, export.PackageScope(), export.Options{}))

	f, err := excelize.OpenFile(target)
	require.NoError(t, err)
	defer f.Close()

	names := f.GetSheetList()
	require.Contains(t, names, "Alpha")
	require.Contains(t, names, "Beta")

	v, err := f.GetCellValue("Alpha", "B1")
	require.NoError(t, err)
	require.Equal(t, "Alpha", v)
}
