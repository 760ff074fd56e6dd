package claimform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"expense_automation/data"
	claimformInterface "expense_automation/service/claimform/interfaces"
	"expense_automation/service/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

// newTemplate writes a minimal blank claim form with stale values in the
// data rows, so clearing behavior is observable.
func newTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.xlsx")

	workbook := excelize.NewFile()
	for row := startRow; row <= endRow; row++ {
		cell, err := excelize.CoordinatesToCellName(colSupplierName, row)
		assert.NoError(t, err)
		assert.NoError(t, workbook.SetCellValue("Sheet1", cell, "STALE"))
	}
	assert.NoError(t, workbook.SaveAs(path))
	assert.NoError(t, workbook.Close())
	return path
}

func testHeader() *data.ClaimHeader {
	return &data.ClaimHeader{
		EmployeeName: "WANG TING I",
		Department:   "Sales Engineer",
		MonthOfClaim: "September",
	}
}

func TestWriteClaimFormPagination(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "claim.xlsx")
	svc := NewService(newTemplate(t), outputPath)
	svc.now = func() time.Time { return time.Date(2025, time.September, 30, 10, 0, 0, 0, time.UTC) }

	out, err := svc.WriteClaimForm(&claimformInterface.WriteClaimFormIn{
		Header: testHeader(),
		Items:  ingest.MockOCRItems(23),
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, out.Pages)

	workbook, err := excelize.OpenFile(outputPath)
	assert.NoError(t, err)
	defer workbook.Close()

	assert.Equal(t, []string{"Page_1", "Page_2", "Page_3"}, workbook.GetSheetList())

	// sequence numbers run continuously across pages
	assertCell(t, workbook, "Page_1", "B13", "1")
	assertCell(t, workbook, "Page_1", "B22", "10")
	assertCell(t, workbook, "Page_2", "B13", "11")
	assertCell(t, workbook, "Page_3", "B13", "21")
	assertCell(t, workbook, "Page_3", "B15", "23")

	// the last page carries 3 records; the remaining slots are cleared
	assertCell(t, workbook, "Page_3", "B16", "")
	assertCell(t, workbook, "Page_3", "D16", "")
	assertCell(t, workbook, "Page_3", "D22", "")

	// header/footer fields on every page
	assertCell(t, workbook, "Page_1", "M2", "September")
	assertCell(t, workbook, "Page_3", "C29", "WANG TING I")
	assertCell(t, workbook, "Page_3", "C30", "Sales Engineer")
	assertCell(t, workbook, "Page_3", "I29", data.DefaultApprover)
	assertCell(t, workbook, "Page_3", "C32", "2025-09-30")

	// monetary cells carry the computed totals
	assertCell(t, workbook, "Page_1", "I13", "18920")
	assertCell(t, workbook, "Page_1", "K13", "164.604")
	assertCell(t, workbook, "Page_1", "M13", "164.604")
}

func TestWriteClaimFormEmptyInput(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "claim.xlsx")
	svc := NewService(newTemplate(t), outputPath)

	out, err := svc.WriteClaimForm(&claimformInterface.WriteClaimFormIn{Header: testHeader()})
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Pages)

	workbook, err := excelize.OpenFile(outputPath)
	assert.NoError(t, err)
	defer workbook.Close()

	assert.Equal(t, []string{"Page_1"}, workbook.GetSheetList())

	// every stale data cell is cleared, header fields are still written
	for row := startRow; row <= endRow; row++ {
		cell, err := excelize.CoordinatesToCellName(colSupplierName, row)
		assert.NoError(t, err)
		assertCell(t, workbook, "Page_1", cell, "")
	}
	assertCell(t, workbook, "Page_1", "C29", "WANG TING I")
}

func TestWriteClaimFormSortsByDate(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "claim.xlsx")
	svc := NewService(newTemplate(t), outputPath)

	items := ingest.MockOCRItems(3)
	// hand them over in reverse date order
	reversed := []*data.ExpenseItem{items[2], items[1], items[0]}

	_, err := svc.WriteClaimForm(&claimformInterface.WriteClaimFormIn{
		Header: testHeader(),
		Items:  reversed,
	})
	assert.NoError(t, err)

	workbook, err := excelize.OpenFile(outputPath)
	assert.NoError(t, err)
	defer workbook.Close()

	assertCell(t, workbook, "Page_1", "C13", "2025-09-01")
	assertCell(t, workbook, "Page_1", "C15", "2025-09-03")
}

func TestWriteClaimFormTemplateMissing(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "claim.xlsx")
	svc := NewService(filepath.Join(dir, "missing.xlsx"), outputPath)

	_, err := svc.WriteClaimForm(&claimformInterface.WriteClaimFormIn{
		Header: testHeader(),
		Items:  ingest.MockOCRItems(1),
	})

	var terr *data.TemplateMissingError
	assert.ErrorAs(t, err, &terr)

	// no partial output is ever produced
	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteClaimFormRejectsUncomputedItems(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "claim.xlsx")
	svc := NewService(newTemplate(t), outputPath)

	raw := &data.ExpenseItem{
		TransactionDate: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		SupplierName:    "Shell",
		Description:     "fuel",
	}
	_, err := svc.WriteClaimForm(&claimformInterface.WriteClaimFormIn{
		Header: testHeader(),
		Items:  []*data.ExpenseItem{raw},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no computed totals")
}

func assertCell(t *testing.T, workbook *excelize.File, sheet, cell, want string) {
	t.Helper()
	got, err := workbook.GetCellValue(sheet, cell)
	assert.NoError(t, err)
	assert.Equal(t, want, got, "sheet %s cell %s", sheet, cell)
}
