package claimform

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"expense_automation/data"
	claimformInterface "expense_automation/service/claimform/interfaces"
	"expense_automation/util"

	"github.com/xuri/excelize/v2"
)

const (
	maxRowsPerPage = 10
	startRow       = 13
	endRow         = 22
)

// 1-based column positions of the claim form template.
const (
	colSN = iota + 2 // column B
	colTransactionDate
	colSupplierName
	colInvoiceNo
	colExpenseType
	colDescription
	colCurrency
	colOriginalAmount
	colForexRate
	colAmountBeforeGST
	colGSTAmount
	colFinalClaimAmount
)

// Fixed header/footer cells of the template.
const (
	cellMonthOfClaim  = "M2"
	cellEmployeeName  = "C29"
	cellDepartment    = "C30"
	cellApproverName  = "I29"
	cellSignatureDate = "C32"
)

var _ claimformInterface.Service = (*Service)(nil)

// Service renders computed expense items into a paginated copy of the blank
// claim form template, ten data rows per page.
type Service struct {
	TemplatePath string
	OutputPath   string

	now func() time.Time
}

func NewService(templatePath, outputPath string) *Service {
	return &Service{
		TemplatePath: templatePath,
		OutputPath:   outputPath,
		now:          time.Now,
	}
}

// WriteClaimForm sorts the items by transaction date, splits them into pages
// of ten, and writes one template sheet per page named Page_1, Page_2, ….
// An empty input still produces one page with fully cleared data rows. The
// template must exist before any sheet is touched; otherwise no output file
// is created at all.
func (s *Service) WriteClaimForm(in *claimformInterface.WriteClaimFormIn) (*claimformInterface.WriteClaimFormOut, error) {
	if in == nil || in.Header == nil {
		return nil, errors.New("claim form input is incomplete")
	}
	if _, err := os.Stat(s.TemplatePath); err != nil {
		return nil, &data.TemplateMissingError{Path: s.TemplatePath}
	}
	for _, item := range in.Items {
		if !item.Computed() {
			return nil, fmt.Errorf("expense item %q of %s has no computed totals", item.Description, item.TransactionDate.Format(data.DateLayout))
		}
	}

	workbook, err := excelize.OpenFile(s.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("could not open template %s: %w", s.TemplatePath, err)
	}
	defer func(workbook *excelize.File) {
		err := workbook.Close()
		if err != nil {
			log.Printf("failed to close workbook %s: %v", s.TemplatePath, err)
		}
	}(workbook)

	items := make([]*data.ExpenseItem, len(in.Items))
	copy(items, in.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TransactionDate.Before(items[j].TransactionDate)
	})

	pages := (len(items) + maxRowsPerPage - 1) / maxRowsPerPage
	if pages == 0 {
		pages = 1
	}

	if err := workbook.SetSheetName(workbook.GetSheetName(0), "Page_1"); err != nil {
		return nil, err
	}
	baseIndex, err := workbook.GetSheetIndex("Page_1")
	if err != nil {
		return nil, err
	}

	for page := 0; page < pages; page++ {
		sheet := fmt.Sprintf("Page_%d", page+1)
		if page > 0 {
			index, err := workbook.NewSheet(sheet)
			if err != nil {
				return nil, err
			}
			if err := workbook.CopySheet(baseIndex, index); err != nil {
				return nil, fmt.Errorf("could not copy template sheet: %w", err)
			}
		}

		start := page * maxRowsPerPage
		end := start + maxRowsPerPage
		if end > len(items) {
			end = len(items)
		}
		if err := s.writeBatch(workbook, sheet, in.Header, items[start:end], start); err != nil {
			return nil, err
		}
	}

	if err := util.EnsureDir(s.OutputPath); err != nil {
		return nil, err
	}
	if err := workbook.SaveAs(s.OutputPath); err != nil {
		return nil, fmt.Errorf("could not save claim form %s: %w", s.OutputPath, err)
	}
	return &claimformInterface.WriteClaimFormOut{Pages: pages, OutputPath: s.OutputPath}, nil
}

// writeBatch fills one page: header/footer fields, the batch's data rows with
// a continuous sequence number, and cleared slots up to the page's last row.
func (s *Service) writeBatch(workbook *excelize.File, sheet string, header *data.ClaimHeader, batch []*data.ExpenseItem, offset int) error {
	if err := s.writeHeaderFooter(workbook, sheet, header); err != nil {
		return err
	}

	for i, item := range batch {
		row := startRow + i
		cells := []struct {
			col   int
			value any
		}{
			{colSN, offset + i + 1},
			{colTransactionDate, item.TransactionDate.Format(data.DateLayout)},
			{colSupplierName, item.SupplierName},
			{colInvoiceNo, item.InvoiceNo},
			{colExpenseType, item.ExpenseType},
			{colDescription, item.Description},
			{colCurrency, item.Currency},
			{colOriginalAmount, item.OriginalAmount.InexactFloat64()},
			{colForexRate, item.ForexRate.InexactFloat64()},
			// Already rounded to the template's scales; written as-is.
			{colAmountBeforeGST, item.AmountBeforeGSTSGD.InexactFloat64()},
			{colGSTAmount, item.GSTAmount.InexactFloat64()},
			{colFinalClaimAmount, item.FinalClaimAmountSGD.InexactFloat64()},
		}
		for _, c := range cells {
			cell, err := excelize.CoordinatesToCellName(c.col, row)
			if err != nil {
				return err
			}
			if err := workbook.SetCellValue(sheet, cell, c.value); err != nil {
				return err
			}
		}
	}

	for row := startRow + len(batch); row <= endRow; row++ {
		if err := clearRow(workbook, sheet, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeHeaderFooter(workbook *excelize.File, sheet string, header *data.ClaimHeader) error {
	fields := []struct {
		cell  string
		value string
	}{
		{cellMonthOfClaim, header.MonthOfClaim},
		{cellEmployeeName, header.EmployeeName},
		{cellDepartment, header.Department},
		{cellApproverName, header.Approver()},
		{cellSignatureDate, s.now().Format(data.DateLayout)},
	}
	for _, f := range fields {
		if err := workbook.SetCellValue(sheet, f.cell, f.value); err != nil {
			return err
		}
	}
	return nil
}

// clearRow blanks the data columns of a row slot while keeping the
// template's cell styles.
func clearRow(workbook *excelize.File, sheet string, row int) error {
	for col := colSN; col <= colFinalClaimAmount; col++ {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if err := workbook.SetCellValue(sheet, cell, nil); err != nil {
			return err
		}
	}
	return nil
}
