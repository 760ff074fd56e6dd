package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"expense_automation/data"
	"expense_automation/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RawRow is one loosely typed input row keyed by canonical field name. Values
// arrive as strings from CSV/workbook sources or as decoded JSON values; all
// typing happens here at the normalization boundary.
type RawRow map[string]any

var (
	requiredReceiptFields = []string{"receipt_id", "date", "plate", "merchant", "amount", "category"}
	requiredChargeFields  = []string{"plate", "date", "source", "amount"}
	requiredExpenseFields = []string{"transaction_date", "supplier_name", "expense_type", "description", "original_amount"}
)

func missingFields(row RawRow, required []string) []string {
	var missing []string
	for _, field := range required {
		if _, ok := row[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// missingColumns reports required column names absent from a table header.
func missingColumns(header []string, required []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	var missing []string
	for _, field := range required {
		if _, ok := present[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ReceiptFromRow normalizes one raw receipt row. idx is the 1-based row index
// reported on failure.
func ReceiptFromRow(row RawRow, idx int) (*data.ReceiptRecord, error) {
	if missing := missingFields(row, requiredReceiptFields); len(missing) > 0 {
		return nil, &data.ValidationError{Row: idx, Fields: missing, Reason: "missing required field(s)"}
	}
	day, err := data.ParseDate(row["date"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"date"}, Reason: err.Error()}
	}
	amount, err := data.ParseAmount(row["amount"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"amount"}, Reason: err.Error()}
	}
	return &data.ReceiptRecord{
		ReceiptID: asString(row["receipt_id"]),
		Date:      day,
		Plate:     asString(row["plate"]),
		Merchant:  asString(row["merchant"]),
		Amount:    amount,
		Category:  asString(row["category"]),
	}, nil
}

// ChargeFromRow normalizes one raw external charge row; note is optional.
func ChargeFromRow(row RawRow, idx int) (*data.ExternalCharge, error) {
	if missing := missingFields(row, requiredChargeFields); len(missing) > 0 {
		return nil, &data.ValidationError{Row: idx, Fields: missing, Reason: "missing required field(s)"}
	}
	day, err := data.ParseDate(row["date"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"date"}, Reason: err.Error()}
	}
	amount, err := data.ParseAmount(row["amount"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"amount"}, Reason: err.Error()}
	}
	return &data.ExternalCharge{
		Plate:  asString(row["plate"]),
		Date:   day,
		Source: asString(row["source"]),
		Amount: amount,
		Note:   asString(row["note"]),
	}, nil
}

// ExpenseFromRow normalizes one raw expense row into a computed ExpenseItem.
// Defaulting order is explicit row value, then whatever the caller injected
// as a static field, then the hard defaults (invoice sentinel, base currency,
// forex rate 1.0, zero GST).
func ExpenseFromRow(row RawRow, idx int) (*data.ExpenseItem, error) {
	if missing := missingFields(row, requiredExpenseFields); len(missing) > 0 {
		return nil, &data.ValidationError{Row: idx, Fields: missing, Reason: "missing required field(s)"}
	}
	day, err := data.ParseDate(row["transaction_date"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"transaction_date"}, Reason: err.Error()}
	}
	original, err := data.ParseAmount(row["original_amount"])
	if err != nil {
		return nil, &data.ValidationError{Row: idx, Fields: []string{"original_amount"}, Reason: err.Error()}
	}

	forex := decimal.NewFromInt(1)
	if value, ok := row["forex_rate"]; ok && asString(value) != "" {
		forex, err = data.ParseAmount(value)
		if err != nil {
			return nil, &data.ValidationError{Row: idx, Fields: []string{"forex_rate"}, Reason: err.Error()}
		}
	}
	gst := decimal.Zero
	if value, ok := row["gst_amount"]; ok && asString(value) != "" {
		gst, err = data.ParseAmount(value)
		if err != nil {
			return nil, &data.ValidationError{Row: idx, Fields: []string{"gst_amount"}, Reason: err.Error()}
		}
	}

	invoiceNo := asString(row["invoice_no"])
	if invoiceNo == "" {
		invoiceNo = data.DefaultInvoiceNo
	}
	currency := asString(row["currency"])
	if currency == "" {
		currency = data.BaseCurrency
	}

	item := &data.ExpenseItem{
		TransactionDate: day,
		SupplierName:    asString(row["supplier_name"]),
		InvoiceNo:       invoiceNo,
		ExpenseType:     asString(row["expense_type"]),
		Description:     asString(row["description"]),
		Currency:        currency,
		OriginalAmount:  original,
		ForexRate:       forex,
		GSTAmount:       gst,
	}
	item.ComputeFinancials()
	return item, nil
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// LoadReceipts loads receipt rows from a JSON, CSV, or workbook file. Image
// files yield a placeholder receipt to be completed later. A row failing
// validation fails the whole batch.
func LoadReceipts(path string) ([]*data.ReceiptRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var rows []RawRow
	var err error
	switch {
	case ext == ".json":
		rows, err = readJSONRows(path)
	case ext == ".csv":
		rows, err = readTableRows(util.ReadCSVTable, path, requiredReceiptFields)
	case ext == ".xlsx" || ext == ".xls":
		rows, err = readTableRows(util.ReadSheetRows, path, requiredReceiptFields)
	case imageExts[ext]:
		return []*data.ReceiptRecord{placeholderReceipt(path)}, nil
	default:
		return nil, &data.UnsupportedFormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return nil, err
	}

	receipts := make([]*data.ReceiptRecord, 0, len(rows))
	for i, row := range rows {
		receipt, err := ReceiptFromRow(row, i+1)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// LoadCharges loads external charge rows from a CSV or workbook file into an
// insertion-ordered pool keyed by (plate, date).
func LoadCharges(path string) (*data.ChargePool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("external data file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var rows []RawRow
	var err error
	switch ext {
	case ".csv":
		rows, err = readTableRows(util.ReadCSVTable, path, requiredChargeFields)
	case ".xlsx", ".xls":
		rows, err = readTableRows(util.ReadSheetRows, path, requiredChargeFields)
	default:
		return nil, &data.UnsupportedFormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return nil, err
	}

	pool := data.NewChargePool()
	for i, row := range rows {
		charge, err := ChargeFromRow(row, i+1)
		if err != nil {
			return nil, err
		}
		pool.Add(charge)
	}
	return pool, nil
}

func readJSONRows(path string) ([]RawRow, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", path, err)
	}
	var rows []RawRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("could not decode receipt JSON %s: %w", path, err)
	}
	return rows, nil
}

// readTableRows turns a header-first table into keyed rows, verifying the
// header carries every required column up front.
func readTableRows(readFn func(string) ([][]string, error), path string, required []string) ([]RawRow, error) {
	table, err := readFn(path)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, nil
	}

	header := make([]string, len(table[0]))
	for i, name := range table[0] {
		header[i] = strings.TrimSpace(name)
	}
	if missing := missingColumns(header, required); len(missing) > 0 {
		return nil, fmt.Errorf("%s must contain columns %v; missing %v", path, required, missing)
	}

	rows := make([]RawRow, 0, len(table)-1)
	for _, record := range table[1:] {
		row := RawRow{}
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func placeholderReceipt(path string) *data.ReceiptRecord {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" {
		stem = "image-1"
	}
	return &data.ReceiptRecord{
		ReceiptID: stem,
		Date:      data.DateOnly(time.Now()),
		Plate:     "UNKNOWN",
		Merchant:  "image_upload",
		Amount:    decimal.Zero,
		Category:  "image_placeholder",
	}
}

// SourceReader maps tabular workbook data into computed expense items, e.g. a
// monthly toll statement with its own column names and a fixed supplier.
type SourceReader struct {
	FilePath string

	// ColumnMapping maps sheet column headers to canonical field names.
	ColumnMapping map[string]string

	// StaticFields are injected into every row that does not already carry
	// the field, e.g. a fixed supplier name for a recurring source.
	StaticFields map[string]any
}

// Read returns the computed items of the source. A missing source file is
// logged and skipped; a row that fails normalization is logged and dropped
// rather than aborting the import.
func (r *SourceReader) Read() ([]*data.ExpenseItem, error) {
	if _, err := os.Stat(r.FilePath); err != nil {
		util.Logger().Warn("source file not found, skipping", zap.String("path", r.FilePath))
		return nil, nil
	}

	table, err := util.ReadSheetRows(r.FilePath)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, nil
	}

	header := make([]string, len(table[0]))
	for i, name := range table[0] {
		header[i] = strings.TrimSpace(name)
	}

	var items []*data.ExpenseItem
	for i, record := range table[1:] {
		row := RawRow{}
		for col, name := range header {
			if field, ok := r.ColumnMapping[name]; ok && col < len(record) {
				row[field] = record[col]
			}
		}
		for field, value := range r.StaticFields {
			if _, ok := row[field]; !ok {
				row[field] = value
			}
		}

		item, err := ExpenseFromRow(row, i+1)
		if err != nil {
			util.Logger().Warn("skipping invalid source row",
				zap.String("path", r.FilePath), zap.Int("row", i+1), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// NewETCReader reads a toll (ETC) statement workbook, mapping its statement
// columns onto expense fields with the toll authority as a fixed supplier.
func NewETCReader(path string) *SourceReader {
	return &SourceReader{
		FilePath: path,
		ColumnMapping: map[string]string{
			"Transaction Date": "transaction_date",
			"Gantry Location":  "description",
			"Amount":           "original_amount",
		},
		StaticFields: map[string]any{
			"supplier_name": "LTA (ETC)",
			"expense_type":  "Transport",
			"invoice_no":    "ETC-Statement",
			"currency":      data.BaseCurrency,
			"forex_rate":    "1.0",
		},
	}
}

// NewChargingReader reads an EV charging statement workbook.
func NewChargingReader(path string) *SourceReader {
	return &SourceReader{
		FilePath: path,
		ColumnMapping: map[string]string{
			"Date":    "transaction_date",
			"Station": "description",
			"Cost":    "original_amount",
		},
		StaticFields: map[string]any{
			"supplier_name": "EV Charging",
			"expense_type":  "Fuel/Transport",
			"currency":      data.BaseCurrency,
			"forex_rate":    "1.0",
		},
	}
}

// expenseRowConverter parses fixed-column CSV rows into computed
// ExpenseItems, counting rows so validation failures report the real
// 1-based row. Expected format: Date (2006-01-02), Supplier, InvoiceNo,
// ExpenseType, Description, Currency, OriginalAmount, ForexRate, GSTAmount
func expenseRowConverter() func(csvRow []string) (*data.ExpenseItem, error) {
	row := 0
	return func(csvRow []string) (*data.ExpenseItem, error) {
		row++
		if len(csvRow) != 9 {
			return nil, errors.New("wrong number of fields in row")
		}
		raw := RawRow{
			"transaction_date": csvRow[0],
			"supplier_name":    csvRow[1],
			"invoice_no":       csvRow[2],
			"expense_type":     csvRow[3],
			"description":      csvRow[4],
			"currency":         csvRow[5],
			"original_amount":  csvRow[6],
			"forex_rate":       csvRow[7],
			"gst_amount":       csvRow[8],
		}
		return ExpenseFromRow(raw, row)
	}
}

// LoadExpenseSources reads several fixed-column expense CSV files
// concurrently and returns the merged, date-sorted result.
func LoadExpenseSources(paths []string) ([]*data.ExpenseItem, error) {
	type pending struct {
		path    string
		results <-chan []*data.ExpenseItem
		errs    <-chan error
	}

	// Kick off every read before collecting any result.
	sources := make([]pending, 0, len(paths))
	for _, path := range paths {
		results, errs := util.ParseCSVRecordsAsync(path, expenseRowConverter())
		sources = append(sources, pending{path: path, results: results, errs: errs})
	}

	var all []*data.ExpenseItem
	for _, src := range sources {
		select {
		case items := <-src.results:
			all = append(all, items...)
		case err := <-src.errs:
			return nil, fmt.Errorf("loading %s: %w", src.path, err)
		}
	}
	return MergeExpenses(all), nil
}

// MergeExpenses concatenates expense sources into a single list sorted by
// transaction date; ties keep their original relative order.
func MergeExpenses(sources ...[]*data.ExpenseItem) []*data.ExpenseItem {
	var merged []*data.ExpenseItem
	for _, source := range sources {
		merged = append(merged, source...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TransactionDate.Before(merged[j].TransactionDate)
	})
	return merged
}

// MockOCRItems generates OCR-style demo items mirroring a typical overseas
// hotel receipt batch; handy for pagination checks and demos.
func MockOCRItems(n int) []*data.ExpenseItem {
	base := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	items := make([]*data.ExpenseItem, 0, n)
	for i := 0; i < n; i++ {
		item := &data.ExpenseItem{
			TransactionDate: base.AddDate(0, 0, i),
			SupplierName:    "Zaoh Japan",
			InvoiceNo:       fmt.Sprintf("OCR-%d", 1000+i),
			ExpenseType:     "Hotel",
			Description:     "Business Trip Stay",
			Currency:        "JPY",
			OriginalAmount:  decimal.NewFromInt(18920),
			ForexRate:       decimal.RequireFromString("0.0087"),
			GSTAmount:       decimal.Zero,
		}
		item.ComputeFinancials()
		items = append(items, item)
	}
	return items
}
