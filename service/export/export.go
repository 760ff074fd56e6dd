// Package export writes reconciliation output as a flat table.
package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"expense_automation/data"
	"expense_automation/util"

	"github.com/shopspring/decimal"
)

// WriteMergedCSV writes merged records in the fixed MergedFieldNames column
// order, creating the parent directory when absent. A run with zero records
// still produces the output file, empty.
func WriteMergedCSV(records []*data.MergedRecord, outputPath string) error {
	if err := util.EnsureDir(outputPath); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("could not create output file %s: %w", outputPath, err)
	}
	if len(records) == 0 {
		return file.Close()
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(data.MergedFieldNames); err != nil {
		_ = file.Close()
		return err
	}
	for _, record := range records {
		if err := writer.Write(mergedRow(record)); err != nil {
			_ = file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func mergedRow(record *data.MergedRecord) []string {
	return []string{
		strOrEmpty(record.ReceiptID),
		record.Date.Format(data.DateLayout),
		record.Plate,
		strOrEmpty(record.Category),
		strOrEmpty(record.Merchant),
		amountOrEmpty(record.ReceiptAmount),
		amountOrEmpty(record.ExternalAmount),
		strOrEmpty(record.ExternalSource),
		strOrEmpty(record.ExternalNote),
		record.FinalAmount.String(),
		string(record.MatchStatus),
	}
}

func strOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func amountOrEmpty(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.String()
}
