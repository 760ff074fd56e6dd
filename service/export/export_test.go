package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expense_automation/data"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWriteMergedCSV(t *testing.T) {
	day := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	receiptID := "R-001"
	category := "Fuel"
	merchant := "Shell"
	receiptAmount := decimal.RequireFromString("45.20")
	externalAmount := decimal.RequireFromString("45.20")
	source := "ETC"
	note := "fuel stop"

	records := []*data.MergedRecord{
		{
			ReceiptID:      &receiptID,
			Date:           day,
			Plate:          "SGX1234A",
			Category:       &category,
			Merchant:       &merchant,
			ReceiptAmount:  &receiptAmount,
			ExternalAmount: &externalAmount,
			ExternalSource: &source,
			ExternalNote:   &note,
			FinalAmount:    externalAmount,
			MatchStatus:    data.StatusMatched,
		},
		{
			Date:           day.AddDate(0, 0, 1),
			Plate:          "SGX1234A",
			ExternalAmount: &externalAmount,
			ExternalSource: &source,
			ExternalNote:   &note,
			FinalAmount:    externalAmount,
			MatchStatus:    data.StatusExternalOnly,
		},
	}

	outputPath := filepath.Join(t.TempDir(), "nested", "claim_form.csv")
	assert.NoError(t, WriteMergedCSV(records, outputPath))

	file, err := os.Open(outputPath)
	assert.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, data.MergedFieldNames, rows[0])

	assert.Equal(t, []string{
		"R-001", "2025-09-01", "SGX1234A", "Fuel", "Shell",
		"45.2", "45.2", "ETC", "fuel stop", "45.2", "matched",
	}, rows[1])

	// the receipt-side columns of an external-only row stay empty
	assert.Equal(t, []string{
		"", "2025-09-02", "SGX1234A", "", "",
		"", "45.2", "ETC", "fuel stop", "45.2", "external_only",
	}, rows[2])
}

func TestWriteMergedCSVEmptyStillCreatesFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "claim_form.csv")
	assert.NoError(t, WriteMergedCSV(nil, outputPath))

	info, err := os.Stat(outputPath)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}
