package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// BaseCurrency is the reporting currency all derived totals are expressed in.
	BaseCurrency = "SGD"

	// DefaultInvoiceNo is the sentinel used when a source carries no invoice number.
	DefaultInvoiceNo = "N/A"

	// DefaultApprover is the claim form approver unless a header overrides it.
	DefaultApprover = "Vicky Wang"

	DateLayout = "2006-01-02"
)

// ExpenseItem is the canonical claim line item. All money fields are exact
// decimals; the two SGD totals are derived by ComputeFinancials and are never
// supplied by an input source.
type ExpenseItem struct {
	TransactionDate time.Time
	SupplierName    string
	InvoiceNo       string
	ExpenseType     string
	Description     string

	Currency       string
	OriginalAmount decimal.Decimal
	ForexRate      decimal.Decimal
	GSTAmount      decimal.Decimal

	AmountBeforeGSTSGD  decimal.Decimal
	FinalClaimAmountSGD decimal.Decimal

	computed bool
}

// ComputeFinancials populates the SGD totals following the claim form
// precision rules: the converted amount keeps four decimal places, the final
// claim amount three, both rounded half up. Re-running on the same inputs
// yields identical totals.
func (e *ExpenseItem) ComputeFinancials() {
	base := e.OriginalAmount.Mul(e.ForexRate)
	e.AmountBeforeGSTSGD = base.Round(4)
	e.FinalClaimAmountSGD = e.AmountBeforeGSTSGD.Add(e.GSTAmount).Round(3)
	e.computed = true
}

// Computed reports whether the derived SGD totals have been populated.
func (e *ExpenseItem) Computed() bool {
	return e.computed
}

// ClaimHeader is the static header/footer information for a claim form.
type ClaimHeader struct {
	EmployeeName string
	Department   string
	MonthOfClaim string
	ApproverName string
}

// Approver returns the configured approver, falling back to the default.
func (h *ClaimHeader) Approver() string {
	if h.ApproverName == "" {
		return DefaultApprover
	}
	return h.ApproverName
}

// ParseAmount normalizes a loosely typed amount value into a decimal.
// Strings may carry a currency symbol and thousands separators, e.g.
// "$1,200.00"; an empty string resolves to zero.
func ParseAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		clean := strings.ReplaceAll(v, ",", "")
		clean = strings.ReplaceAll(clean, "$", "")
		clean = strings.TrimSpace(clean)
		if clean == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(clean)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount value %v (%T)", value, value)
	}
}

// ParseDate normalizes a loosely typed date value into a calendar date.
// time.Time values have their clock discarded; strings must match the exact
// YYYY-MM-DD layout.
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return DateOnly(v), nil
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", v)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("invalid date %v (%T): expected YYYY-MM-DD", value, value)
	}
}

// DateOnly strips the time-of-day component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
