package interfaces

import (
	"expense_automation/data"
)

type Service interface {
	WriteClaimForm(in *WriteClaimFormIn) (*WriteClaimFormOut, error)
}

type WriteClaimFormIn struct {
	Header *data.ClaimHeader

	// Items must all carry computed SGD totals.
	Items []*data.ExpenseItem
}

type WriteClaimFormOut struct {
	Pages      int
	OutputPath string
}
