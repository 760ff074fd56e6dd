package interfaces

import (
	"expense_automation/data"
)

type Service interface {
	MatchReceipts(in *MatchReceiptsIn) (*MatchReceiptsOut, error)
}

type MatchReceiptsIn struct {
	// Receipts are consumed in input order.
	Receipts []*data.ReceiptRecord

	// Charges is the external-side pool. The service works on a clone, so
	// the same pool can back multiple independent runs.
	Charges *data.ChargePool
}

type MatchReceiptsOut struct {
	// Merged covers every receipt exactly once, then every unconsumed
	// external charge exactly once.
	Merged []*data.MergedRecord

	MatchedCount      int
	UnmatchedCount    int
	ExternalOnlyCount int
}
