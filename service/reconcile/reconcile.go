package reconcile

import (
	"errors"

	"expense_automation/data"
	reconcileInterface "expense_automation/service/reconcile/interfaces"
)

var _ reconcileInterface.Service = (*Service)(nil)

type Service struct {
}

func NewService() *Service {
	return &Service{}
}

// MatchReceipts pairs receipts against external charges on the (plate, date)
// key. When several charges share a key they are consumed oldest-first, so
// repeated receipts for the same day still pair deterministically. Unmatched
// receipts and unconsumed charges are both surfaced, never dropped:
// len(out.Merged) == len(in.Receipts) + unconsumed charges.
func (s *Service) MatchReceipts(in *reconcileInterface.MatchReceiptsIn) (*reconcileInterface.MatchReceiptsOut, error) {
	if in == nil {
		return nil, errors.New("match input is empty")
	}
	pool := in.Charges
	if pool == nil {
		pool = data.NewChargePool()
	}

	// Work on a clone so popping matched rows never mutates caller data.
	working := pool.Clone()

	out := &reconcileInterface.MatchReceiptsOut{
		Merged: make([]*data.MergedRecord, 0, len(in.Receipts)+working.Len()),
	}
	for _, receipt := range in.Receipts {
		charge, ok := working.PopFront(receipt.Key())
		if ok {
			out.Merged = append(out.Merged, matchedRecord(receipt, charge))
			out.MatchedCount++
			continue
		}
		out.Merged = append(out.Merged, unmatchedRecord(receipt))
		out.UnmatchedCount++
	}

	for _, leftover := range working.Remaining() {
		out.Merged = append(out.Merged, externalOnlyRecord(leftover))
		out.ExternalOnlyCount++
	}
	return out, nil
}

func matchedRecord(receipt *data.ReceiptRecord, charge *data.ExternalCharge) *data.MergedRecord {
	receiptID := receipt.ReceiptID
	category := receipt.Category
	merchant := receipt.Merchant
	receiptAmount := receipt.Amount
	externalAmount := charge.Amount
	source := charge.Source
	note := charge.Note
	return &data.MergedRecord{
		ReceiptID:      &receiptID,
		Date:           receipt.Date,
		Plate:          receipt.Plate,
		Category:       &category,
		Merchant:       &merchant,
		ReceiptAmount:  &receiptAmount,
		ExternalAmount: &externalAmount,
		ExternalSource: &source,
		ExternalNote:   &note,
		// The externally reported amount is authoritative once a match
		// exists; the receipt amount stays visible in its own column.
		FinalAmount: charge.Amount,
		MatchStatus: data.StatusMatched,
	}
}

func unmatchedRecord(receipt *data.ReceiptRecord) *data.MergedRecord {
	receiptID := receipt.ReceiptID
	category := receipt.Category
	merchant := receipt.Merchant
	receiptAmount := receipt.Amount
	return &data.MergedRecord{
		ReceiptID:     &receiptID,
		Date:          receipt.Date,
		Plate:         receipt.Plate,
		Category:      &category,
		Merchant:      &merchant,
		ReceiptAmount: &receiptAmount,
		FinalAmount:   receipt.Amount,
		MatchStatus:   data.StatusUnmatched,
	}
}

func externalOnlyRecord(charge *data.ExternalCharge) *data.MergedRecord {
	externalAmount := charge.Amount
	source := charge.Source
	note := charge.Note
	return &data.MergedRecord{
		Date:           charge.Date,
		Plate:          charge.Plate,
		ExternalAmount: &externalAmount,
		ExternalSource: &source,
		ExternalNote:   &note,
		FinalAmount:    charge.Amount,
		MatchStatus:    data.StatusExternalOnly,
	}
}
