package data

import (
	"time"

	"github.com/shopspring/decimal"
)

type MatchStatus string

const (
	StatusMatched      MatchStatus = "matched"
	StatusUnmatched    MatchStatus = "unmatched"
	StatusExternalOnly MatchStatus = "external_only"
)

// ReceiptRecord is one OCR-extracted receipt line before reconciliation.
type ReceiptRecord struct {
	ReceiptID string
	Date      time.Time
	Plate     string
	Merchant  string
	Amount    decimal.Decimal
	Category  string
}

// ExternalCharge is one externally reported transaction (e.g. a toll or
// charging statement row).
type ExternalCharge struct {
	Plate  string
	Date   time.Time
	Source string
	Amount decimal.Decimal
	Note   string
}

// ChargeKey is the (plate, date) composite join key for reconciliation.
type ChargeKey struct {
	Plate string
	Date  string
}

func (r *ReceiptRecord) Key() ChargeKey {
	return ChargeKey{Plate: r.Plate, Date: r.Date.Format(DateLayout)}
}

func (c *ExternalCharge) Key() ChargeKey {
	return ChargeKey{Plate: c.Plate, Date: c.Date.Format(DateLayout)}
}

// MergedRecord is one reconciliation output row. Side-specific fields are
// pointers so an absent side stays visibly null; FinalAmount is always set.
type MergedRecord struct {
	ReceiptID      *string
	Date           time.Time
	Plate          string
	Category       *string
	Merchant       *string
	ReceiptAmount  *decimal.Decimal
	ExternalAmount *decimal.Decimal
	ExternalSource *string
	ExternalNote   *string
	FinalAmount    decimal.Decimal
	MatchStatus    MatchStatus
}

// MergedFieldNames is the fixed column order of the flat-table export.
var MergedFieldNames = []string{
	"receipt_id",
	"date",
	"plate",
	"category",
	"merchant",
	"receipt_amount",
	"external_amount",
	"external_source",
	"external_note",
	"final_amount",
	"match_status",
}

// ChargePool holds external charges grouped by ChargeKey. Go map iteration
// order is randomized, so the pool keeps an explicit key slice: keys iterate
// in first-seen insertion order and candidates within a key keep their
// insertion order.
type ChargePool struct {
	keys  []ChargeKey
	items map[ChargeKey][]*ExternalCharge
}

func NewChargePool() *ChargePool {
	return &ChargePool{items: make(map[ChargeKey][]*ExternalCharge)}
}

// Add appends a charge to its key's candidate queue.
func (p *ChargePool) Add(charge *ExternalCharge) {
	key := charge.Key()
	if _, ok := p.items[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.items[key] = append(p.items[key], charge)
}

// Len is the total number of queued charges across all keys.
func (p *ChargePool) Len() int {
	n := 0
	for _, queue := range p.items {
		n += len(queue)
	}
	return n
}

// Clone returns an independent working copy. Consuming the clone never
// mutates the original, so one pool can back multiple reconciliation runs.
func (p *ChargePool) Clone() *ChargePool {
	cp := NewChargePool()
	cp.keys = append([]ChargeKey(nil), p.keys...)
	for key, queue := range p.items {
		cp.items[key] = append([]*ExternalCharge(nil), queue...)
	}
	return cp
}

// PopFront removes and returns the oldest queued charge for key. A key whose
// queue empties is pruned so Remaining never yields empty groups.
func (p *ChargePool) PopFront(key ChargeKey) (*ExternalCharge, bool) {
	queue := p.items[key]
	if len(queue) == 0 {
		return nil, false
	}
	charge := queue[0]
	if len(queue) == 1 {
		delete(p.items, key)
		p.removeKey(key)
	} else {
		p.items[key] = queue[1:]
	}
	return charge, true
}

func (p *ChargePool) removeKey(key ChargeKey) {
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

// Remaining flattens the unconsumed charges: key insertion order first, then
// queue order within each key.
func (p *ChargePool) Remaining() []*ExternalCharge {
	var out []*ExternalCharge
	for _, key := range p.keys {
		out = append(out, p.items[key]...)
	}
	return out
}
