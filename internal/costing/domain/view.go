package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// View is the in-memory row collection of one session. It holds the rows
// of the last reconciliation and the filter that produced them.
type View struct {
	mu       sync.RWMutex
	filter   Filter
	hasState bool
	rows     []BillingRow
	index    map[string]int
}

func NewView() *View {
	return &View{index: map[string]int{}}
}

// Replace swaps in the rows of a new reconciliation pass.
func (v *View) Replace(filter Filter, rows []BillingRow) {
	index := make(map[string]int, len(rows))
	copied := make([]BillingRow, len(rows))
	for i, row := range rows {
		copied[i] = row.Clone()
		index[row.UniqueID] = i
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = filter
	v.hasState = true
	v.rows = copied
	v.index = index
}

// Filter returns the filter of the last reconciliation, if any.
func (v *View) Filter() (Filter, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter, v.hasState
}

func (v *View) Rows() []BillingRow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]BillingRow, len(v.rows))
	for i, row := range v.rows {
		out[i] = row.Clone()
	}
	return out
}

func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.rows)
}

func (v *View) Get(uniqueID string) (BillingRow, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.index[uniqueID]
	if !ok {
		return BillingRow{}, false
	}
	return v.rows[i].Clone(), true
}

// Put overwrites the row with the same UniqueID. It reports false when the
// row is no longer part of the view.
func (v *View) Put(row BillingRow) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i, ok := v.index[row.UniqueID]
	if !ok {
		return false
	}
	v.rows[i] = row.Clone()
	return true
}

func (v *View) Totals() Totals {
	v.mu.RLock()
	defer v.mu.RUnlock()

	t := Totals{
		Rows:            len(v.rows),
		Hours:           decimal.Zero,
		CostingAmount:   decimal.Zero,
		TotalBillAmount: decimal.Zero,
		BillableAmount:  decimal.Zero,
	}
	for _, row := range v.rows {
		t.Hours = t.Hours.Add(row.Hours)
		t.CostingAmount = t.CostingAmount.Add(row.CostingAmount)
		t.TotalBillAmount = t.TotalBillAmount.Add(row.TotalBillAmount)
		if row.IsBillable {
			t.BillableAmount = t.BillableAmount.Add(row.TotalBillAmount)
		}
	}
	return t
}
