package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceState is the saga state of an invoice generation run.
type InvoiceState string

const (
	StateIdle          InvoiceState = "idle"
	StateSyncing       InvoiceState = "syncing"
	StateSyncFailed    InvoiceState = "sync_failed"
	StateSynced        InvoiceState = "synced"
	StateInvoicing     InvoiceState = "invoicing"
	StateInvoiceFailed InvoiceState = "invoice_failed"
	StateInvoiced      InvoiceState = "invoiced"
)

// Terminal reports whether the run ended in this state.
func (s InvoiceState) Terminal() bool {
	switch s {
	case StateSyncFailed, StateInvoiceFailed, StateInvoiced:
		return true
	default:
		return false
	}
}

// Invoice is the issued invoice as reported back to the console.
type Invoice struct {
	ID               snowflake.ID    `json:"id"`
	InvoiceNumber    string          `json:"invoice_number"`
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	BillingRecordIDs []snowflake.ID  `json:"billing_record_ids"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	TotalCosting     decimal.Decimal `json:"total_costing"`
	TotalBill        decimal.Decimal `json:"total_bill"`
}

// InvoiceOutcome carries the state reached by a run, the states it passed
// through and the sync counts, whether or not it succeeded.
type InvoiceOutcome struct {
	State   InvoiceState   `json:"state"`
	Path    []InvoiceState `json:"path"`
	Synced  int            `json:"synced"`
	Created int            `json:"created"`
	Invoice *Invoice       `json:"invoice,omitempty"`
}

func NewInvoiceOutcome() InvoiceOutcome {
	return InvoiceOutcome{State: StateIdle, Path: []InvoiceState{StateIdle}}
}

func (o *InvoiceOutcome) Transition(next InvoiceState) {
	o.State = next
	o.Path = append(o.Path, next)
}
