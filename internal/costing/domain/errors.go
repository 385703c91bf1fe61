package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrLocationNotFound  = errors.New("location_not_found")
	ErrFetchFailed       = errors.New("fetch_failed")
	ErrRowNotFound       = errors.New("row_not_found")
	ErrRowNotEditable    = errors.New("row_not_editable")
	ErrInvalidEdit       = errors.New("invalid_edit")
	ErrRowBusy           = errors.New("row_busy")
	ErrSyncFailed        = errors.New("sync_failed")
	ErrNothingToInvoice  = errors.New("nothing_to_invoice")
	ErrViewPeriodChanged = errors.New("view_period_mismatch")
	ErrInvoiceFailed     = errors.New("invoice_failed")
)

// SyncError reports the row whose billing record could not be persisted.
type SyncError struct {
	UniqueID     string
	ResourceID   snowflake.ID
	ResourceName string
	Err          error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed on resource %s: %v", e.ResourceName, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailed, e.Err}
}

// InvoiceError reports that billing records were synced but the invoice was
// not created.
type InvoiceError struct {
	Err error
}

func (e *InvoiceError) Error() string {
	return fmt.Sprintf("hours were saved but the invoice was not created: %v", e.Err)
}

func (e *InvoiceError) Unwrap() []error {
	return []error{ErrInvoiceFailed, e.Err}
}

// FetchFailed wraps a read failure of the billing store.
func FetchFailed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFetchFailed, what, err)
}
