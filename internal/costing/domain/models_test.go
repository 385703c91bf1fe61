package domain

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "1-2-3", UniqueKey(1, 2, 3))
	assert.Equal(t, "2-3", MergeKey(2, 3))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	row := BillingRow{
		Hours:    decimal.RequireFromString("7.5"),
		Rate:     decimal.NewFromInt(20),
		FlatRate: decimal.NewFromInt(40),
	}
	row.Recompute()
	first := row
	row.Recompute()

	assert.True(t, row.CostingAmount.Equal(decimal.NewFromInt(150)))
	assert.True(t, row.TotalBillAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, first.CostingAmount.Equal(row.CostingAmount))
	assert.True(t, first.TotalBillAmount.Equal(row.TotalBillAmount))
}

func TestHasMonthlyRecordAndInvoiceable(t *testing.T) {
	id := snowflake.ID(5)

	row := BillingRow{Hours: decimal.NewFromInt(8)}
	assert.False(t, row.HasMonthlyRecord())
	assert.False(t, row.Invoiceable())

	row.BillingID = &id
	assert.False(t, row.HasMonthlyRecord())
	assert.True(t, row.Invoiceable())

	row.IsMonthlyRecord = true
	assert.True(t, row.HasMonthlyRecord())

	row.Hours = decimal.Zero
	assert.False(t, row.Invoiceable())
}

func TestCloneDetachesBillingID(t *testing.T) {
	id := snowflake.ID(5)
	row := BillingRow{BillingID: &id}
	clone := row.Clone()
	*clone.BillingID = 6
	assert.Equal(t, snowflake.ID(5), *row.BillingID)
}

func TestPayload(t *testing.T) {
	row := BillingRow{
		LocationID:        1,
		ResourceID:        2,
		Hours:             decimal.NewFromInt(8),
		ProductivityLevel: ratetierdomain.LevelHigh,
		Rate:              decimal.NewFromInt(25),
		FlatRate:          decimal.NewFromInt(40),
		Description:       "indexing",
		IsBillable:        false,
	}
	row.Recompute()

	p := row.Payload(Period{Month: 9, Year: 2025})
	assert.Equal(t, snowflake.ID(1), p.LocationID)
	assert.Equal(t, snowflake.ID(2), p.ResourceID)
	assert.True(t, p.Costing.Equal(decimal.NewFromInt(200)))
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(320)))
	assert.Equal(t, billingrecorddomain.StatusNonBillable, p.BillableStatus)
	assert.Equal(t, 9, p.Month)
	assert.Equal(t, 2025, p.Year)
}

func TestPeriodValidate(t *testing.T) {
	assert.NoError(t, Period{Month: 1, Year: 2025}.Validate())
	assert.NoError(t, Period{Month: 12, Year: 1}.Validate())
	assert.ErrorIs(t, Period{Month: 0, Year: 2025}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Month: 13, Year: 2025}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Month: 9, Year: 0}.Validate(), ErrInvalidPeriod)
	assert.Equal(t, "2025-09", Period{Month: 9, Year: 2025}.String())
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	syncErr := error(&SyncError{ResourceName: "Ana", Err: cause})
	assert.ErrorIs(t, syncErr, ErrSyncFailed)
	assert.ErrorIs(t, syncErr, cause)
	assert.NotErrorIs(t, syncErr, ErrInvoiceFailed)
	assert.Contains(t, syncErr.Error(), "Ana")

	invoiceErr := error(&InvoiceError{Err: cause})
	assert.ErrorIs(t, invoiceErr, ErrInvoiceFailed)
	assert.ErrorIs(t, invoiceErr, cause)
	assert.NotErrorIs(t, invoiceErr, ErrSyncFailed)

	var target *SyncError
	assert.True(t, errors.As(syncErr, &target))
}

func TestFetchFailed(t *testing.T) {
	cause := errors.New("timeout")
	err := FetchFailed("rate tiers", cause)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, cause)
}

func TestInvoiceOutcomeTransitions(t *testing.T) {
	o := NewInvoiceOutcome()
	o.Transition(StateSyncing)
	o.Transition(StateSyncFailed)

	assert.Equal(t, StateSyncFailed, o.State)
	assert.Equal(t, []InvoiceState{StateIdle, StateSyncing, StateSyncFailed}, o.Path)
	assert.True(t, o.State.Terminal())
	assert.False(t, StateSynced.Terminal())
}
