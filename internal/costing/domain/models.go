// Package domain holds the reconciled billing rows the costing console edits
// and invoices, together with the ports the engine depends on.
package domain

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
)

// DeletedResourceLabel names an orphaned row whose resource no longer exists.
const DeletedResourceLabel = "Deleted Resource"

// BillingRow is one resource on one location for the period being viewed.
type BillingRow struct {
	UniqueID     string       `json:"unique_id"`
	LocationKey  string       `json:"location_key"`
	ProjectID    snowflake.ID `json:"project_id"`
	ProjectName  string       `json:"project_name"`
	ClientName   string       `json:"client_name"`
	LocationID   snowflake.ID `json:"location_id"`
	LocationName string       `json:"location_name"`
	ResourceID   snowflake.ID `json:"resource_id"`
	ResourceName string       `json:"resource_name"`
	ResourceRole string       `json:"resource_role,omitempty"`
	AvatarURL    string       `json:"avatar_url,omitempty"`

	BillingID       *snowflake.ID `json:"billing_id"`
	IsMonthlyRecord bool          `json:"is_monthly_record"`

	Hours             decimal.Decimal                  `json:"hours"`
	ProductivityLevel ratetierdomain.ProductivityLevel `json:"productivity_level"`
	Rate              decimal.Decimal                  `json:"rate"`
	FlatRate          decimal.Decimal                  `json:"flat_rate"`
	CostingAmount     decimal.Decimal                  `json:"costing_amount"`
	TotalBillAmount   decimal.Decimal                  `json:"total_bill_amount"`
	Description       string                           `json:"description"`
	IsBillable        bool                             `json:"is_billable"`

	IsEditable        bool `json:"is_editable"`
	IsDeletedResource bool `json:"is_deleted_resource"`
}

// UniqueKey is the row identity: {projectId}-{locationId}-{resourceId}.
func UniqueKey(projectID, locationID, resourceID snowflake.ID) string {
	return fmt.Sprintf("%s-%s-%s", projectID, locationID, resourceID)
}

// MergeKey is the reconciliation key: {locationId}-{resourceId}.
func MergeKey(locationID, resourceID snowflake.ID) string {
	return fmt.Sprintf("%s-%s", locationID, resourceID)
}

// Recompute derives the monetary fields from hours, rate and flat rate.
func (r *BillingRow) Recompute() {
	r.CostingAmount = r.Hours.Mul(r.Rate)
	r.TotalBillAmount = r.Hours.Mul(r.FlatRate)
}

// HasMonthlyRecord reports whether the row is backed by a period record and
// therefore syncs by update rather than create.
func (r BillingRow) HasMonthlyRecord() bool {
	return r.BillingID != nil && r.IsMonthlyRecord
}

// Invoiceable reports whether the row can be referenced by an invoice.
func (r BillingRow) Invoiceable() bool {
	return r.BillingID != nil && r.Hours.IsPositive()
}

// Clone returns a copy that shares no pointers with r.
func (r BillingRow) Clone() BillingRow {
	out := r
	if r.BillingID != nil {
		id := *r.BillingID
		out.BillingID = &id
	}
	return out
}

// Payload is the billing record body persisted for this row in period.
func (r BillingRow) Payload(period Period) billingrecorddomain.Payload {
	return billingrecorddomain.Payload{
		LocationID:        r.LocationID,
		ResourceID:        r.ResourceID,
		Hours:             r.Hours,
		ProductivityLevel: r.ProductivityLevel,
		Rate:              r.Rate,
		FlatRate:          r.FlatRate,
		Costing:           r.CostingAmount,
		TotalAmount:       r.TotalBillAmount,
		Description:       r.Description,
		BillableStatus:    billingrecorddomain.StatusFromBool(r.IsBillable),
		Month:             period.Month,
		Year:              period.Year,
	}
}

// Period identifies a billing month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 || p.Year <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Filter selects the rows of one reconciliation pass. A zero LocationID is
// all-locations mode; a zero ProjectID spans every project.
type Filter struct {
	ProjectID  snowflake.ID `json:"project_id"`
	LocationID snowflake.ID `json:"location_id"`
	Month      int          `json:"month"`
	Year       int          `json:"year"`
}

func (f Filter) Period() Period {
	return Period{Month: f.Month, Year: f.Year}
}

func (f Filter) SingleLocation() bool {
	return f.LocationID != 0
}

type EditField string

const (
	FieldHours             EditField = "hours"
	FieldProductivityLevel EditField = "productivity_level"
	FieldDescription       EditField = "description"
	FieldIsBillable        EditField = "is_billable"
)

// Edit is a single inline field change. Value is coerced per field.
type Edit struct {
	Field EditField `json:"field"`
	Value any       `json:"value"`
}

// EditResult is the row after an edit. Created is set when the edit
// created the backing billing record.
type EditResult struct {
	Row     BillingRow `json:"row"`
	Created bool       `json:"created"`
}

// Totals sums the view for the console footer.
type Totals struct {
	Rows            int             `json:"rows"`
	Hours           decimal.Decimal `json:"hours"`
	CostingAmount   decimal.Decimal `json:"costing_amount"`
	TotalBillAmount decimal.Decimal `json:"total_bill_amount"`
	BillableAmount  decimal.Decimal `json:"billable_amount"`
}
