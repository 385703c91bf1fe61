// Package domain contains the durable, period-stamped billing records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
)

// BillableStatus is carried on the record and mirrored by the row's IsBillable flag.
type BillableStatus string

const (
	StatusBillable    BillableStatus = "Billable"
	StatusNonBillable BillableStatus = "Non-Billable"
)

func StatusFromBool(billable bool) BillableStatus {
	if billable {
		return StatusBillable
	}
	return StatusNonBillable
}

func (s BillableStatus) IsBillable() bool { return s == StatusBillable }

// BillingRecord states that a resource worked Hours on a location in a period.
// A record without Month/Year is a template used as a default seed.
type BillingRecord struct {
	ID                snowflake.ID                     `json:"id" gorm:"primaryKey"`
	OrgID             snowflake.ID                     `json:"organization_id" gorm:"column:org_id;not null;index;uniqueIndex:ux_billing_record_period,priority:1"`
	LocationID        snowflake.ID                     `json:"location_id" gorm:"column:location_id;not null;index;uniqueIndex:ux_billing_record_period,priority:2"`
	ResourceID        snowflake.ID                     `json:"resource_id" gorm:"column:resource_id;not null;uniqueIndex:ux_billing_record_period,priority:3"`
	Hours             decimal.Decimal                  `json:"hours" gorm:"type:decimal(18,4);not null;default:0"`
	ProductivityLevel ratetierdomain.ProductivityLevel `json:"productivity_level" gorm:"type:varchar(16);not null"`
	Rate              decimal.Decimal                  `json:"rate" gorm:"type:decimal(18,4);not null;default:0"`
	FlatRate          decimal.Decimal                  `json:"flat_rate" gorm:"type:decimal(18,4);not null;default:0"`
	Costing           decimal.Decimal                  `json:"costing" gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount       decimal.Decimal                  `json:"total_amount" gorm:"type:decimal(18,4);not null;default:0"`
	Description       string                           `json:"description" gorm:"type:text"`
	BillableStatus    BillableStatus                   `json:"billable_status" gorm:"type:varchar(16);not null"`
	Month             *int                             `json:"month" gorm:"uniqueIndex:ux_billing_record_period,priority:4"`
	Year              *int                             `json:"year" gorm:"uniqueIndex:ux_billing_record_period,priority:5"`
	ResourceName      string                           `json:"resource_name,omitempty" gorm:"->;-:migration"`
	CreatedAt         time.Time                        `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time                        `json:"updated_at" gorm:"not null"`
}

func (BillingRecord) TableName() string { return "billing_records" }

// HasPeriod reports whether this is a monthly record rather than a template.
func (r BillingRecord) HasPeriod() bool {
	return r.Month != nil && r.Year != nil
}

func (r BillingRecord) InPeriod(month, year int) bool {
	return r.HasPeriod() && *r.Month == month && *r.Year == year
}

// Payload is the create/update body for a billing record.
type Payload struct {
	LocationID        snowflake.ID
	ResourceID        snowflake.ID
	Hours             decimal.Decimal
	ProductivityLevel ratetierdomain.ProductivityLevel
	Rate              decimal.Decimal
	FlatRate          decimal.Decimal
	Costing           decimal.Decimal
	TotalAmount       decimal.Decimal
	Description       string
	BillableStatus    BillableStatus
	Month             int
	Year              int
}

// Query selects the records of one period. A zero LocationID spans every
// location; IncludeTemplates adds records that carry no period.
type Query struct {
	LocationID       snowflake.ID
	Month            int
	Year             int
	IncludeTemplates bool
}
