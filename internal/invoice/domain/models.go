// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

// Invoice bills a set of synced billing records for one period.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index;uniqueIndex:ux_invoice_org_sequence,priority:1;uniqueIndex:ux_invoice_org_number,priority:1"`
	Sequence      int64           `json:"sequence" gorm:"not null;uniqueIndex:ux_invoice_org_sequence,priority:2"`
	InvoiceNumber string          `json:"invoice_number" gorm:"type:varchar(64);not null;uniqueIndex:ux_invoice_org_number,priority:2"`
	Month         int             `json:"month" gorm:"not null"`
	Year          int             `json:"year" gorm:"not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:varchar(16);not null"`
	TotalHours    decimal.Decimal `json:"total_hours" gorm:"type:decimal(18,4);not null;default:0"`
	TotalCosting  decimal.Decimal `json:"total_costing" gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(18,4);not null;default:0"`
	IssuedAt      time.Time       `json:"issued_at" gorm:"not null"`
	Items         []InvoiceItem   `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem snapshots one billing record at invoicing time.
type InvoiceItem struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID    `json:"-" gorm:"column:org_id;not null;index"`
	InvoiceID       snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	BillingRecordID snowflake.ID    `json:"billing_record_id" gorm:"not null;index"`
	LocationID      snowflake.ID    `json:"location_id" gorm:"not null"`
	ResourceID      snowflake.ID    `json:"resource_id" gorm:"not null"`
	Hours           decimal.Decimal `json:"hours" gorm:"type:decimal(18,4);not null"`
	Rate            decimal.Decimal `json:"rate" gorm:"type:decimal(18,4);not null"`
	FlatRate        decimal.Decimal `json:"flat_rate" gorm:"type:decimal(18,4);not null"`
	Costing         decimal.Decimal `json:"costing" gorm:"type:decimal(18,4);not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Description     string          `json:"description" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
