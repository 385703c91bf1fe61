package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreateRequest references the billing records an invoice covers.
type CreateRequest struct {
	BillingRecordIDs []snowflake.ID `json:"billing_record_ids"`
	Month            int            `json:"month"`
	Year             int            `json:"year"`
}

// Created is the server-assigned identity of a new invoice.
type Created struct {
	ID            snowflake.ID `json:"id"`
	InvoiceNumber string       `json:"invoice_number"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Created, error)
	GetByID(ctx context.Context, id string) (*Invoice, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrEmptyInvoice        = errors.New("empty_invoice")
	ErrUnknownRecord       = errors.New("unknown_billing_record")
	ErrPeriodMismatch      = errors.New("billing_record_period_mismatch")
	ErrNotFound            = errors.New("invoice_not_found")
)
