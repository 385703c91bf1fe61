package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, payload Payload) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query Query) ([]BillingRecord, error)
	FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]BillingRecord, error)
}

var (
	ErrNotFound       = errors.New("billing_record_not_found")
	ErrDuplicate      = errors.New("billing_record_duplicate")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidPayload = errors.New("invalid_billing_record")
)
