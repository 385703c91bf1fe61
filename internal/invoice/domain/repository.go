package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// NextSequence returns the org's next invoice sequence; call it inside the
	// transaction that inserts the invoice.
	NextSequence(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (int64, error)
	Insert(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
}
