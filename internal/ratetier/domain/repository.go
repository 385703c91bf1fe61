package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *RateTier) error
	ListByLocation(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID) ([]RateTier, error)
}
