package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, resource *Resource) error
	Assign(ctx context.Context, db *gorm.DB, assignment *Assignment) error
	Unassign(ctx context.Context, db *gorm.DB, orgID, resourceID, locationID snowflake.ID) error
	// ListAll returns the live roster with assignments preloaded.
	ListAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Resource, error)
	// ListByLocation returns live resources assigned to the location.
	ListByLocation(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID) ([]Resource, error)
}

var ErrNotFound = errors.New("resource_not_found")
