package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProject(ctx context.Context, db *gorm.DB, project *Project) error
	InsertLocation(ctx context.Context, db *gorm.DB, location *Location) error
	ListProjects(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Project, error)
	// ListLocations returns locations whose project still exists. A zero
	// projectID lists every project.
	ListLocations(ctx context.Context, db *gorm.DB, orgID, projectID snowflake.ID) ([]LocationView, error)
	FindLocation(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*LocationView, error)
}
