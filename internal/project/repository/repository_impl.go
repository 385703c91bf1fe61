package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() projectdomain.Repository {
	return &repo{}
}

func (r *repo) InsertProject(ctx context.Context, db *gorm.DB, project *projectdomain.Project) error {
	return db.WithContext(ctx).Create(project).Error
}

func (r *repo) InsertLocation(ctx context.Context, db *gorm.DB, location *projectdomain.Location) error {
	return db.WithContext(ctx).Create(location).Error
}

func (r *repo) ListProjects(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]projectdomain.Project, error) {
	var items []projectdomain.Project
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListLocations(ctx context.Context, db *gorm.DB, orgID, projectID snowflake.ID) ([]projectdomain.LocationView, error) {
	stmt := r.locationQuery(ctx, db, orgID)
	if projectID != 0 {
		stmt = stmt.Where("l.project_id = ?", projectID)
	}

	var items []projectdomain.LocationView
	if err := stmt.Order("p.name ASC, l.name ASC").Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindLocation(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*projectdomain.LocationView, error) {
	var items []projectdomain.LocationView
	if err := r.locationQuery(ctx, db, orgID).Where("l.id = ?", id).Limit(1).Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) locationQuery(ctx context.Context, db *gorm.DB, orgID snowflake.ID) *gorm.DB {
	return db.WithContext(ctx).
		Table("locations AS l").
		Select(`l.id, l.org_id, l.project_id, l.name, l.flat_rate, l.created_at, l.updated_at,
			p.name AS project_name, p.client_name AS client_name`).
		Joins("JOIN projects AS p ON p.id = l.project_id AND p.deleted_at IS NULL").
		Where("l.org_id = ? AND l.deleted_at IS NULL", orgID)
}
