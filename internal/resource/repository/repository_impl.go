package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() resourcedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, resource *resourcedomain.Resource) error {
	return db.WithContext(ctx).Omit("Assignments").Create(resource).Error
}

func (r *repo) Assign(ctx context.Context, db *gorm.DB, assignment *resourcedomain.Assignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) Unassign(ctx context.Context, db *gorm.DB, orgID, resourceID, locationID snowflake.ID) error {
	result := db.WithContext(ctx).
		Where("org_id = ? AND resource_id = ? AND location_id = ?", orgID, resourceID, locationID).
		Delete(&resourcedomain.Assignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return resourcedomain.ErrNotFound
	}
	return nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]resourcedomain.Resource, error) {
	var items []resourcedomain.Resource
	err := db.WithContext(ctx).
		Preload("Assignments").
		Where("org_id = ?", orgID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByLocation(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID) ([]resourcedomain.Resource, error) {
	var items []resourcedomain.Resource
	err := db.WithContext(ctx).
		Preload("Assignments").
		Where("org_id = ?", orgID).
		Where("id IN (?)", db.Model(&resourcedomain.Assignment{}).
			Select("resource_id").
			Where("org_id = ? AND location_id = ?", orgID, locationID)).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
