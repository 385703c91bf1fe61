package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingrecorddomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *billingrecorddomain.BillingRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, payload billingrecorddomain.Payload) error {
	result := db.WithContext(ctx).
		Model(&billingrecorddomain.BillingRecord{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"hours":              payload.Hours,
			"productivity_level": payload.ProductivityLevel,
			"rate":               payload.Rate,
			"flat_rate":          payload.FlatRate,
			"costing":            payload.Costing,
			"total_amount":       payload.TotalAmount,
			"description":        payload.Description,
			"billable_status":    payload.BillableStatus,
			"month":              payload.Month,
			"year":               payload.Year,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return billingrecorddomain.ErrNotFound
	}
	return nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query billingrecorddomain.Query) ([]billingrecorddomain.BillingRecord, error) {
	stmt := r.selectWithResource(ctx, db).Where("br.org_id = ?", orgID)
	if query.LocationID != 0 {
		stmt = stmt.Where("br.location_id = ?", query.LocationID)
	}
	if query.IncludeTemplates {
		stmt = stmt.Where("((br.month = ? AND br.year = ?) OR (br.month IS NULL AND br.year IS NULL))", query.Month, query.Year)
	} else {
		stmt = stmt.Where("br.month = ? AND br.year = ?", query.Month, query.Year)
	}

	var items []billingrecorddomain.BillingRecord
	if err := stmt.Order("br.created_at ASC").Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]billingrecorddomain.BillingRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []billingrecorddomain.BillingRecord
	err := r.selectWithResource(ctx, db).
		Where("br.org_id = ? AND br.id IN ?", orgID, ids).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// selectWithResource joins the live resource name; deleted resources yield an empty name.
func (r *repo) selectWithResource(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("billing_records AS br").
		Select(`br.id, br.org_id, br.location_id, br.resource_id, br.hours, br.productivity_level,
			br.rate, br.flat_rate, br.costing, br.total_amount, br.description, br.billable_status,
			br.month, br.year, br.created_at, br.updated_at,
			COALESCE(r.name, '') AS resource_name`).
		Joins("LEFT JOIN resources AS r ON r.id = br.resource_id AND r.deleted_at IS NULL")
}
