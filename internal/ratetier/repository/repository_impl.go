package repository

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ratetierdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *ratetierdomain.RateTier) error {
	return db.WithContext(ctx).Create(tier).Error
}

// ListByLocation returns the location's tiers ordered Low → Best.
func (r *repo) ListByLocation(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID) ([]ratetierdomain.RateTier, error) {
	var items []ratetierdomain.RateTier
	err := db.WithContext(ctx).
		Where("org_id = ? AND location_id = ?", orgID, locationID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Level.Rank() < items[j].Level.Rank()
	})
	return items, nil
}
