package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixtures writes catalog rows straight into a test database.
type Fixtures struct {
	t     *testing.T
	db    *gorm.DB
	node  *snowflake.Node
	OrgID snowflake.ID
	now   time.Time
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	node := Node(t)
	return &Fixtures{
		t:     t,
		db:    db,
		node:  node,
		OrgID: node.Generate(),
		now:   time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *Fixtures) Node() *snowflake.Node { return f.node }

func (f *Fixtures) Project(name, client string) projectdomain.Project {
	p := projectdomain.Project{
		ID:         f.node.Generate(),
		OrgID:      f.OrgID,
		Name:       name,
		ClientName: client,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	require.NoError(f.t, f.db.Create(&p).Error)
	return p
}

func (f *Fixtures) Location(projectID snowflake.ID, name string, flatRate int64) projectdomain.Location {
	l := projectdomain.Location{
		ID:        f.node.Generate(),
		OrgID:     f.OrgID,
		ProjectID: projectID,
		Name:      name,
		FlatRate:  decimal.NewFromInt(flatRate),
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	require.NoError(f.t, f.db.Create(&l).Error)
	return l
}

// Rates inserts one tier per level.
func (f *Fixtures) Rates(locationID snowflake.ID, levels map[ratetierdomain.ProductivityLevel]int64) {
	for level, rate := range levels {
		tier := ratetierdomain.RateTier{
			ID:         f.node.Generate(),
			OrgID:      f.OrgID,
			LocationID: locationID,
			Level:      level,
			BaseRate:   decimal.NewFromInt(rate),
			CreatedAt:  f.now,
			UpdatedAt:  f.now,
		}
		require.NoError(f.t, f.db.Create(&tier).Error)
	}
}

// StandardRates is Low=15, Medium=20, High=25, Best=30.
func StandardRates() map[ratetierdomain.ProductivityLevel]int64 {
	return map[ratetierdomain.ProductivityLevel]int64{
		ratetierdomain.LevelLow:    15,
		ratetierdomain.LevelMedium: 20,
		ratetierdomain.LevelHigh:   25,
		ratetierdomain.LevelBest:   30,
	}
}

func (f *Fixtures) Resource(name, role string, locationIDs ...snowflake.ID) resourcedomain.Resource {
	r := resourcedomain.Resource{
		ID:        f.node.Generate(),
		OrgID:     f.OrgID,
		Name:      name,
		Role:      role,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	require.NoError(f.t, f.db.Omit("Assignments").Create(&r).Error)
	for _, locationID := range locationIDs {
		f.Assign(r.ID, locationID)
	}
	return r
}

func (f *Fixtures) Assign(resourceID, locationID snowflake.ID) {
	a := resourcedomain.Assignment{
		ID:         f.node.Generate(),
		OrgID:      f.OrgID,
		ResourceID: resourceID,
		LocationID: locationID,
		CreatedAt:  f.now,
	}
	require.NoError(f.t, f.db.Create(&a).Error)
}

func (f *Fixtures) Unassign(resourceID, locationID snowflake.ID) {
	require.NoError(f.t, f.db.
		Where("resource_id = ? AND location_id = ?", resourceID, locationID).
		Delete(&resourcedomain.Assignment{}).Error)
}

func (f *Fixtures) DeleteResource(resourceID snowflake.ID) {
	require.NoError(f.t, f.db.Delete(&resourcedomain.Resource{}, "id = ?", resourceID).Error)
}

func (f *Fixtures) DeleteProject(projectID snowflake.ID) {
	require.NoError(f.t, f.db.Delete(&projectdomain.Project{}, "id = ?", projectID).Error)
}

// Record inserts a billing record; a zero month stores a template record.
func (f *Fixtures) Record(locationID, resourceID snowflake.ID, hours int64, level ratetierdomain.ProductivityLevel, month, year int) billingrecorddomain.BillingRecord {
	r := billingrecorddomain.BillingRecord{
		ID:                f.node.Generate(),
		OrgID:             f.OrgID,
		LocationID:        locationID,
		ResourceID:        resourceID,
		Hours:             decimal.NewFromInt(hours),
		ProductivityLevel: level,
		Rate:              decimal.NewFromInt(1),
		FlatRate:          decimal.Zero,
		Costing:           decimal.Zero,
		TotalAmount:       decimal.Zero,
		Description:       "seeded",
		BillableStatus:    billingrecorddomain.StatusBillable,
		CreatedAt:         f.now,
		UpdatedAt:         f.now,
	}
	if month != 0 {
		r.Month = &month
		r.Year = &year
	}
	require.NoError(f.t, f.db.Create(&r).Error)
	return r
}
