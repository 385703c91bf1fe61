package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"gorm.io/gorm"
)

type demoResource struct {
	name string
	role string
}

type demoClient struct {
	client   string
	project  string
	location string
	flatRate int64
	rates    [4]int64 // Low, Medium, High, Best
	staff    []demoResource
}

var demoClients = []demoClient{
	{
		client:   "Verisma",
		project:  "Release of Information",
		location: "Austin",
		flatRate: 40,
		rates:    [4]int64{15, 20, 25, 30},
		staff: []demoResource{
			{name: "Ana Ruiz", role: "ROI Specialist"},
			{name: "Ben Ortiz", role: "QA Reviewer"},
		},
	},
	{
		client:   "MRO",
		project:  "Records Retrieval",
		location: "Denver",
		flatRate: 35,
		rates:    [4]int64{12, 16, 20, 24},
		staff: []demoResource{
			{name: "Cleo Park", role: "Retrieval Analyst"},
			{name: "Dev Shah", role: "Retrieval Analyst"},
		},
	},
	{
		client:   "Datavant",
		project:  "Data Abstraction",
		location: "Remote",
		flatRate: 45,
		rates:    [4]int64{18, 24, 30, 36},
		staff: []demoResource{
			{name: "Eli Moss", role: "Abstractor"},
		},
	},
}

// EnsureDemo provisions the demo clients for orgID. It is a no-op when the
// organization already has projects.
func EnsureDemo(ctx context.Context, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, now time.Time) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	if node == nil {
		return false, errors.New("seed id generator is required")
	}
	if orgID == 0 {
		return false, errors.New("seed organization is required")
	}

	seeded := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&projectdomain.Project{}).Where("org_id = ?", orgID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		for _, demo := range demoClients {
			if err := seedClient(tx, node, orgID, now, demo); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}

func seedClient(tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, now time.Time, demo demoClient) error {
	project := projectdomain.Project{
		ID:         node.Generate(),
		OrgID:      orgID,
		Name:       demo.project,
		ClientName: demo.client,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.Create(&project).Error; err != nil {
		return err
	}

	location := projectdomain.Location{
		ID:        node.Generate(),
		OrgID:     orgID,
		ProjectID: project.ID,
		Name:      demo.location,
		FlatRate:  decimal.NewFromInt(demo.flatRate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&location).Error; err != nil {
		return err
	}

	for i, level := range ratetierdomain.Levels {
		tier := ratetierdomain.RateTier{
			ID:         node.Generate(),
			OrgID:      orgID,
			LocationID: location.ID,
			Level:      level,
			BaseRate:   decimal.NewFromInt(demo.rates[i]),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&tier).Error; err != nil {
			return err
		}
	}

	for i, staff := range demo.staff {
		resource := resourcedomain.Resource{
			ID:        node.Generate(),
			OrgID:     orgID,
			Name:      staff.name,
			Role:      staff.role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Omit("Assignments").Create(&resource).Error; err != nil {
			return err
		}
		assignment := resourcedomain.Assignment{
			ID:         node.Generate(),
			OrgID:      orgID,
			ResourceID: resource.ID,
			LocationID: location.ID,
			CreatedAt:  now,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		// The first resource of each client starts from a template record.
		if i == 0 {
			if err := tx.Create(templateRecord(node.Generate(), orgID, location, resource.ID, demo.rates[1], now)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func templateRecord(id, orgID snowflake.ID, location projectdomain.Location, resourceID snowflake.ID, rate int64, now time.Time) *billingrecorddomain.BillingRecord {
	hours := decimal.NewFromInt(160)
	baseRate := decimal.NewFromInt(rate)
	return &billingrecorddomain.BillingRecord{
		ID:                id,
		OrgID:             orgID,
		LocationID:        location.ID,
		ResourceID:        resourceID,
		Hours:             hours,
		ProductivityLevel: ratetierdomain.LevelMedium,
		Rate:              baseRate,
		FlatRate:          location.FlatRate,
		Costing:           hours.Mul(baseRate),
		TotalAmount:       hours.Mul(location.FlatRate),
		Description:       "Standard monthly allocation",
		BillableStatus:    billingrecorddomain.StatusBillable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
