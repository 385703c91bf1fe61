// Package billingstore is the durable billing store the costing engine reads
// from and synchronizes into.
package billingstore

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	"github.com/smallbiznis/costing/internal/clock"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	"github.com/smallbiznis/costing/internal/orgcontext"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"github.com/smallbiznis/costing/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidOrganization = errors.New("invalid_organization")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Projects   projectdomain.Repository
	Resources  resourcedomain.Repository
	RateTiers  ratetierdomain.Repository
	Records    billingrecorddomain.Repository
	InvoiceSvc invoicedomain.Service
}

type Store struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	projects   projectdomain.Repository
	resources  resourcedomain.Repository
	rateTiers  ratetierdomain.Repository
	records    billingrecorddomain.Repository
	invoiceSvc invoicedomain.Service
}

func New(p Params) *Store {
	return &Store{
		db:         p.DB,
		log:        p.Log.Named("billingstore"),
		genID:      p.GenID,
		clock:      p.Clock,
		projects:   p.Projects,
		resources:  p.Resources,
		rateTiers:  p.RateTiers,
		records:    p.Records,
		invoiceSvc: p.InvoiceSvc,
	}
}

func (s *Store) ListLocations(ctx context.Context, projectID snowflake.ID) ([]projectdomain.LocationView, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.projects.ListLocations(ctx, s.db, orgID, projectID)
}

// GetLocation returns nil when the location or its project no longer exists.
func (s *Store) GetLocation(ctx context.Context, id snowflake.ID) (*projectdomain.LocationView, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.projects.FindLocation(ctx, s.db, orgID, id)
}

func (s *Store) ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	tiers, err := s.rateTiers.ListByLocation(ctx, s.db, orgID, locationID)
	if err != nil {
		return nil, err
	}
	rates := make([]ratetierdomain.Rate, 0, len(tiers))
	for _, tier := range tiers {
		rates = append(rates, ratetierdomain.Rate{Level: tier.Level, BaseRate: tier.BaseRate})
	}
	return rates, nil
}

func (s *Store) ListAllResources(ctx context.Context) ([]resourcedomain.Resource, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.resources.ListAll(ctx, s.db, orgID)
}

func (s *Store) ListResourcesByLocation(ctx context.Context, locationID snowflake.ID) ([]resourcedomain.Resource, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.resources.ListByLocation(ctx, s.db, orgID, locationID)
}

func (s *Store) ListBillingRecords(ctx context.Context, query billingrecorddomain.Query) ([]billingrecorddomain.BillingRecord, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	if !validPeriod(query.Month, query.Year) {
		return nil, billingrecorddomain.ErrInvalidPeriod
	}
	return s.records.List(ctx, s.db, orgID, query)
}

func (s *Store) CreateBillingRecord(ctx context.Context, payload billingrecorddomain.Payload) (snowflake.ID, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return 0, err
	}
	if err := validatePayload(payload); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	month, year := payload.Month, payload.Year
	record := &billingrecorddomain.BillingRecord{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		LocationID:        payload.LocationID,
		ResourceID:        payload.ResourceID,
		Hours:             payload.Hours,
		ProductivityLevel: payload.ProductivityLevel,
		Rate:              payload.Rate,
		FlatRate:          payload.FlatRate,
		Costing:           payload.Costing,
		TotalAmount:       payload.TotalAmount,
		Description:       payload.Description,
		BillableStatus:    payload.BillableStatus,
		Month:             &month,
		Year:              &year,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.records.Insert(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return 0, billingrecorddomain.ErrDuplicate
		}
		return 0, err
	}

	s.log.Debug("billing record created",
		zap.String("billing_id", record.ID.String()),
		zap.String("location_id", record.LocationID.String()),
		zap.String("resource_id", record.ResourceID.String()),
	)
	return record.ID, nil
}

func (s *Store) UpdateBillingRecord(ctx context.Context, id snowflake.ID, payload billingrecorddomain.Payload) error {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return err
	}
	if id == 0 {
		return billingrecorddomain.ErrNotFound
	}
	if err := validatePayload(payload); err != nil {
		return err
	}
	if err := s.records.Update(ctx, s.db, orgID, id, payload); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return billingrecorddomain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Created, error) {
	return s.invoiceSvc.Create(ctx, req)
}

func (s *Store) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, ErrInvalidOrganization
	}
	return orgID, nil
}

func validPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year > 0
}

func validatePayload(p billingrecorddomain.Payload) error {
	if !validPeriod(p.Month, p.Year) {
		return billingrecorddomain.ErrInvalidPeriod
	}
	if p.LocationID == 0 || p.ResourceID == 0 {
		return billingrecorddomain.ErrInvalidPayload
	}
	if p.Hours.IsNegative() || p.Rate.IsNegative() || p.FlatRate.IsNegative() {
		return billingrecorddomain.ErrInvalidPayload
	}
	if !p.ProductivityLevel.Valid() {
		return billingrecorddomain.ErrInvalidPayload
	}
	switch p.BillableStatus {
	case billingrecorddomain.StatusBillable, billingrecorddomain.StatusNonBillable:
	default:
		return billingrecorddomain.ErrInvalidPayload
	}
	return nil
}
