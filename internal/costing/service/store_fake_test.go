package service

import (
	"context"
	"sort"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
)

// fakeStore is an in-memory billing store with failure injection.
type fakeStore struct {
	mu sync.Mutex

	nextID    snowflake.ID
	locations []projectdomain.LocationView
	rates     map[snowflake.ID][]ratetierdomain.Rate
	resources map[snowflake.ID]*resourcedomain.Resource
	deleted   map[snowflake.ID]bool
	records   map[snowflake.ID]billingrecorddomain.BillingRecord
	invoices  []invoicedomain.CreateRequest

	failRates     error
	failRecords   error
	failResources error
	failInvoice   error
	failCreateFor map[snowflake.ID]error
	failUpdateFor map[snowflake.ID]error

	creates     int
	updates     int
	recordReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:        1000,
		rates:         map[snowflake.ID][]ratetierdomain.Rate{},
		resources:     map[snowflake.ID]*resourcedomain.Resource{},
		deleted:       map[snowflake.ID]bool{},
		records:       map[snowflake.ID]billingrecorddomain.BillingRecord{},
		failCreateFor: map[snowflake.ID]error{},
		failUpdateFor: map[snowflake.ID]error{},
	}
}

func (s *fakeStore) addLocation(projectID, locationID snowflake.ID, project, name string, flatRate int64) {
	s.locations = append(s.locations, projectdomain.LocationView{
		Location: projectdomain.Location{
			ID:        locationID,
			ProjectID: projectID,
			Name:      name,
			FlatRate:  decimal.NewFromInt(flatRate),
		},
		ProjectName: project,
	})
}

func (s *fakeStore) setRates(locationID snowflake.ID, low, medium, high, best int64) {
	s.rates[locationID] = []ratetierdomain.Rate{
		{Level: ratetierdomain.LevelLow, BaseRate: decimal.NewFromInt(low)},
		{Level: ratetierdomain.LevelMedium, BaseRate: decimal.NewFromInt(medium)},
		{Level: ratetierdomain.LevelHigh, BaseRate: decimal.NewFromInt(high)},
		{Level: ratetierdomain.LevelBest, BaseRate: decimal.NewFromInt(best)},
	}
}

func (s *fakeStore) addResource(id snowflake.ID, name string, locationIDs ...snowflake.ID) {
	r := &resourcedomain.Resource{ID: id, Name: name}
	for _, loc := range locationIDs {
		r.Assignments = append(r.Assignments, resourcedomain.Assignment{ResourceID: id, LocationID: loc})
	}
	s.resources[id] = r
}

func (s *fakeStore) unassign(resourceID, locationID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.resources[resourceID]
	kept := r.Assignments[:0]
	for _, a := range r.Assignments {
		if a.LocationID != locationID {
			kept = append(kept, a)
		}
	}
	r.Assignments = kept
}

func (s *fakeStore) deleteResource(id snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[id] = true
}

// addRecord seeds a stored record; month 0 makes a template.
func (s *fakeStore) addRecord(id, locationID, resourceID snowflake.ID, hours int64, level ratetierdomain.ProductivityLevel, month, year int) {
	r := billingrecorddomain.BillingRecord{
		ID:                id,
		LocationID:        locationID,
		ResourceID:        resourceID,
		Hours:             decimal.NewFromInt(hours),
		ProductivityLevel: level,
		Rate:              decimal.NewFromInt(1),
		Description:       "stored",
		BillableStatus:    billingrecorddomain.StatusBillable,
	}
	if month != 0 {
		r.Month, r.Year = &month, &year
	}
	s.records[id] = r
}

func (s *fakeStore) record(id snowflake.ID) (billingrecorddomain.BillingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *fakeStore) counts() (creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates, s.updates
}

func (s *fakeStore) ListLocations(ctx context.Context, projectID snowflake.ID) ([]projectdomain.LocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []projectdomain.LocationView
	for _, loc := range s.locations {
		if projectID == 0 || loc.ProjectID == projectID {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (s *fakeStore) GetLocation(ctx context.Context, id snowflake.ID) (*projectdomain.LocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range s.locations {
		if loc.ID == id {
			found := loc
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRates != nil {
		return nil, s.failRates
	}
	return append([]ratetierdomain.Rate(nil), s.rates[locationID]...), nil
}

func (s *fakeStore) ListAllResources(ctx context.Context) ([]resourcedomain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResources != nil {
		return nil, s.failResources
	}
	return s.liveResources(func(resourcedomain.Resource) bool { return true }), nil
}

func (s *fakeStore) ListResourcesByLocation(ctx context.Context, locationID snowflake.ID) ([]resourcedomain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResources != nil {
		return nil, s.failResources
	}
	return s.liveResources(func(r resourcedomain.Resource) bool { return r.AssignedTo(locationID) }), nil
}

func (s *fakeStore) liveResources(keep func(resourcedomain.Resource) bool) []resourcedomain.Resource {
	var out []resourcedomain.Resource
	for id, r := range s.resources {
		if s.deleted[id] {
			continue
		}
		copied := *r
		copied.Assignments = append([]resourcedomain.Assignment(nil), r.Assignments...)
		if keep(copied) {
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) ListBillingRecords(ctx context.Context, q billingrecorddomain.Query) ([]billingrecorddomain.BillingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordReads++
	if s.failRecords != nil {
		return nil, s.failRecords
	}
	var out []billingrecorddomain.BillingRecord
	for _, r := range s.records {
		if q.LocationID != 0 && r.LocationID != q.LocationID {
			continue
		}
		if !r.InPeriod(q.Month, q.Year) && !(q.IncludeTemplates && !r.HasPeriod()) {
			continue
		}
		if res, ok := s.resources[r.ResourceID]; ok && !s.deleted[r.ResourceID] {
			r.ResourceName = res.Name
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CreateBillingRecord(ctx context.Context, p billingrecorddomain.Payload) (snowflake.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCreateFor[p.ResourceID]; err != nil {
		return 0, err
	}
	for _, r := range s.records {
		if r.LocationID == p.LocationID && r.ResourceID == p.ResourceID && r.InPeriod(p.Month, p.Year) {
			return 0, billingrecorddomain.ErrDuplicate
		}
	}
	s.nextID++
	id := s.nextID
	s.records[id] = fromPayload(id, p)
	s.creates++
	return id, nil
}

func (s *fakeStore) UpdateBillingRecord(ctx context.Context, id snowflake.ID, p billingrecorddomain.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failUpdateFor[p.ResourceID]; err != nil {
		return err
	}
	if _, ok := s.records[id]; !ok {
		return billingrecorddomain.ErrNotFound
	}
	s.records[id] = fromPayload(id, p)
	s.updates++
	return nil
}

func (s *fakeStore) CreateInvoice(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Created, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInvoice != nil {
		return nil, s.failInvoice
	}
	s.invoices = append(s.invoices, req)
	return &invoicedomain.Created{ID: snowflake.ID(9000 + len(s.invoices)), InvoiceNumber: "INV-TEST"}, nil
}

func fromPayload(id snowflake.ID, p billingrecorddomain.Payload) billingrecorddomain.BillingRecord {
	month, year := p.Month, p.Year
	return billingrecorddomain.BillingRecord{
		ID:                id,
		LocationID:        p.LocationID,
		ResourceID:        p.ResourceID,
		Hours:             p.Hours,
		ProductivityLevel: p.ProductivityLevel,
		Rate:              p.Rate,
		FlatRate:          p.FlatRate,
		Costing:           p.Costing,
		TotalAmount:       p.TotalAmount,
		Description:       p.Description,
		BillableStatus:    p.BillableStatus,
		Month:             &month,
		Year:              &year,
	}
}
