package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	"github.com/smallbiznis/costing/internal/ratecatalog"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// snapshot is everything one reconciliation pass reads before merging.
type snapshot struct {
	locations []projectdomain.LocationView
	rates     map[snowflake.ID][]ratetierdomain.Rate
	records   map[string]billingrecorddomain.BillingRecord
	resources []resourcedomain.Resource
}

// Reconcile merges live assignments with the period's billing records into
// one row per location and resource, and replaces the workspace view.
func (s *Service) Reconcile(ctx context.Context, ws costingdomain.Workspace, filter costingdomain.Filter) ([]costingdomain.BillingRow, error) {
	ctx, span := s.tracer.Start(ctx, "costing.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("costing.period", filter.Period().String()),
		attribute.Bool("costing.single_location", filter.SingleLocation()),
	)

	if err := filter.Period().Validate(); err != nil {
		return nil, err
	}

	rows, err := s.reconcile(ctx, ws, filter)
	s.metrics.RecordReconcile(len(rows), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		s.logger(ctx).Warn("reconcile failed",
			zap.String("period", filter.Period().String()),
			zap.String("location_id", filter.LocationID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if ws.View != nil {
		ws.View.Replace(filter, rows)
	}
	span.SetAttributes(attribute.Int("costing.rows", len(rows)))
	s.logger(ctx).Debug("reconciled",
		zap.String("period", filter.Period().String()),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func (s *Service) reconcile(ctx context.Context, ws costingdomain.Workspace, filter costingdomain.Filter) ([]costingdomain.BillingRow, error) {
	locations, err := s.scope(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return []costingdomain.BillingRow{}, nil
	}

	snap, err := s.fetch(ctx, ws, filter, locations)
	if err != nil {
		return nil, err
	}

	byLocation := make(map[snowflake.ID]projectdomain.LocationView, len(locations))
	for _, loc := range locations {
		byLocation[loc.ID] = loc
	}
	roster := make(map[snowflake.ID]resourcedomain.Resource, len(snap.resources))
	for _, r := range snap.resources {
		roster[r.ID] = r
	}

	rows := make(map[string]costingdomain.BillingRow)

	// Pass 1: live assignments.
	for _, res := range snap.resources {
		for _, loc := range locations {
			if !res.AssignedTo(loc.ID) {
				continue
			}
			key := costingdomain.MergeKey(loc.ID, res.ID)
			record, ok := snap.records[key]
			var rec *billingrecorddomain.BillingRecord
			if ok {
				rec = &record
			}
			rows[key] = s.assignedRow(loc, res, rec, snap.rates[loc.ID])
		}
	}

	// Pass 2: records with no live assignment. Only absent keys are filled.
	for key, record := range snap.records {
		if _, taken := rows[key]; taken {
			continue
		}
		if !record.InPeriod(filter.Month, filter.Year) {
			continue
		}
		loc, ok := byLocation[record.LocationID]
		if !ok {
			continue
		}
		res, known := roster[record.ResourceID]
		var meta *resourcedomain.Resource
		if known {
			meta = &res
		}
		rows[key] = s.orphanRow(loc, record, meta)
	}

	out := make([]costingdomain.BillingRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sortRows(out)
	return out, nil
}

// scope resolves the locations a filter covers.
func (s *Service) scope(ctx context.Context, filter costingdomain.Filter) ([]projectdomain.LocationView, error) {
	if !filter.SingleLocation() {
		locations, err := s.store.ListLocations(ctx, filter.ProjectID)
		if err != nil {
			return nil, costingdomain.FetchFailed("locations", err)
		}
		return locations, nil
	}

	loc, err := s.store.GetLocation(ctx, filter.LocationID)
	if err != nil {
		return nil, costingdomain.FetchFailed("location", err)
	}
	if loc == nil {
		return nil, costingdomain.ErrLocationNotFound
	}
	if filter.ProjectID != 0 && loc.ProjectID != filter.ProjectID {
		return nil, costingdomain.ErrLocationNotFound
	}
	return []projectdomain.LocationView{*loc}, nil
}

// fetch reads rates, records and resources concurrently and fails closed
// if any read fails.
func (s *Service) fetch(ctx context.Context, ws costingdomain.Workspace, filter costingdomain.Filter, locations []projectdomain.LocationView) (*snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	catalogs := make([][]ratetierdomain.Rate, len(locations))
	for i, loc := range locations {
		g.Go(func() error {
			rates, err := ws.Rates.Rates(gctx, loc.ID)
			if err != nil {
				return costingdomain.FetchFailed("rate tiers", err)
			}
			catalogs[i] = rates
			return nil
		})
	}

	var records []billingrecorddomain.BillingRecord
	g.Go(func() error {
		var err error
		records, err = s.store.ListBillingRecords(gctx, billingrecorddomain.Query{
			LocationID:       filter.LocationID,
			Month:            filter.Month,
			Year:             filter.Year,
			IncludeTemplates: filter.SingleLocation(),
		})
		if err != nil {
			return costingdomain.FetchFailed("billing records", err)
		}
		return nil
	})

	var resources []resourcedomain.Resource
	g.Go(func() error {
		var err error
		if filter.SingleLocation() {
			resources, err = s.store.ListResourcesByLocation(gctx, filter.LocationID)
		} else {
			resources, err = ws.Resources.All(gctx)
		}
		if err != nil {
			return costingdomain.FetchFailed("resources", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &snapshot{
		locations: locations,
		rates:     make(map[snowflake.ID][]ratetierdomain.Rate, len(locations)),
		records:   indexRecords(records),
		resources: resources,
	}
	for i, loc := range locations {
		snap.rates[loc.ID] = catalogs[i]
	}
	return snap, nil
}

// indexRecords keys records by location and resource. A period record wins
// over a template record for the same key.
func indexRecords(records []billingrecorddomain.BillingRecord) map[string]billingrecorddomain.BillingRecord {
	out := make(map[string]billingrecorddomain.BillingRecord, len(records))
	for _, record := range records {
		key := costingdomain.MergeKey(record.LocationID, record.ResourceID)
		if existing, ok := out[key]; ok && existing.HasPeriod() && !record.HasPeriod() {
			continue
		}
		out[key] = record
	}
	return out
}

func (s *Service) assignedRow(loc projectdomain.LocationView, res resourcedomain.Resource, record *billingrecorddomain.BillingRecord, rates []ratetierdomain.Rate) costingdomain.BillingRow {
	row := baseRow(loc, res.ID)
	row.ResourceName = res.Name
	row.ResourceRole = res.Role
	row.AvatarURL = res.AvatarURL
	row.IsEditable = true

	if record == nil {
		row.ProductivityLevel = s.defaultLevel()
		row.IsBillable = true
	} else {
		id := record.ID
		row.BillingID = &id
		row.IsMonthlyRecord = record.HasPeriod()
		row.Hours = record.Hours
		row.ProductivityLevel = s.levelOrDefault(record.ProductivityLevel)
		row.Description = record.Description
		row.IsBillable = record.BillableStatus.IsBillable()
	}
	row.Rate = ratecatalog.Lookup(rates, row.ProductivityLevel)
	row.Recompute()
	return row
}

func (s *Service) orphanRow(loc projectdomain.LocationView, record billingrecorddomain.BillingRecord, meta *resourcedomain.Resource) costingdomain.BillingRow {
	row := baseRow(loc, record.ResourceID)
	id := record.ID
	row.BillingID = &id
	row.IsMonthlyRecord = record.HasPeriod()
	row.Hours = record.Hours
	row.ProductivityLevel = s.levelOrDefault(record.ProductivityLevel)
	row.Rate = record.Rate
	row.Description = record.Description
	row.IsBillable = record.BillableStatus.IsBillable()

	switch {
	case meta != nil:
		row.ResourceName = meta.Name
		row.ResourceRole = meta.Role
		row.AvatarURL = meta.AvatarURL
	case strings.TrimSpace(record.ResourceName) != "":
		row.ResourceName = record.ResourceName
	default:
		row.ResourceName = costingdomain.DeletedResourceLabel
		row.IsDeletedResource = true
	}
	row.Recompute()
	return row
}

func (s *Service) levelOrDefault(level ratetierdomain.ProductivityLevel) ratetierdomain.ProductivityLevel {
	if parsed, err := ratetierdomain.ParseProductivityLevel(string(level)); err == nil {
		return parsed
	}
	return s.defaultLevel()
}

func baseRow(loc projectdomain.LocationView, resourceID snowflake.ID) costingdomain.BillingRow {
	return costingdomain.BillingRow{
		UniqueID:     costingdomain.UniqueKey(loc.ProjectID, loc.ID, resourceID),
		LocationKey:  costingdomain.MergeKey(loc.ID, resourceID),
		ProjectID:    loc.ProjectID,
		ProjectName:  loc.ProjectName,
		ClientName:   loc.ClientName,
		LocationID:   loc.ID,
		LocationName: loc.Name,
		ResourceID:   resourceID,
		FlatRate:     loc.FlatRate,
	}
}

func sortRows(rows []costingdomain.BillingRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ProjectName != b.ProjectName {
			return a.ProjectName < b.ProjectName
		}
		if a.LocationName != b.LocationName {
			return a.LocationName < b.LocationName
		}
		if a.ResourceName != b.ResourceName {
			return a.ResourceName < b.ResourceName
		}
		return a.UniqueID < b.UniqueID
	})
}
