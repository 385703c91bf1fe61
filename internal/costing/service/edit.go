package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/ratecatalog"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ApplyEdit changes one field of a row, writes the result into the view and
// persists it. When persisting fails the view is restored to the pre-edit
// row and a *SyncError is returned with that row.
func (s *Service) ApplyEdit(ctx context.Context, ws costingdomain.Workspace, uniqueID string, edit costingdomain.Edit) (costingdomain.EditResult, error) {
	ctx, span := s.tracer.Start(ctx, "costing.apply_edit")
	defer span.End()
	span.SetAttributes(
		attribute.String("costing.unique_id", uniqueID),
		attribute.String("costing.field", string(edit.Field)),
	)

	if ws.View == nil {
		return costingdomain.EditResult{}, costingdomain.ErrRowNotFound
	}
	snapshot, ok := ws.View.Get(uniqueID)
	if !ok {
		return costingdomain.EditResult{}, costingdomain.ErrRowNotFound
	}
	if !snapshot.IsEditable {
		return costingdomain.EditResult{Row: snapshot}, costingdomain.ErrRowNotEditable
	}
	filter, _ := ws.View.Filter()

	updated, err := s.applyField(ctx, ws, snapshot, edit)
	if err != nil {
		return costingdomain.EditResult{Row: snapshot}, err
	}

	release, err := s.lockRow(ctx, snapshot)
	if err != nil {
		return costingdomain.EditResult{Row: snapshot}, err
	}
	defer release()

	ws.View.Put(updated)

	synced, created, err := s.syncRow(ctx, updated, filter.Period())
	if err != nil {
		ws.View.Put(snapshot)
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		s.logger(ctx).Warn("inline edit reverted",
			zap.String("unique_id", uniqueID),
			zap.String("field", string(edit.Field)),
			zap.Error(err),
		)
		return costingdomain.EditResult{Row: snapshot}, syncError(snapshot, err)
	}

	ws.View.Put(synced)
	return costingdomain.EditResult{Row: synced, Created: created}, nil
}

// applyField returns a copy of row with the edit applied and derived fields
// recomputed.
func (s *Service) applyField(ctx context.Context, ws costingdomain.Workspace, row costingdomain.BillingRow, edit costingdomain.Edit) (costingdomain.BillingRow, error) {
	updated := row.Clone()

	switch edit.Field {
	case costingdomain.FieldHours:
		hours, err := parseHours(edit.Value)
		if err != nil {
			return row, err
		}
		updated.Hours = hours
	case costingdomain.FieldProductivityLevel:
		raw, err := cast.ToStringE(edit.Value)
		if err != nil {
			return row, invalidEdit(edit.Field, err)
		}
		level, err := ratetierdomain.ParseProductivityLevel(raw)
		if err != nil {
			return row, invalidEdit(edit.Field, err)
		}
		rates, err := ws.Rates.Rates(ctx, row.LocationID)
		if err != nil {
			return row, costingdomain.FetchFailed("rate tiers", err)
		}
		updated.ProductivityLevel = level
		updated.Rate = ratecatalog.Lookup(rates, level)
	case costingdomain.FieldDescription:
		description, err := cast.ToStringE(edit.Value)
		if err != nil {
			return row, invalidEdit(edit.Field, err)
		}
		updated.Description = description
	case costingdomain.FieldIsBillable:
		billable, err := parseBillable(edit.Value)
		if err != nil {
			return row, err
		}
		updated.IsBillable = billable
	default:
		return row, fmt.Errorf("%w: unknown field %q", costingdomain.ErrInvalidEdit, edit.Field)
	}

	updated.Recompute()
	return updated, nil
}

func parseHours(value any) (decimal.Decimal, error) {
	var hours decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		hours = v
	case nil:
		return decimal.Zero, invalidEdit(costingdomain.FieldHours, errors.New("missing value"))
	default:
		raw, err := cast.ToStringE(v)
		if err != nil {
			return decimal.Zero, invalidEdit(costingdomain.FieldHours, err)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return decimal.Zero, nil
		}
		hours, err = decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, invalidEdit(costingdomain.FieldHours, err)
		}
	}
	if hours.IsNegative() {
		return decimal.Zero, invalidEdit(costingdomain.FieldHours, errors.New("hours must not be negative"))
	}
	return hours, nil
}

func parseBillable(value any) (bool, error) {
	if raw, ok := value.(string); ok {
		switch billingrecorddomain.BillableStatus(strings.TrimSpace(raw)) {
		case billingrecorddomain.StatusBillable:
			return true, nil
		case billingrecorddomain.StatusNonBillable:
			return false, nil
		}
	}
	billable, err := cast.ToBoolE(value)
	if err != nil {
		return false, invalidEdit(costingdomain.FieldIsBillable, err)
	}
	return billable, nil
}

func invalidEdit(field costingdomain.EditField, err error) error {
	return fmt.Errorf("%w: %s: %w", costingdomain.ErrInvalidEdit, field, err)
}
