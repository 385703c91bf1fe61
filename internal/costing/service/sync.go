package service

import (
	"context"

	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	"go.uber.org/zap"
)

// syncRow persists row for period: an update when the row is backed by a
// monthly record, otherwise a create whose id the row adopts.
func (s *Service) syncRow(ctx context.Context, row costingdomain.BillingRow, period costingdomain.Period) (costingdomain.BillingRow, bool, error) {
	payload := row.Payload(period)

	if row.HasMonthlyRecord() {
		err := s.store.UpdateBillingRecord(ctx, *row.BillingID, payload)
		s.metrics.RecordSync(metrics.SyncOpUpdate, err)
		return row, false, err
	}

	id, err := s.store.CreateBillingRecord(ctx, payload)
	s.metrics.RecordSync(metrics.SyncOpCreate, err)
	if err != nil {
		return row, false, err
	}

	synced := row.Clone()
	synced.BillingID = &id
	synced.IsMonthlyRecord = true
	s.logger(ctx).Debug("billing record adopted",
		zap.String("unique_id", row.UniqueID),
		zap.String("billing_id", id.String()),
	)
	return synced, true, nil
}

func syncError(row costingdomain.BillingRow, err error) *costingdomain.SyncError {
	return &costingdomain.SyncError{
		UniqueID:     row.UniqueID,
		ResourceID:   row.ResourceID,
		ResourceName: row.ResourceName,
		Err:          err,
	}
}
