package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GenerateInvoice syncs every row of the view and then issues an invoice over
// the synced rows that carry hours. The two phases fail independently: a
// sync failure leaves earlier syncs committed and yields a *SyncError, an
// invoice failure leaves all rows synced and yields a *InvoiceError.
func (s *Service) GenerateInvoice(ctx context.Context, ws costingdomain.Workspace, period costingdomain.Period) (costingdomain.InvoiceOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "costing.generate_invoice")
	defer span.End()
	span.SetAttributes(attribute.String("costing.period", period.String()))

	outcome := costingdomain.NewInvoiceOutcome()
	defer func() {
		span.SetAttributes(attribute.String("costing.invoice_state", string(outcome.State)))
		if outcome.State.Terminal() {
			s.metrics.RecordInvoice(string(outcome.State))
		}
	}()

	if err := period.Validate(); err != nil {
		return outcome, err
	}
	if ws.View == nil {
		return outcome, costingdomain.ErrNothingToInvoice
	}
	filter, ok := ws.View.Filter()
	if !ok {
		return outcome, costingdomain.ErrNothingToInvoice
	}
	if filter.Period() != period {
		return outcome, costingdomain.ErrViewPeriodChanged
	}

	rows := ws.View.Rows()
	if !anyInvoiceable(rows) {
		return outcome, costingdomain.ErrNothingToInvoice
	}

	outcome.Transition(costingdomain.StateSyncing)
	synced, created, err := s.syncAll(ctx, ws, rows, period)
	outcome.Synced = len(rows)
	outcome.Created = created
	if err != nil {
		outcome.Transition(costingdomain.StateSyncFailed)
		failPhase(span, err, "sync failed")
		s.logger(ctx).Warn("invoice sync phase failed",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return outcome, err
	}
	outcome.Transition(costingdomain.StateSynced)

	invoice := collectInvoiceable(synced, period)
	if len(invoice.BillingRecordIDs) == 0 {
		return outcome, costingdomain.ErrNothingToInvoice
	}

	outcome.Transition(costingdomain.StateInvoicing)
	issued, err := s.store.CreateInvoice(ctx, invoicedomain.CreateRequest{
		BillingRecordIDs: invoice.BillingRecordIDs,
		Month:            period.Month,
		Year:             period.Year,
	})
	if err != nil {
		outcome.Transition(costingdomain.StateInvoiceFailed)
		failPhase(span, err, "invoice failed")
		s.logger(ctx).Warn("invoice creation failed after sync",
			zap.String("period", period.String()),
			zap.Int("records", len(invoice.BillingRecordIDs)),
			zap.Error(err),
		)
		return outcome, &costingdomain.InvoiceError{Err: err}
	}

	invoice.ID = issued.ID
	invoice.InvoiceNumber = issued.InvoiceNumber
	outcome.Invoice = invoice
	outcome.Transition(costingdomain.StateInvoiced)

	s.logger(ctx).Info("invoice generated",
		zap.String("invoice_id", issued.ID.String()),
		zap.String("invoice_number", issued.InvoiceNumber),
		zap.String("period", period.String()),
		zap.Int("records", len(invoice.BillingRecordIDs)),
		zap.Int("created", created),
	)
	return outcome, nil
}

// syncAll syncs every row concurrently and waits for all of them to settle.
// Successful syncs are written back into the view so a retry updates rather
// than creates. The first failure in row order is returned.
func (s *Service) syncAll(ctx context.Context, ws costingdomain.Workspace, rows []costingdomain.BillingRow, period costingdomain.Period) ([]costingdomain.BillingRow, int, error) {
	results := make([]costingdomain.BillingRow, len(rows))
	failures := make([]error, len(rows))
	createdFlags := make([]bool, len(rows))

	var g errgroup.Group
	g.SetLimit(s.syncConcurrency())
	for i, row := range rows {
		g.Go(func() error {
			release, err := s.lockRow(ctx, row)
			if err != nil {
				failures[i] = err
				return nil
			}
			defer release()

			synced, created, err := s.syncRow(ctx, row, period)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = synced
			createdFlags[i] = created
			ws.View.Put(synced)
			return nil
		})
	}
	_ = g.Wait()

	created := 0
	for _, c := range createdFlags {
		if c {
			created++
		}
	}
	for i, err := range failures {
		if err != nil {
			return nil, created, syncError(rows[i], err)
		}
	}
	return results, created, nil
}

func anyInvoiceable(rows []costingdomain.BillingRow) bool {
	for _, row := range rows {
		if row.Invoiceable() {
			return true
		}
	}
	return false
}

func collectInvoiceable(rows []costingdomain.BillingRow, period costingdomain.Period) *costingdomain.Invoice {
	invoice := &costingdomain.Invoice{
		Month:            period.Month,
		Year:             period.Year,
		BillingRecordIDs: []snowflake.ID{},
		TotalHours:       decimal.Zero,
		TotalCosting:     decimal.Zero,
		TotalBill:        decimal.Zero,
	}
	for _, row := range rows {
		if !row.Invoiceable() {
			continue
		}
		invoice.BillingRecordIDs = append(invoice.BillingRecordIDs, *row.BillingID)
		invoice.TotalHours = invoice.TotalHours.Add(row.Hours)
		invoice.TotalCosting = invoice.TotalCosting.Add(row.CostingAmount)
		invoice.TotalBill = invoice.TotalBill.Add(row.TotalBillAmount)
	}
	return invoice
}

func failPhase(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
