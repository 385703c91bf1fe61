package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/costing/internal/invoice/format"
	"github.com/smallbiznis/costing/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      *config.CostingConfigHolder
	Repo        invoicedomain.Repository
	RecordsRepo billingrecorddomain.Repository
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	cfg         *config.CostingConfigHolder
	repo        invoicedomain.Repository
	recordsRepo billingrecorddomain.Repository
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		repo:        p.Repo,
		recordsRepo: p.RecordsRepo,
	}
}

// Create issues an invoice over billing records of a single period. The
// records, sequence allocation and items are written in one transaction.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Created, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Month < 1 || req.Month > 12 || req.Year <= 0 {
		return nil, invoicedomain.ErrInvalidPeriod
	}

	ids := uniqueIDs(req.BillingRecordIDs)
	if len(ids) == 0 {
		return nil, invoicedomain.ErrEmptyInvoice
	}

	var created invoicedomain.Created
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records, err := s.recordsRepo.FindByIDs(ctx, tx, orgID, ids)
		if err != nil {
			return err
		}
		if len(records) != len(ids) {
			return invoicedomain.ErrUnknownRecord
		}
		for _, record := range records {
			if !record.InPeriod(req.Month, req.Year) {
				return invoicedomain.ErrPeriodMismatch
			}
		}

		seq, err := s.repo.NextSequence(ctx, tx, orgID)
		if err != nil {
			return err
		}
		period := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
		number, err := invoiceformat.InvoiceNumber(s.numberTemplate(), period, seq)
		if err != nil {
			return err
		}

		invoice := s.buildInvoice(orgID, seq, number, req, records)
		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return err
		}

		created = invoicedomain.Created{ID: invoice.ID, InvoiceNumber: invoice.InvoiceNumber}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice issued",
		zap.String("invoice_id", created.ID.String()),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.Int("records", len(ids)),
	)
	return &created, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, invoicedomain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) buildInvoice(orgID snowflake.ID, seq int64, number string, req invoicedomain.CreateRequest, records []billingrecorddomain.BillingRecord) *invoicedomain.Invoice {
	now := s.clock.Now()
	invoice := &invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Sequence:      seq,
		InvoiceNumber: number,
		Month:         req.Month,
		Year:          req.Year,
		Status:        invoicedomain.InvoiceStatusIssued,
		TotalHours:    decimal.Zero,
		TotalCosting:  decimal.Zero,
		TotalAmount:   decimal.Zero,
		IssuedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	for _, record := range records {
		invoice.Items = append(invoice.Items, invoicedomain.InvoiceItem{
			ID:              s.genID.Generate(),
			OrgID:           orgID,
			InvoiceID:       invoice.ID,
			BillingRecordID: record.ID,
			LocationID:      record.LocationID,
			ResourceID:      record.ResourceID,
			Hours:           record.Hours,
			Rate:            record.Rate,
			FlatRate:        record.FlatRate,
			Costing:         record.Costing,
			Amount:          record.TotalAmount,
			Description:     record.Description,
			CreatedAt:       now,
		})
		invoice.TotalHours = invoice.TotalHours.Add(record.Hours)
		invoice.TotalCosting = invoice.TotalCosting.Add(record.Costing)
		invoice.TotalAmount = invoice.TotalAmount.Add(record.TotalAmount)
	}
	return invoice
}

func (s *Service) numberTemplate() string {
	if s.cfg == nil {
		return invoiceformat.DefaultInvoiceNumberTemplate
	}
	if tmpl := strings.TrimSpace(s.cfg.Get().Invoice.NumberTemplate); tmpl != "" {
		return tmpl
	}
	return invoiceformat.DefaultInvoiceNumberTemplate
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, invoicedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
