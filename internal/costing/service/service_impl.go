package service

import (
	"context"

	"github.com/smallbiznis/costing/internal/config"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	"github.com/smallbiznis/costing/internal/orgcontext"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"github.com/smallbiznis/costing/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultSyncConcurrency = 8

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Store   costingdomain.BillingStore
	Config  *config.CostingConfigHolder
	Metrics *metrics.Metrics       `optional:"true"`
	Guard   costingdomain.RowGuard `optional:"true"`
	Tracer  trace.TracerProvider   `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	store   costingdomain.BillingStore
	cfg     *config.CostingConfigHolder
	metrics *metrics.Metrics
	guard   costingdomain.RowGuard
	tracer  trace.Tracer
}

func NewService(p ServiceParam) costingdomain.Service {
	provider := p.Tracer
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Service{
		log:     p.Log.Named("costing.service"),
		store:   p.Store,
		cfg:     p.Config,
		metrics: p.Metrics,
		guard:   p.Guard,
		tracer:  provider.Tracer("costing/engine"),
	}
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return ctxlogger.WithContext(ctx, s.log)
}

func (s *Service) settings() config.CostingConfig {
	if s.cfg == nil {
		return config.DefaultCostingConfig()
	}
	return s.cfg.Get()
}

func (s *Service) defaultLevel() ratetierdomain.ProductivityLevel {
	level, err := ratetierdomain.ParseProductivityLevel(s.settings().DefaultProductivityLevel)
	if err != nil {
		return ratetierdomain.LevelMedium
	}
	return level
}

func (s *Service) syncConcurrency() int {
	if n := s.settings().Invoice.SyncConcurrency; n > 0 {
		return n
	}
	return defaultSyncConcurrency
}

// lockRow serializes syncs of one row when a guard is configured.
func (s *Service) lockRow(ctx context.Context, row costingdomain.BillingRow) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	key := "costing:row:" + row.LocationKey
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok {
		key = "costing:row:" + orgID.String() + ":" + row.LocationKey
	}
	return s.guard.Acquire(ctx, key)
}
