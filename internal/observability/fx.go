package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/costing/internal/config"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	"github.com/smallbiznis/costing/pkg/telemetry"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	telemetry.Module,
	fx.Provide(
		provideRegisterer,
		provideMetrics,
	),
)

func provideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideMetrics(reg prometheus.Registerer, cfg config.Config) (*metrics.Metrics, error) {
	return metrics.New(reg, metrics.ConfigFrom(cfg))
}
