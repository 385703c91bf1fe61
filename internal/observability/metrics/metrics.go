package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/costing/internal/config"
)

const (
	ResultOK    = "ok"
	ResultError = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"

	SyncOpCreate = "create"
	SyncOpUpdate = "update"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{ServiceName: cfg.AppName, Environment: cfg.Environment}
}

// Metrics exposes the costing engine's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	reconcileTotal *prometheus.CounterVec
	reconcileRows  prometheus.Histogram
	syncTotal      *prometheus.CounterVec
	invoiceTotal   *prometheus.CounterVec
	rateCacheTotal *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds the instruments and registers them with registerer.
func New(registerer prometheus.Registerer, cfg Config) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "costing"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "costing_reconcile_total",
			Help:        "Reconciliation passes by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		reconcileRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "costing_reconcile_rows",
			Help:        "Rows produced per successful reconciliation pass.",
			Buckets:     []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			ConstLabels: constLabels,
		}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "costing_sync_total",
			Help:        "Billing record synchronizations by operation and result.",
			ConstLabels: constLabels,
		}, []string{"op", "result"}),
		invoiceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "costing_invoice_total",
			Help:        "Invoice generation runs by terminal state.",
			ConstLabels: constLabels,
		}, []string{"state"}),
		rateCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "costing_rate_cache_total",
			Help:        "Rate catalog lookups by cache result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "costing_http_requests_total",
			Help:        "HTTP requests by method, route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "costing_http_request_duration_seconds",
			Help:        "HTTP request latency by method and route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
	}

	collectors := []prometheus.Collector{
		m.reconcileTotal,
		m.reconcileRows,
		m.syncTotal,
		m.invoiceTotal,
		m.rateCacheTotal,
		m.httpRequests,
		m.httpDuration,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordReconcile(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconcileTotal.WithLabelValues(ResultError).Inc()
		return
	}
	m.reconcileTotal.WithLabelValues(ResultOK).Inc()
	m.reconcileRows.Observe(float64(rows))
}

func (m *Metrics) RecordSync(op string, err error) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) RecordInvoice(state string) {
	if m == nil {
		return
	}
	m.invoiceTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordRateCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.rateCacheTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	m.rateCacheTotal.WithLabelValues(CacheMiss).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// statusClass keeps the status label low-cardinality.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
