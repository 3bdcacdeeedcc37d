package observability

import (
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Ingestion outcomes, used as the "outcome" label.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

const (
	metricPayloads  = "webhook_payloads_total"
	metricSentinels = "webhook_sentinel_substitutions_total"
)

// Metrics holds all Prometheus metrics for the webhook service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	payloads      *prometheus.CounterVec
	sentinels     *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	guardSkips    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		payloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPayloads,
				Help: "Webhook deliveries by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		sentinels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricSentinels,
				Help: "Canonical fields stored with a sentinel because no candidate path resolved.",
			},
			[]string{"field"},
		),
		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhook_store_duration_seconds",
				Help:    "Duration of row store calls by backend and operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_store_errors_total",
				Help: "Failed row store calls by backend and operation.",
			},
			[]string{"backend", "operation"},
		),
		guardSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_delivery_guard_hits_total",
				Help: "Deliveries short-circuited by the de-duplication window.",
			},
			[]string{"source"},
		),
	}
}

// IncrPayload counts one delivery.
func (m *Metrics) IncrPayload(source, outcome string) {
	m.payloads.WithLabelValues(source, outcome).Inc()
}

// IncrSentinel counts a sentinel substitution for field.
func (m *Metrics) IncrSentinel(field string) {
	m.sentinels.WithLabelValues(field).Inc()
}

// RecordStoreCall records latency and, on failure, an error for one store call.
func (m *Metrics) RecordStoreCall(backend, operation string, d time.Duration, err error) {
	m.storeDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(backend, operation).Inc()
	}
}

// IncrGuardHit counts a delivery answered from the de-duplication window.
func (m *Metrics) IncrGuardHit(source string) {
	m.guardSkips.WithLabelValues(source).Inc()
}

// IngestionSnapshot returns the cumulative ingestion counters suitable for
// the GET /v1/metrics/ingestion endpoint.
func (m *Metrics) IngestionSnapshot() *domain.IngestionMetrics {
	snap := &domain.IngestionMetrics{
		Accepted:   map[string]int64{},
		Duplicates: map[string]int64{},
		Rejected:   map[string]int64{},
		Malformed:  map[string]int64{},
		Failed:     map[string]int64{},
		Sentinels:  map[string]int64{},
		Period:     "all_time",
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return snap
	}

	for _, mf := range families {
		switch mf.GetName() {
		case metricPayloads:
			for _, metric := range mf.GetMetric() {
				source := labelValue(metric, "source")
				value := int64(metric.GetCounter().GetValue())
				switch labelValue(metric, "outcome") {
				case OutcomeAccepted:
					snap.Accepted[source] += value
				case OutcomeDuplicate:
					snap.Duplicates[source] += value
				case OutcomeRejected:
					snap.Rejected[source] += value
				case OutcomeMalformed:
					snap.Malformed[source] += value
				case OutcomeFailed:
					snap.Failed[source] += value
				}
			}
		case metricSentinels:
			for _, metric := range mf.GetMetric() {
				snap.Sentinels[labelValue(metric, "field")] += int64(metric.GetCounter().GetValue())
			}
		}
	}
	return snap
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
