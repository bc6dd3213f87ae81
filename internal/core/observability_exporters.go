package core

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nfirscore/pkg/domain"
)

// PrometheusMetricsRecorder exports operation counters, latencies and the
// most recent finding counts per module on its own registry.
type PrometheusMetricsRecorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	findings   *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder constructs a recorder with a private registry.
// namespace defaults to "nfirscore".
func NewPrometheusMetricsRecorder(namespace string) *PrometheusMetricsRecorder {
	if namespace == "" {
		namespace = "nfirscore"
	}
	rec := &PrometheusMetricsRecorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Incident service operations by outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Incident service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_findings",
			Help:      "Findings per module reported by the most recent validation.",
		}, []string{"module"}),
	}
	rec.registry.MustRegister(rec.operations, rec.durations, rec.findings)
	return rec
}

// Registry exposes the underlying registry, mainly for tests.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusMetricsRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveFindings sets the finding gauge for every module, zeroing modules
// without findings.
func (r *PrometheusMetricsRecorder) ObserveFindings(_ context.Context, byModule map[ModuleKind]int) {
	r.findings.WithLabelValues(string(domain.ModuleBasic)).Set(float64(byModule[domain.ModuleBasic]))
	for _, kind := range domain.SubModuleKinds {
		r.findings.WithLabelValues(string(kind)).Set(float64(byModule[kind]))
	}
}

// ZapAuditRecorder writes audit entries as structured log lines.
type ZapAuditRecorder struct {
	logger *zap.Logger
}

// NewZapAuditRecorder constructs a recorder; a nil logger discards entries.
func NewZapAuditRecorder(logger *zap.Logger) *ZapAuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditRecorder{logger: logger.Named("audit")}
}

// Record logs the entry at info level, or warn when the operation failed.
func (r *ZapAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("incident_id", entry.IncidentID),
		zap.String("actor_id", entry.ActorID),
		zap.String("actor_role", string(entry.ActorRole)),
		zap.String("status", string(entry.Status)),
		zap.Int("findings", entry.Findings),
		zap.Duration("duration", entry.Duration),
		zap.Time("at", entry.At),
	}
	if entry.Status == AuditStatusError {
		r.logger.Warn("incident operation failed", append(fields, zap.String("error", entry.Error))...)
		return
	}
	r.logger.Info("incident operation", fields...)
}
