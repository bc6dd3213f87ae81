package core

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nfirscore/internal/infra/persistence/memory"
)

func TestPrometheusRecorderCountsOperations(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("")
	rec.Observe(context.Background(), OpLockIncident, true, 10*time.Millisecond)
	rec.Observe(context.Background(), OpLockIncident, false, 5*time.Millisecond)
	rec.Observe(context.Background(), OpLockIncident, false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpLockIncident, "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpLockIncident, "error")); got != 2 {
		t.Fatalf("error count = %v", got)
	}
	if n := testutil.CollectAndCount(rec.operations); n != 2 {
		t.Fatalf("expected two series, got %d", n)
	}
}

func TestPrometheusRecorderFindingsGauge(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("test")
	rec.ObserveFindings(context.Background(), map[ModuleKind]int{ModuleBasic: 2, ModuleFire: 1})
	if got := testutil.ToFloat64(rec.findings.WithLabelValues(string(ModuleBasic))); got != 2 {
		t.Fatalf("basic gauge = %v", got)
	}
	if got := testutil.ToFloat64(rec.findings.WithLabelValues(string(ModuleWildland))); got != 0 {
		t.Fatalf("wildland gauge = %v", got)
	}
	rec.ObserveFindings(context.Background(), nil)
	if got := testutil.ToFloat64(rec.findings.WithLabelValues(string(ModuleBasic))); got != 0 {
		t.Fatalf("gauge not reset: %v", got)
	}
}

func TestPrometheusRecorderHandler(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("")
	rec.Observe(context.Background(), OpValidate, true, time.Millisecond)
	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), `nfirscore_operations_total{operation="validate",outcome="success"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", w.Body.String())
	}
}

func TestZapAuditRecorder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := NewZapAuditRecorder(zap.New(core))
	rec.Record(context.Background(), AuditEntry{Operation: OpLockIncident, IncidentID: "inc-1", ActorID: "officer-7", Status: AuditStatusSuccess})
	rec.Record(context.Background(), AuditEntry{Operation: OpUnlockIncident, IncidentID: "inc-1", Status: AuditStatusError, Error: "denied"})

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[0].ContextMap()["operation"] != OpLockIncident {
		t.Fatalf("operation field missing: %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "denied" {
		t.Fatalf("unexpected failure entry %+v", entries[1])
	}
}

type captureAudit struct {
	entries []AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func TestServiceReportsToRecorders(t *testing.T) {
	metrics := NewPrometheusMetricsRecorder("")
	audit := &captureAudit{}
	svc := NewService(memory.NewStore(), newTestWorkflow(),
		WithMetricsRecorder(metrics), WithAuditRecorder(audit), WithServiceClock(fixedClock()))
	ctx := context.Background()

	doc, _, err := svc.CreateIncident(ctx, officer, completeBasic("111"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.LockIncident(ctx, doc.ID, officer); err == nil {
		t.Fatalf("lock of incomplete report should fail")
	}

	if got := testutil.ToFloat64(metrics.operations.WithLabelValues(OpCreateIncident, "success")); got != 1 {
		t.Fatalf("create count = %v", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues(OpLockIncident, "error")); got != 1 {
		t.Fatalf("lock error count = %v", got)
	}
	// ignition area, heat source and structure type
	if got := testutil.ToFloat64(metrics.findings.WithLabelValues(string(ModuleFire))); got != 2 {
		t.Fatalf("fire findings gauge = %v", got)
	}

	if len(audit.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit.entries))
	}
	created, locked := audit.entries[0], audit.entries[1]
	if created.IncidentID != doc.ID || created.Status != AuditStatusSuccess || created.Findings != 3 {
		t.Fatalf("unexpected create entry %+v", created)
	}
	if locked.Status != AuditStatusError || locked.ActorID != officer.ID || !locked.At.Equal(fixedClock()()) {
		t.Fatalf("unexpected lock entry %+v", locked)
	}
	if locked.Error == "" {
		t.Fatalf("error text missing")
	}
}
