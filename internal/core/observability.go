package core

import (
	"context"
	"time"
)

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// FindingsRecorder optionally receives per-module finding counts after each
// validation. Metrics recorders may implement it.
type FindingsRecorder interface {
	ObserveFindings(ctx context.Context, byModule map[ModuleKind]int)
}

// AuditStatus classifies an audit entry.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for the audit trail.
type AuditEntry struct {
	Operation  string
	IncidentID string
	ActorID    string
	ActorRole  Role
	Status     AuditStatus
	Error      string
	Findings   int
	Duration   time.Duration
	At         time.Time
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}
