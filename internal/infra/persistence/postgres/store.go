// Package postgres provides a Postgres-backed incident store with the same
// semantics as the in-memory store. Schema changes are applied by goose on
// startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"nfirscore/internal/infra/persistence/memory"
	"nfirscore/internal/infra/persistence/migrations"
	"nfirscore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.IncidentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/nfirscore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists incidents to Postgres while running transactions against
// the in-memory working set.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects using dsn (defaultDSN when empty), migrates the schema
// and loads existing incidents.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := migrations.Up(ctx, db, migrations.Postgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	snapshot, err := loadIncidents(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func loadIncidents(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM incidents`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{Incidents: make(map[string]domain.IncidentDocument)}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan incident: %w", err)
		}
		doc, ok := domain.ChangePayloadFromRaw(payload).Decode()
		if !ok {
			return memory.Snapshot{}, fmt.Errorf("decode incident %s: %w", id, errors.New("invalid payload"))
		}
		snapshot.Incidents[id] = doc
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate incidents: %w", err)
	}
	return snapshot, nil
}

// RunInTransaction applies fn, then writes every touched incident and its
// change record in a single Postgres transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) ([]domain.Change, error) {
	// writes reach the database in commit order
	s.mu.Lock()
	defer s.mu.Unlock()
	changes, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, changes); err != nil {
		return changes, err
	}
	return changes, nil
}

func (s *Store) persist(ctx context.Context, changes []domain.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		doc, ok := change.After.Decode()
		if !ok {
			return fmt.Errorf("change for %s has no document snapshot", change.IncidentID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO incidents(id, status, incident_type, payload, created_at, updated_at)
			VALUES($1,$2,$3,$4,$5,$6)
			ON CONFLICT(id) DO UPDATE SET status=EXCLUDED.status, incident_type=EXCLUDED.incident_type,
				payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`,
			doc.ID, string(doc.Workflow.Status), doc.ClassificationCode(), string(change.After.Raw()),
			doc.CreatedAt, doc.UpdatedAt); err != nil {
			return fmt.Errorf("upsert incident %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO incident_changes(incident_id, action, before_payload, after_payload, changed_at)
			VALUES($1,$2,$3,$4,$5)`,
			change.IncidentID, string(change.Action), rawOrNil(change.Before), rawOrNil(change.After), change.At); err != nil {
			return fmt.Errorf("record change for %s: %w", change.IncidentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// History returns the recorded changes for an incident, oldest first.
func (s *Store) History(ctx context.Context, incidentID string) ([]domain.Change, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, before_payload, after_payload, changed_at
		FROM incident_changes WHERE incident_id = $1 ORDER BY seq`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("select changes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Change
	for rows.Next() {
		var action string
		var before, after []byte
		var at time.Time
		if err := rows.Scan(&action, &before, &after, &at); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		out = append(out, domain.Change{
			IncidentID: incidentID,
			Action:     domain.Action(action),
			Before:     domain.ChangePayloadFromRaw(before),
			After:      domain.ChangePayloadFromRaw(after),
			At:         at.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func rawOrNil(p domain.ChangePayload) any {
	if !p.Defined() {
		return nil
	}
	return string(p.Raw())
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
