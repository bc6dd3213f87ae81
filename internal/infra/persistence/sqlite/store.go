// Package sqlite provides an SQLite-backed incident store. Documents live in
// the in-memory store for transactional work and are written through to one
// row per incident after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"nfirscore/internal/infra/persistence/memory"
	"nfirscore/internal/infra/persistence/migrations"
	"nfirscore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.IncidentStore = (*Store)(nil)

// Store persists incident documents to an SQLite file.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path, applies migrations and
// hydrates the in-memory working set.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "nfirscore.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)
	if _, err := migrations.Up(ctx, db, migrations.SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM incidents`)
	if err != nil {
		return fmt.Errorf("select incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{Incidents: make(map[string]domain.IncidentDocument)}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan incident: %w", err)
		}
		doc, err := decodeDocument(payload)
		if err != nil {
			return fmt.Errorf("decode incident %s: %w", id, err)
		}
		snapshot.Incidents[id] = doc
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate incidents: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

// RunInTransaction applies fn to the working set, then writes the touched
// documents and their change records to SQLite.
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

func (s *Store) persist(ctx context.Context, changes []domain.Change) (retErr error) {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		doc, ok := change.After.Decode()
		if !ok {
			return fmt.Errorf("change for %s has no document snapshot", change.IncidentID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO incidents(id, status, incident_type, payload, created_at, updated_at)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET status=excluded.status, incident_type=excluded.incident_type,
				payload=excluded.payload, updated_at=excluded.updated_at`,
			doc.ID, string(doc.Workflow.Status), doc.ClassificationCode(), []byte(change.After.Raw()),
			formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt)); err != nil {
			return fmt.Errorf("upsert incident %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO incident_changes(incident_id, action, before_payload, after_payload, changed_at)
			VALUES(?,?,?,?,?)`,
			change.IncidentID, string(change.Action), nullableRaw(change.Before), nullableRaw(change.After),
			formatTime(change.At)); err != nil {
			return fmt.Errorf("record change for %s: %w", change.IncidentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns the recorded changes for an incident, oldest first.
func (s *Store) History(ctx context.Context, incidentID string) ([]domain.Change, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, before_payload, after_payload, changed_at
		FROM incident_changes WHERE incident_id = ? ORDER BY seq`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("select changes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Change
	for rows.Next() {
		var action, changedAt string
		var before, after []byte
		if err := rows.Scan(&action, &before, &after, &changedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, changedAt)
		if err != nil {
			return nil, fmt.Errorf("parse changed_at %q: %w", changedAt, err)
		}
		out = append(out, domain.Change{
			IncidentID: incidentID,
			Action:     domain.Action(action),
			Before:     payloadFromRaw(before),
			After:      payloadFromRaw(after),
			At:         at,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
