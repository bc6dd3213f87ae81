// Package memory provides an in-memory implementation of the incident store
// used for tests, the CLI and as the working set of the SQL-backed stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nfirscore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.IncidentStore = (*Store)(nil)

// Snapshot is a point-in-time copy of every stored document keyed by id.
type Snapshot struct {
	Incidents map[string]domain.IncidentDocument `json:"incidents"`
}

type memoryState struct {
	incidents map[string]domain.IncidentDocument
}

func newMemoryState() memoryState {
	return memoryState{incidents: make(map[string]domain.IncidentDocument)}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{incidents: make(map[string]domain.IncidentDocument, len(s.incidents))}
	for k, v := range s.incidents {
		cloned.incidents[k] = v.Clone()
	}
	return cloned
}

// Store keeps incident documents in process memory. Transactions work on a
// cloned state that replaces the live state only when fn succeeds.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = now
	s.mu.Unlock()
}

type transaction struct {
	state   memoryState
	changes []domain.Change
	now     time.Time
}

func (tx *transaction) Get(id string) (domain.IncidentDocument, bool) {
	doc, ok := tx.state.incidents[id]
	if !ok {
		return domain.IncidentDocument{}, false
	}
	return doc.Clone(), true
}

func (tx *transaction) Create(doc domain.IncidentDocument) (domain.IncidentDocument, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := tx.state.incidents[doc.ID]; exists {
		return domain.IncidentDocument{}, fmt.Errorf("incident %q already exists", doc.ID)
	}
	if doc.Workflow.Status == "" {
		doc.Workflow = domain.Workflow{Status: domain.StatusEditable}
	}
	doc.CreatedAt = tx.now
	doc.UpdatedAt = tx.now
	tx.state.incidents[doc.ID] = doc.Clone()
	tx.changes = append(tx.changes, domain.Change{
		IncidentID: doc.ID,
		Action:     domain.ActionCreate,
		After:      domain.NewChangePayload(doc),
		At:         tx.now,
	})
	return doc.Clone(), nil
}

func (tx *transaction) Update(id string, mutator func(*domain.IncidentDocument) error) (domain.IncidentDocument, error) {
	current, ok := tx.state.incidents[id]
	if !ok {
		return domain.IncidentDocument{}, domain.NotFoundError{ID: id}
	}
	before := current.Clone()
	next := current.Clone()
	if err := mutator(&next); err != nil {
		return domain.IncidentDocument{}, err
	}
	next.ID = id
	next.CreatedAt = before.CreatedAt
	next.UpdatedAt = tx.now
	tx.state.incidents[id] = next.Clone()
	tx.changes = append(tx.changes, domain.Change{
		IncidentID: id,
		Action:     domain.ActionUpdate,
		Before:     domain.NewChangePayload(before),
		After:      domain.NewChangePayload(next),
		At:         tx.now,
	})
	return next.Clone(), nil
}

type view struct {
	state *memoryState
}

func (v view) Get(id string) (domain.IncidentDocument, bool) {
	doc, ok := v.state.incidents[id]
	if !ok {
		return domain.IncidentDocument{}, false
	}
	return doc.Clone(), true
}

func (v view) List() []domain.IncidentDocument {
	out := make([]domain.IncidentDocument, 0, len(v.state.incidents))
	for _, doc := range v.state.incidents {
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RunInTransaction executes fn against a copy of the state and commits it
// when fn returns nil. The recorded changes are returned on success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) ([]domain.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	s.state = tx.state
	return tx.changes, nil
}

// View executes fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(domain.View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &snapshot})
}

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{Incidents: cloned.incidents}
}

// ImportState replaces the current state with a deep copy of snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	state := newMemoryState()
	for id, doc := range snapshot.Incidents {
		state.incidents[id] = doc.Clone()
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
