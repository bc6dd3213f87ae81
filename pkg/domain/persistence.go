package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action indicates the kind of write captured in a change record.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Change describes one document write performed inside a transaction.
type Change struct {
	IncidentID string
	Action     Action
	Before     ChangePayload
	After      ChangePayload
	At         time.Time
}

// Transaction exposes the document operations a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Get(id string) (IncidentDocument, bool)
	Create(doc IncidentDocument) (IncidentDocument, error)
	Update(id string, mutator func(*IncidentDocument) error) (IncidentDocument, error)
}

// View provides read-only access to stored documents.
type View interface {
	Get(id string) (IncidentDocument, bool)
	List() []IncidentDocument
}

// IncidentStore is the persistence contract used by the service layer.
type IncidentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) ([]Change, error)
	View(ctx context.Context, fn func(View) error) error
	Close() error
}

// ErrNotFound matches NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing incident document.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("incident %s not found", e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
