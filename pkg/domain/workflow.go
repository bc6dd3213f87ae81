package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an incident document.
type Status string

// Lifecycle states. There are exactly two.
const (
	StatusEditable Status = "Editable"
	StatusLocked   Status = "Locked"
)

// IsValid reports whether s is a known state.
func (s Status) IsValid() bool {
	return s == StatusEditable || s == StatusLocked
}

// LockInfo exists only while a document is locked.
type LockInfo struct {
	ActorID  string    `json:"actorId"`
	LockedAt time.Time `json:"lockedAt"`
}

// Workflow is the document lifecycle state plus the metadata that belongs to
// the Locked state.
type Workflow struct {
	Status Status    `json:"status"`
	Lock   *LockInfo `json:"lock,omitempty"`
}

// Valid reports whether the lock metadata agrees with the status.
func (w Workflow) Valid() bool {
	switch w.Status {
	case StatusEditable:
		return w.Lock == nil
	case StatusLocked:
		return w.Lock != nil
	default:
		return false
	}
}

func (w Workflow) clone() Workflow {
	cp := w
	if w.Lock != nil {
		lock := *w.Lock
		cp.Lock = &lock
	}
	return cp
}

// Display labels shown next to a report. They are derived, not states.
const (
	LabelInProgress   = "In Progress"
	LabelReviewNeeded = "Review Needed"
	LabelLocked       = "Locked"
)

// StatusLabel derives the display label for a report: locked reports are
// "Locked", editable reports with outstanding findings "Review Needed", and
// everything else "In Progress".
func StatusLabel(w Workflow, findings []Finding) string {
	if w.Status == StatusLocked {
		return LabelLocked
	}
	if len(findings) > 0 {
		return LabelReviewNeeded
	}
	return LabelInProgress
}

// Role is the acting user's role, passed explicitly on every transition.
type Role string

// Known roles.
const (
	RoleFirefighter   Role = "firefighter"
	RoleOfficer       Role = "officer"
	RoleChief         Role = "chief"
	RoleAdministrator Role = "administrator"
)

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	switch r {
	case RoleFirefighter, RoleOfficer, RoleChief, RoleAdministrator:
		return true
	}
	return false
}

// Actor identifies who requests an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Event names a requested workflow transition.
type Event string

// Workflow events.
const (
	EventMutate Event = "mutate"
	EventLock   Event = "lock"
	EventUnlock Event = "unlock"
)

// TransitionReason explains why a transition was refused.
type TransitionReason string

// Refusal reasons.
const (
	ReasonOutstandingFindings TransitionReason = "outstanding_findings"
	ReasonDocumentLocked      TransitionReason = "document_locked"
	ReasonNotLocked           TransitionReason = "not_locked"
	ReasonNotElevated         TransitionReason = "not_elevated"
	ReasonInvalidState        TransitionReason = "invalid_state"
	ReasonModuleSetChanged    TransitionReason = "module_set_changed"
)

// ErrInvalidTransition matches every *InvalidTransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

// InvalidTransitionError is returned when the state machine refuses an event.
type InvalidTransitionError struct {
	From     Status
	Event    Event
	Reason   TransitionReason
	Findings []Finding
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: %s from %s (%s)", e.Event, e.From, e.Reason)
	if n := len(e.Findings); n > 0 {
		msg = fmt.Sprintf("%s: %d outstanding findings", msg, n)
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidTransition) succeed.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
