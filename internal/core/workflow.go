package core

import (
	"time"

	"nfirscore/pkg/domain"
)

// Workflow is the incident lifecycle state machine. Editable documents accept
// mutations and may be locked once validation is clean; locked documents
// reject every mutation until an elevated actor unlocks them.
type Workflow struct {
	table     *domain.ClassificationTable
	validator *domain.Validator
	authz     Authorizer
	nowFn     func() time.Time
}

// WorkflowOption customises a Workflow.
type WorkflowOption func(*Workflow)

// WithClock overrides the lock timestamp source.
func WithClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) {
		if now != nil {
			w.nowFn = now
		}
	}
}

// WithClassificationTable overrides the classification table used when the
// incident type changes.
func WithClassificationTable(table *domain.ClassificationTable) WorkflowOption {
	return func(w *Workflow) {
		if table != nil {
			w.table = table
		}
	}
}

// WithValidator overrides the validator.
func WithValidator(v *domain.Validator) WorkflowOption {
	return func(w *Workflow) {
		if v != nil {
			w.validator = v
		}
	}
}

// NewWorkflow constructs the state machine. A nil authorizer denies every
// unlock.
func NewWorkflow(authz Authorizer, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		table:     domain.DefaultClassificationTable(),
		validator: NewDefaultValidator(),
		authz:     authz,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Table returns the classification table in use.
func (w *Workflow) Table() *domain.ClassificationTable {
	return w.table
}

// Validate runs the validator followed by the module set check against the
// classification table. It never mutates doc.
func (w *Workflow) Validate(doc domain.IncidentDocument, policy domain.FieldPolicy) domain.Result {
	res := w.validator.Validate(doc, policy)
	res.Merge(w.table.CheckModuleSet(doc))
	return res
}

// Mutate applies mutator to a copy of doc, then recomputes derived fields and
// re-validates. Locked documents are refused. A mutator error leaves the
// original untouched and is returned as-is. The incident type and the set of
// present sub-modules belong to ChangeClassification; a mutator that alters
// either is refused with ReasonModuleSetChanged.
func (w *Workflow) Mutate(doc domain.IncidentDocument, policy domain.FieldPolicy, mutator func(*domain.IncidentDocument) error) (domain.IncidentDocument, domain.Result, error) {
	if err := w.checkEditable(doc, domain.EventMutate); err != nil {
		return doc, domain.Result{}, err
	}
	next := doc.Clone()
	if mutator != nil {
		if err := mutator(&next); err != nil {
			return doc, domain.Result{}, err
		}
	}
	// the mutator must not be able to change the lifecycle state
	next.Workflow = doc.Workflow
	if next.Basic.IncidentType != doc.Basic.IncidentType || !sameModules(doc, next) {
		return doc, domain.Result{}, &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: domain.EventMutate, Reason: domain.ReasonModuleSetChanged}
	}
	next = domain.RecomputeDerived(next)
	return next, w.Validate(next, policy), nil
}

// ChangeClassification sets a new incident type and reshapes the sub-modules
// to match it. Locked documents are refused.
func (w *Workflow) ChangeClassification(doc domain.IncidentDocument, code string, policy domain.FieldPolicy) (domain.IncidentDocument, domain.Result, error) {
	if err := w.checkEditable(doc, domain.EventMutate); err != nil {
		return doc, domain.Result{}, err
	}
	next := w.table.ReshapeModules(doc, code)
	next = domain.RecomputeDerived(next)
	return next, w.Validate(next, policy), nil
}

// Lock moves an editable document to Locked when validation reports no
// findings, recording the actor and time. A document whose sub-modules do
// not match its incident type always has findings.
func (w *Workflow) Lock(doc domain.IncidentDocument, actor domain.Actor, policy domain.FieldPolicy) (domain.IncidentDocument, domain.Result, error) {
	if err := w.checkEditable(doc, domain.EventLock); err != nil {
		return doc, domain.Result{}, err
	}
	res := w.Validate(doc, policy)
	if !res.LockEligible() {
		return doc, res, &domain.InvalidTransitionError{
			From:     doc.Workflow.Status,
			Event:    domain.EventLock,
			Reason:   domain.ReasonOutstandingFindings,
			Findings: res.Findings,
		}
	}
	next := doc.Clone()
	next.Workflow = domain.Workflow{
		Status: domain.StatusLocked,
		Lock:   &domain.LockInfo{ActorID: actor.ID, LockedAt: w.nowFn()},
	}
	return next, res, nil
}

// Unlock returns a locked document to Editable. Only actors whose role the
// authorizer considers elevated may do so.
func (w *Workflow) Unlock(doc domain.IncidentDocument, actor domain.Actor) (domain.IncidentDocument, error) {
	if !doc.Workflow.Valid() {
		return doc, &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: domain.EventUnlock, Reason: domain.ReasonInvalidState}
	}
	if doc.Workflow.Status != domain.StatusLocked {
		return doc, &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: domain.EventUnlock, Reason: domain.ReasonNotLocked}
	}
	if w.authz == nil || !w.authz.CanUnlock(actor.Role) {
		return doc, &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: domain.EventUnlock, Reason: domain.ReasonNotElevated}
	}
	next := doc.Clone()
	next.Workflow = domain.Workflow{Status: domain.StatusEditable}
	return next, nil
}

func (w *Workflow) checkEditable(doc domain.IncidentDocument, event domain.Event) error {
	if !doc.Workflow.Valid() {
		return &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: event, Reason: domain.ReasonInvalidState}
	}
	if doc.Workflow.Status == domain.StatusLocked {
		return &domain.InvalidTransitionError{From: doc.Workflow.Status, Event: event, Reason: domain.ReasonDocumentLocked}
	}
	return nil
}

func sameModules(a, b domain.IncidentDocument) bool {
	for _, kind := range domain.SubModuleKinds {
		if a.HasModule(kind) != b.HasModule(kind) {
			return false
		}
	}
	return true
}
