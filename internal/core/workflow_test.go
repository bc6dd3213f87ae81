package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nfirscore/pkg/domain"
)

func TestLockThenMutateIsRejected(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()

	locked, res, err := wf.Lock(doc, officer, nil)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Fatalf("unexpected findings %v", fieldIDs(res))
	}
	if locked.Workflow.Status != domain.StatusLocked || locked.Workflow.Lock == nil {
		t.Fatalf("not locked: %+v", locked.Workflow)
	}
	if locked.Workflow.Lock.ActorID != officer.ID || !locked.Workflow.Lock.LockedAt.Equal(fixedClock()()) {
		t.Fatalf("unexpected lock info %+v", locked.Workflow.Lock)
	}
	if doc.Workflow.Status != domain.StatusEditable {
		t.Fatalf("input document was modified")
	}

	_, _, err = wf.Mutate(locked, nil, func(d *domain.IncidentDocument) error {
		d.Basic.Narrative = "late edit"
		return nil
	})
	assertTransition(t, err, domain.ReasonDocumentLocked)

	_, _, err = wf.ChangeClassification(locked, "131", nil)
	assertTransition(t, err, domain.ReasonDocumentLocked)

	_, _, err = wf.Lock(locked, officer, nil)
	assertTransition(t, err, domain.ReasonDocumentLocked)
}

func TestLockRefusedWithOutstandingFindings(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	doc.StructureFire.StructureType = ""

	same, res, err := wf.Lock(doc, officer, nil)
	transition := assertTransition(t, err, domain.ReasonOutstandingFindings)
	if diff := cmp.Diff(res.Findings, transition.Findings); diff != "" {
		t.Fatalf("error should carry the findings:\n%s", diff)
	}
	if len(transition.Findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(transition.Findings))
	}
	if same.Workflow.Status != domain.StatusEditable {
		t.Fatalf("refused lock changed state")
	}
}

func TestLockHonoursFieldPolicy(t *testing.T) {
	wf := newTestWorkflow()
	_, _, err := wf.Lock(completeStructureFire(), officer, domain.FieldPolicy{"basic.narrative": true})
	assertTransition(t, err, domain.ReasonOutstandingFindings)
}

func TestUnlockRequiresElevatedRole(t *testing.T) {
	wf := newTestWorkflow()
	locked, _, err := wf.Lock(completeStructureFire(), officer, nil)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	for _, actor := range []domain.Actor{firefighter, officer, {ID: "anon"}} {
		_, err := wf.Unlock(locked, actor)
		assertTransition(t, err, domain.ReasonNotElevated)
	}

	unlocked, err := wf.Unlock(locked, chief)
	if err != nil {
		t.Fatalf("chief unlock: %v", err)
	}
	if unlocked.Workflow.Status != domain.StatusEditable || unlocked.Workflow.Lock != nil {
		t.Fatalf("unlock should clear lock metadata: %+v", unlocked.Workflow)
	}

	admin := domain.Actor{ID: "adm", Role: domain.RoleAdministrator}
	if _, err := wf.Unlock(locked, admin); err != nil {
		t.Fatalf("administrator unlock: %v", err)
	}
}

func TestUnlockEditableDocument(t *testing.T) {
	_, err := newTestWorkflow().Unlock(completeStructureFire(), chief)
	assertTransition(t, err, domain.ReasonNotLocked)
}

func TestNilAuthorizerDeniesUnlock(t *testing.T) {
	wf := NewWorkflow(nil)
	locked, _, err := wf.Lock(completeStructureFire(), officer, nil)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	_, err = wf.Unlock(locked, chief)
	assertTransition(t, err, domain.ReasonNotElevated)
}

func TestInconsistentStateIsRejected(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	doc.Workflow = domain.Workflow{Status: domain.StatusLocked}
	_, err := wf.Unlock(doc, chief)
	assertTransition(t, err, domain.ReasonInvalidState)
	_, _, err = wf.Mutate(doc, nil, nil)
	assertTransition(t, err, domain.ReasonInvalidState)
}

func TestMutateRecomputesAndValidates(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	next, res, err := wf.Mutate(doc, nil, func(d *domain.IncidentDocument) error {
		d.RespondingApparatusIDs = append(d.RespondingApparatusIDs, "E1", "E2")
		d.Fire.Ignition.HeatSource = ""
		d.Workflow = domain.Workflow{Status: domain.StatusLocked, Lock: &domain.LockInfo{ActorID: "sneaky"}}
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if next.Basic.SectionG.ApparatusCount != 2 {
		t.Fatalf("derived fields not recomputed: %+v", next.Basic.SectionG)
	}
	if diff := cmp.Diff([]string{"fire.ignition.heatSource"}, fieldIDs(res)); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}
	if next.Workflow.Status != domain.StatusEditable || next.Workflow.Lock != nil {
		t.Fatalf("mutator must not change workflow state: %+v", next.Workflow)
	}
	if len(doc.RespondingApparatusIDs) != 0 {
		t.Fatalf("input mutated")
	}
}

func TestMutatorErrorLeavesDocumentUntouched(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	boom := errors.New("boom")
	got, _, err := wf.Mutate(doc, nil, func(d *domain.IncidentDocument) error {
		d.Basic.Narrative = "partial"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if got.Basic.Narrative != "" {
		t.Fatalf("partial edit leaked")
	}
}

func TestChangeClassificationReshapes(t *testing.T) {
	wf := newTestWorkflow()
	next, res, err := wf.ChangeClassification(completeStructureFire(), "142", nil)
	if err != nil {
		t.Fatalf("change classification: %v", err)
	}
	if diff := cmp.Diff([]domain.ModuleKind{domain.ModuleWildland}, next.PresentModules()); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"wildland.totalAcresBurned"}, fieldIDs(res)); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkflowUsesConfiguredTable(t *testing.T) {
	table := domain.NewClassificationTable(nil, []string{"143"}, nil)
	wf := newTestWorkflow(WithClassificationTable(table))
	next, _, err := wf.ChangeClassification(completeStructureFire(), "142", nil)
	if err != nil {
		t.Fatalf("change classification: %v", err)
	}
	if next.Wildland != nil || next.Fire == nil {
		t.Fatalf("142 should be a plain fire code with the custom table: %v", next.PresentModules())
	}
}

func TestMutateCannotChangeModuleSet(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	cases := map[string]func(*domain.IncidentDocument){
		"incident type": func(d *domain.IncidentDocument) { d.Basic.IncidentType = "321" },
		"drop module":   func(d *domain.IncidentDocument) { d.Fire = nil },
		"add module": func(d *domain.IncidentDocument) {
			d.Hazmat = &domain.HazmatModule{Identification: d.Basic.Identification}
		},
	}
	for name, edit := range cases {
		t.Run(name, func(t *testing.T) {
			got, _, err := wf.Mutate(doc, nil, func(d *domain.IncidentDocument) error {
				d.Basic.Narrative = "edited"
				edit(d)
				return nil
			})
			assertTransition(t, err, domain.ReasonModuleSetChanged)
			if got.Basic.Narrative != "" || got.Basic.IncidentType != "111" {
				t.Fatalf("refused mutation leaked: %+v", got.Basic)
			}
		})
	}
}

func TestLockRefusesMismatchedModules(t *testing.T) {
	wf := newTestWorkflow()
	doc := completeStructureFire()
	doc.Basic.IncidentType = "321"

	_, res, err := wf.Lock(doc, officer, nil)
	transition := assertTransition(t, err, domain.ReasonOutstandingFindings)
	want := []string{"fire.module", "structureFire.module", "ems.module", "arson.module"}
	if diff := cmp.Diff(want, fieldIDs(res)); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}
	if len(transition.Findings) != len(want) {
		t.Fatalf("error should carry the findings: %v", transition.Findings)
	}

	fixed, res, err := wf.ChangeClassification(doc, "111", nil)
	if err != nil {
		t.Fatalf("change classification: %v", err)
	}
	if !res.LockEligible() {
		t.Fatalf("reshaped document should be clean: %v", fieldIDs(res))
	}
	if _, _, err := wf.Lock(fixed, officer, nil); err != nil {
		t.Fatalf("lock after reshape: %v", err)
	}
}

func assertTransition(t *testing.T, err error, reason domain.TransitionReason) *domain.InvalidTransitionError {
	t.Helper()
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	var transition *domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if transition.Reason != reason {
		t.Fatalf("reason = %s, want %s", transition.Reason, reason)
	}
	return transition
}
