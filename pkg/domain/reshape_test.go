package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestReshapeCreatesShellsWithIdentification(t *testing.T) {
	doc := ReshapeModules(NewIncidentDocument("inc-1", basicFixture("")), "111")
	if doc.Basic.IncidentType != "111" {
		t.Fatalf("incident type not set: %q", doc.Basic.IncidentType)
	}
	want := []ModuleKind{ModuleFire, ModuleStructureFire, ModuleArson}
	if diff := cmp.Diff(want, doc.PresentModules()); diff != "" {
		t.Fatalf("present modules mismatch (-want +got):\n%s", diff)
	}
	for _, kind := range want {
		ident, ok := doc.ModuleIdentification(kind)
		if !ok || !ident.Matches(doc.Basic.Identification) {
			t.Fatalf("%s shell identification = %+v", kind, ident)
		}
	}
}

func TestReshapeKeepsExistingModuleData(t *testing.T) {
	doc := populatedDoc()
	next := ReshapeModules(doc, "112")
	if next.Fire == nil || next.Fire.Ignition.AreaOfOrigin != "24" {
		t.Fatalf("fire module data lost: %+v", next.Fire)
	}
	if next.StructureFire == nil || next.StructureFire.StructureType != "1" {
		t.Fatalf("structure module data lost: %+v", next.StructureFire)
	}
}

func TestReshapeDropsModulesThatNoLongerApply(t *testing.T) {
	doc := populatedDoc()
	next := ReshapeModules(doc, "142")
	if diff := cmp.Diff([]ModuleKind{ModuleWildland}, next.PresentModules()); diff != "" {
		t.Fatalf("present modules mismatch (-want +got):\n%s", diff)
	}
	// Changing back does not resurrect the dropped data.
	back := ReshapeModules(next, "111")
	if back.Fire == nil || back.Fire.Ignition.AreaOfOrigin != "" {
		t.Fatalf("fire module should be a fresh shell, got %+v", back.Fire)
	}
}

func TestReshapeDoesNotMutateInput(t *testing.T) {
	doc := populatedDoc()
	before := doc.Clone()
	_ = ReshapeModules(doc, "321")
	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestReshapeIsIdempotent(t *testing.T) {
	for _, code := range []string{"", "111", "131", "141", "321", "411", "611"} {
		once := ReshapeModules(populatedDoc(), code)
		twice := ReshapeModules(once, code)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("reshape(%q) not idempotent:\n%s", code, diff)
		}
	}
}

func TestReshapeLeavesOtherSectionsAlone(t *testing.T) {
	doc := populatedDoc()
	doc.Wildland = nil
	next := ReshapeModules(doc, "411")
	if diff := cmp.Diff(doc.CivilianCasualties, next.CivilianCasualties); diff != "" {
		t.Fatalf("casualties changed:\n%s", diff)
	}
	if !next.Basic.SectionG.PropertyLoss.Decimal.Equal(decimal.RequireFromString("12500")) {
		t.Fatalf("losses changed: %v", next.Basic.SectionG.PropertyLoss)
	}
	if next.Hazmat == nil || next.Fire != nil {
		t.Fatalf("unexpected module shape: %v", next.PresentModules())
	}
}

func TestDiscardedModules(t *testing.T) {
	table := DefaultClassificationTable()
	got := table.DiscardedModules(populatedDoc(), "131")
	if diff := cmp.Diff([]ModuleKind{ModuleStructureFire}, got); diff != "" {
		t.Fatalf("discarded mismatch (-want +got):\n%s", diff)
	}
	if got := table.DiscardedModules(populatedDoc(), "111"); len(got) != 0 {
		t.Fatalf("nothing should be discarded, got %v", got)
	}
}
