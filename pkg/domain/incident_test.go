package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRespondingSetsIgnoreDuplicates(t *testing.T) {
	doc := NewIncidentDocument("i", basicFixture("111"))
	if !doc.AddRespondingApparatus("E1") || doc.AddRespondingApparatus("E1") {
		t.Fatalf("second add of E1 should be a no-op")
	}
	if doc.AddRespondingApparatus("") {
		t.Fatalf("blank ids must be ignored")
	}
	doc.AddRespondingPersonnel("p1")
	doc.AddRespondingPersonnel("p2")
	if !doc.RemoveRespondingPersonnel("p1") || doc.RemoveRespondingPersonnel("p1") {
		t.Fatalf("remove should report presence")
	}
	if diff := cmp.Diff([]string{"p2"}, doc.RespondingPersonnelIDs); diff != "" {
		t.Fatalf("personnel mismatch:\n%s", diff)
	}
}

func TestRecordSupplyUsageMerges(t *testing.T) {
	doc := NewIncidentDocument("i", basicFixture("111"))
	doc.RecordSupplyUsage("foam", 5)
	doc.RecordSupplyUsage("foam", 3)
	doc.RecordSupplyUsage("gauze", 2)
	doc.RecordSupplyUsage("gauze", -2)
	doc.RecordSupplyUsage("ghost", -1)
	want := []SupplyUsage{{ConsumableID: "foam", Quantity: 8}}
	if diff := cmp.Diff(want, doc.SupplyUsage); diff != "" {
		t.Fatalf("supply usage mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := populatedDoc()
	cp := doc.Clone()
	cp.Fire.Ignition.AreaOfOrigin = "99"
	cp.RespondingApparatusIDs[0] = "X"
	*cp.Basic.Dates.Alarm = cp.Basic.Dates.Alarm.Add(1)
	cp.CivilianCasualties[0].Severity = "5"
	if doc.Fire.Ignition.AreaOfOrigin != "24" || doc.RespondingApparatusIDs[0] != "E1" ||
		!doc.Basic.Dates.Alarm.Equal(*alarmTime()) || doc.CivilianCasualties[0].Severity != "2" {
		t.Fatalf("clone shares state with original")
	}
}

func TestModuleIdentificationAbsentModule(t *testing.T) {
	doc := NewIncidentDocument("i", basicFixture("611"))
	if _, ok := doc.ModuleIdentification(ModuleFire); ok {
		t.Fatalf("absent module should report ok=false")
	}
	if ident, ok := doc.ModuleIdentification(ModuleBasic); !ok || ident.FDID != "11001" {
		t.Fatalf("basic identification = %+v", ident)
	}
}

func TestChangePayloadRoundTrip(t *testing.T) {
	doc := populatedDoc()
	payload := NewChangePayload(doc)
	if !payload.Defined() {
		t.Fatalf("payload should be defined")
	}
	decoded, ok := ChangePayloadFromRaw(payload.Raw()).Decode()
	if !ok {
		t.Fatalf("decode failed")
	}
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
	if ChangePayloadFromRaw(nil).Defined() {
		t.Fatalf("empty raw should be undefined")
	}
}

func TestNotFoundError(t *testing.T) {
	err := error(NotFoundError{ID: "abc"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("NotFoundError should match ErrNotFound")
	}
}
