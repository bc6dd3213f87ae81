package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nfirscore/pkg/domain"
)

func TestStructureFireShellWithEmptyFieldsReportsSevenFindings(t *testing.T) {
	doc := domain.NewIncidentDocument("inc-1", domain.BasicModule{})
	doc = domain.ReshapeModules(doc, "111")

	res := NewDefaultValidator().Validate(doc, nil)
	want := []string{
		"basic.fdid",
		"basic.incidentDate",
		"basic.location.streetName",
		"basic.dates.alarm",
		"fire.ignition.areaOfOrigin",
		"fire.ignition.heatSource",
		"structureFire.structureType",
	}
	if diff := cmp.Diff(want, fieldIDs(res)); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}
	if res.LockEligible() {
		t.Fatalf("document with findings must not be lock eligible")
	}
}

func TestCompleteDocumentHasNoFindings(t *testing.T) {
	for name, doc := range map[string]domain.IncidentDocument{
		"structure": completeStructureFire(),
		"wildland":  completeWildland(),
	} {
		if res := NewDefaultValidator().Validate(doc, nil); len(res.Findings) != 0 {
			t.Fatalf("%s: unexpected findings %v", name, fieldIDs(res))
		}
	}
}

func TestIdentificationMismatchYieldsOneFindingPerModule(t *testing.T) {
	doc := completeStructureFire()
	doc.Fire.IncidentDate = "2024-03-13"
	doc.Fire.FDID = "99999"
	doc.Fire.IncidentNumber = "other"

	res := NewDefaultValidator().Validate(doc, nil)
	if len(res.Findings) != 1 {
		t.Fatalf("expected exactly one finding, got %v", fieldIDs(res))
	}
	f := res.Findings[0]
	if f.ModuleID != domain.ModuleBasic || f.FieldID != "incidentType" {
		t.Fatalf("finding tagged %s/%s", f.ModuleID, f.FieldID)
	}
	if !strings.Contains(f.Message, "Fire") {
		t.Fatalf("message should name the module: %q", f.Message)
	}

	doc.Arson.IncidentDate = "2023-01-01"
	if res := NewDefaultValidator().Validate(doc, nil); len(res.Findings) != 2 {
		t.Fatalf("expected one finding per mismatching module, got %v", fieldIDs(res))
	}
}

func TestModuleRequiredSkipsAbsentModules(t *testing.T) {
	doc := domain.NewIncidentDocument("inc", completeBasic("611"))
	if res := ModuleRequiredRule().Evaluate(doc, nil); len(res.Findings) != 0 {
		t.Fatalf("no sub-modules, no findings: %v", fieldIDs(res))
	}
}

func TestEmsPatientCount(t *testing.T) {
	doc := domain.ReshapeModules(domain.NewIncidentDocument("e", completeBasic("")), "321")
	res := NewDefaultValidator().Validate(doc, nil)
	if diff := cmp.Diff([]string{"ems.patientCount"}, fieldIDs(res)); diff != "" {
		t.Fatalf("nil patient count (-want +got):\n%s", diff)
	}
	zero := 0
	doc.Ems.PatientCount = &zero
	if res := NewDefaultValidator().Validate(doc, nil); len(res.Findings) != 0 {
		t.Fatalf("zero patients is valid: %v", fieldIDs(res))
	}
	negative := -1
	doc.Ems.PatientCount = &negative
	if res := NewDefaultValidator().Validate(doc, nil); len(res.Findings) != 1 {
		t.Fatalf("negative patients should be reported")
	}
}

func TestPolicyFields(t *testing.T) {
	doc := completeStructureFire()
	policy := domain.FieldPolicy{
		"fire.ignition.itemFirstIgnited": true,
		"basic.narrative":                true,
		"basic.location.city":            false,
		"ems.patientStatus":              true,
		"fire.noSuchField":               true,
	}
	res := NewDefaultValidator().Validate(doc, policy)
	want := []string{"basic.narrative", "fire.ignition.itemFirstIgnited"}
	if diff := cmp.Diff(want, fieldIDs(res)); diff != "" {
		t.Fatalf("policy findings mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(res.Findings[0].Message, "department policy") {
		t.Fatalf("unexpected message %q", res.Findings[0].Message)
	}

	doc.Basic.Narrative = "Fire in kitchen, extinguished by E1."
	doc.Fire.Ignition.ItemFirstIgnited = "76"
	if res := NewDefaultValidator().Validate(doc, policy); len(res.Findings) != 0 {
		t.Fatalf("satisfied policy should be clean: %v", fieldIDs(res))
	}
}

func TestPolicyDuplicatingBuiltInRequirementReportsTwice(t *testing.T) {
	doc := completeStructureFire()
	doc.Basic.FDID = ""
	doc.Fire.FDID = ""
	doc.StructureFire.FDID = ""
	doc.Arson.FDID = ""
	res := NewDefaultValidator().Validate(doc, domain.FieldPolicy{"basic.fdid": true})
	if diff := cmp.Diff([]string{"basic.fdid", "basic.fdid"}, fieldIDs(res)); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateIsPureAndDeterministic(t *testing.T) {
	doc := completeStructureFire()
	doc.Basic.FDID = ""
	doc.Fire.IncidentDate = "2020-01-01"
	before := doc.Clone()
	policy := domain.FieldPolicy{"basic.narrative": true, "fire.causeOfIgnition": true, "arson.caseStatus": true}

	v := NewDefaultValidator()
	first := v.Validate(doc, policy)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, v.Validate(doc, policy)); diff != "" {
			t.Fatalf("validation not deterministic:\n%s", diff)
		}
	}
	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("validation mutated the document:\n%s", diff)
	}
}

func TestDefaultRuleOrder(t *testing.T) {
	want := []string{"basic_required", "module_required", "identification_consistency", "policy_fields"}
	if diff := cmp.Diff(want, NewDefaultValidator().Rules()); diff != "" {
		t.Fatalf("rule order mismatch (-want +got):\n%s", diff)
	}
}
