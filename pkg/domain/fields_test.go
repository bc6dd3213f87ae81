package domain

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePolicyKey(t *testing.T) {
	cases := []struct {
		key      string
		wantKind ModuleKind
		wantPath string
		ok       bool
	}{
		{"basic.narrative", ModuleBasic, "narrative", true},
		{"basic.fdid", ModuleBasic, "fdid", true},
		{"basic.location.city", ModuleBasic, "location.city", true},
		{"fire.ignition.itemFirstIgnited", ModuleFire, "ignition.itemFirstIgnited", true},
		{"wildland.totalAcresBurned", ModuleWildland, "totalAcresBurned", true},
		{"fire.notAField", "", "", false},
		{"sprinklers.count", "", "", false},
		{"basic", "", "", false},
		{"basic.", "", "", false},
	}
	for _, tc := range cases {
		kind, path, ok := ParsePolicyKey(tc.key)
		if ok != tc.ok || kind != tc.wantKind || path != tc.wantPath {
			t.Fatalf("ParsePolicyKey(%q) = %q %q %v", tc.key, kind, path, ok)
		}
	}
}

func TestKnownFieldPathsFlattenIdentification(t *testing.T) {
	paths := KnownFieldPaths(ModuleStructureFire)
	for _, want := range []string{"fdid", "incidentNumber", "structureType", "detectors", "detectors.presence"} {
		if !slices.Contains(paths, want) {
			t.Fatalf("expected %q in %v", want, paths)
		}
	}
	if !slices.IsSorted(paths) {
		t.Fatalf("paths not sorted")
	}
}

func TestFieldPresent(t *testing.T) {
	doc := populatedDoc()
	doc.Basic.Narrative = "   "

	cases := []struct {
		kind           ModuleKind
		path           string
		wantPresent    bool
		wantApplicable bool
	}{
		{ModuleBasic, "location.streetName", true, true},
		{ModuleBasic, "location.zip", false, true},
		{ModuleBasic, "narrative", false, true},
		{ModuleBasic, "exposureNumber", true, true},
		{ModuleBasic, "dates.alarm", true, true},
		{ModuleBasic, "dates.arrival", false, true},
		{ModuleBasic, "sectionG.propertyLoss", true, true},
		{ModuleBasic, "sectionG.contentsLoss", false, true},
		{ModuleFire, "ignition.areaOfOrigin", true, true},
		{ModuleFire, "ignition.itemFirstIgnited", false, true},
		{ModuleFire, "humanFactors", false, true},
		{ModuleArson, "juvenileInvolvement", true, true},
		{ModuleEms, "patientCount", false, false},
	}
	for _, tc := range cases {
		present, applicable := FieldPresent(doc, tc.kind, tc.path)
		if present != tc.wantPresent || applicable != tc.wantApplicable {
			t.Fatalf("FieldPresent(%s, %s) = %v,%v want %v,%v", tc.kind, tc.path, present, applicable, tc.wantPresent, tc.wantApplicable)
		}
	}
}

func TestFieldPresentNullableValues(t *testing.T) {
	doc := ReshapeModules(NewIncidentDocument("w", basicFixture("")), "141")
	if present, _ := FieldPresent(doc, ModuleWildland, "totalAcresBurned"); present {
		t.Fatalf("unset acres should be missing")
	}
	doc.Wildland.TotalAcresBurned = decimal.NewNullDecimal(decimal.Zero)
	if present, _ := FieldPresent(doc, ModuleWildland, "totalAcresBurned"); !present {
		t.Fatalf("zero acres is a value")
	}
}
