package core

import "nfirscore/pkg/domain"

// ModuleRequiredRule reports missing mandatory fields of present
// sub-modules. Absent modules are skipped.
func ModuleRequiredRule() domain.Rule {
	return moduleRequiredRule{}
}

type moduleRequiredRule struct{}

func (moduleRequiredRule) Name() string { return "module_required" }

func (moduleRequiredRule) Evaluate(doc domain.IncidentDocument, _ domain.FieldPolicy) domain.Result {
	res := domain.Result{}
	if fire := doc.Fire; fire != nil {
		if blank(fire.Ignition.AreaOfOrigin) {
			res.Add(ModuleFire, "ignition.areaOfOrigin", requiredMessage("Area of origin"))
		}
		if blank(fire.Ignition.HeatSource) {
			res.Add(ModuleFire, "ignition.heatSource", requiredMessage("Heat source"))
		}
	}
	if structure := doc.StructureFire; structure != nil {
		if blank(structure.StructureType) {
			res.Add(ModuleStructureFire, "structureType", requiredMessage("Structure type"))
		}
	}
	if wildland := doc.Wildland; wildland != nil {
		if !wildland.TotalAcresBurned.Valid {
			res.Add(ModuleWildland, "totalAcresBurned", requiredMessage("Total acres burned"))
		}
	}
	if ems := doc.Ems; ems != nil {
		if ems.PatientCount == nil || *ems.PatientCount < 0 {
			res.Add(ModuleEms, "patientCount", "Patient count must be zero or greater")
		}
	}
	return res
}
