package core

import (
	"fmt"

	"nfirscore/pkg/domain"
)

// IdentificationConsistencyRule checks that every present sub-module carries
// the basic module's FDID, incident number and incident date. A sub-module
// yields at most one finding however many of the three fields differ.
func IdentificationConsistencyRule() domain.Rule {
	return identificationConsistencyRule{}
}

type identificationConsistencyRule struct{}

func (identificationConsistencyRule) Name() string { return "identification_consistency" }

func (identificationConsistencyRule) Evaluate(doc domain.IncidentDocument, _ domain.FieldPolicy) domain.Result {
	res := domain.Result{}
	basic := doc.Basic.Identification
	for _, kind := range doc.PresentModules() {
		ident, ok := doc.ModuleIdentification(kind)
		if !ok || ident.Matches(basic) {
			continue
		}
		res.Add(ModuleBasic, "incidentType",
			fmt.Sprintf("%s module identification (FDID, incident number, incident date) does not match the Basic module", kind.Label()))
	}
	return res
}
