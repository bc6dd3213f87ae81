package core

import (
	"strings"

	"nfirscore/pkg/domain"
)

// BasicRequiredRule reports missing mandatory basic-module fields.
func BasicRequiredRule() domain.Rule {
	return basicRequiredRule{}
}

type basicRequiredRule struct{}

func (basicRequiredRule) Name() string { return "basic_required" }

func (basicRequiredRule) Evaluate(doc domain.IncidentDocument, _ domain.FieldPolicy) domain.Result {
	res := domain.Result{}
	basic := doc.Basic
	if blank(basic.IncidentType) {
		res.Add(ModuleBasic, "incidentType", requiredMessage("Incident type"))
	}
	if blank(basic.FDID) {
		res.Add(ModuleBasic, "fdid", requiredMessage("FDID"))
	}
	if blank(basic.IncidentDate) {
		res.Add(ModuleBasic, "incidentDate", requiredMessage("Incident date"))
	}
	if blank(basic.Location.StreetName) {
		res.Add(ModuleBasic, "location.streetName", requiredMessage("Street name"))
	}
	if basic.Dates.Alarm == nil || basic.Dates.Alarm.IsZero() {
		res.Add(ModuleBasic, "dates.alarm", requiredMessage("Alarm date/time"))
	}
	return res
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
