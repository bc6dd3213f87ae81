package core

import (
	"time"

	"github.com/shopspring/decimal"

	"nfirscore/pkg/domain"
)

var (
	chief       = domain.Actor{ID: "chief-1", Role: domain.RoleChief}
	officer     = domain.Actor{ID: "officer-7", Role: domain.RoleOfficer}
	firefighter = domain.Actor{ID: "ff-12", Role: domain.RoleFirefighter}
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func completeBasic(code string) domain.BasicModule {
	alarm := time.Date(2024, 3, 14, 21, 5, 0, 0, time.UTC)
	return domain.BasicModule{
		Identification: domain.Identification{FDID: "11001", IncidentNumber: "2024-0042", IncidentDate: "2024-03-14"},
		IncidentType:   code,
		Location:       domain.Location{StreetNumber: "120", StreetName: "Harbor"},
		Dates:          domain.Dates{Alarm: &alarm},
	}
}

// completeStructureFire passes every built-in rule.
func completeStructureFire() domain.IncidentDocument {
	doc := domain.ReshapeModules(domain.NewIncidentDocument("inc-1", completeBasic("")), "111")
	doc.Fire.Ignition = domain.Ignition{AreaOfOrigin: "24", HeatSource: "12"}
	doc.StructureFire.StructureType = "1"
	return doc
}

func completeWildland() domain.IncidentDocument {
	doc := domain.ReshapeModules(domain.NewIncidentDocument("inc-w", completeBasic("")), "142")
	doc.Wildland.TotalAcresBurned = decimal.NewNullDecimal(decimal.RequireFromString("3.5"))
	return doc
}

func newTestWorkflow(opts ...WorkflowOption) *Workflow {
	authz, err := NewCasbinAuthorizer()
	if err != nil {
		panic(err)
	}
	return NewWorkflow(authz, append([]WorkflowOption{WithClock(fixedClock())}, opts...)...)
}

func fieldIDs(res domain.Result) []string {
	out := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		out = append(out, string(f.ModuleID)+"."+f.FieldID)
	}
	return out
}
