package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func alarmTime() *time.Time {
	t := time.Date(2024, 3, 14, 21, 5, 0, 0, time.UTC)
	return &t
}

func basicFixture(code string) BasicModule {
	return BasicModule{
		Identification: Identification{FDID: "11001", IncidentNumber: "2024-0042", IncidentDate: "2024-03-14"},
		IncidentType:   code,
		Location:       Location{StreetNumber: "120", StreetName: "Harbor", StreetType: "ST", City: "Eastport"},
		Dates:          Dates{Alarm: alarmTime()},
		SectionG:       SectionG{PropertyLoss: decimal.NewNullDecimal(decimal.RequireFromString("12500.00"))},
	}
}

// populatedDoc is a structure fire with every sub-module of that code filled
// in plus responders and casualties.
func populatedDoc() IncidentDocument {
	doc := ReshapeModules(NewIncidentDocument("inc-1", basicFixture("")), "111")
	doc.Fire.Ignition = Ignition{AreaOfOrigin: "24", HeatSource: "12"}
	doc.StructureFire.StructureType = "1"
	doc.Arson.CaseStatus = "open"
	doc.RespondingApparatusIDs = []string{"E1", "L2"}
	doc.RespondingPersonnelIDs = []string{"p1", "p2", "p3"}
	doc.CivilianCasualties = []CivilianCasualty{{ID: "c1", Severity: "2"}}
	return doc
}
