package domain

// RecomputeDerived returns a copy of doc with the section G resource counts
// and section H casualty counts recomputed from the underlying collections.
// EMS and other personnel counts are always zero; all personnel count as
// suppression. No other field changes, and the function is idempotent.
func RecomputeDerived(doc IncidentDocument) IncidentDocument {
	next := doc.Clone()
	next.Basic.SectionG.ApparatusCount = distinctCount(next.RespondingApparatusIDs)
	next.Basic.SectionG.PersonnelSuppression = distinctCount(next.RespondingPersonnelIDs)
	next.Basic.SectionG.PersonnelEms = 0
	next.Basic.SectionG.PersonnelOther = 0
	next.Basic.SectionH.CasualtiesCivilian = len(next.CivilianCasualties)
	next.Basic.SectionH.CasualtiesFire = len(next.FireServiceCasualties)
	return next
}

func distinctCount(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
