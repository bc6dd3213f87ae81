package domain

import "time"

// Clone returns a deep copy of the document. Pure operations clone before
// touching anything so callers never observe shared state.
func (d IncidentDocument) Clone() IncidentDocument {
	cp := d
	cp.Basic = cloneBasic(d.Basic)
	cp.Fire = cloneFire(d.Fire)
	cp.StructureFire = cloneStructureFire(d.StructureFire)
	cp.Ems = cloneEms(d.Ems)
	cp.Hazmat = cloneHazmat(d.Hazmat)
	cp.Wildland = cloneWildland(d.Wildland)
	cp.Arson = cloneArson(d.Arson)
	cp.CivilianCasualties = cloneCivilianCasualties(d.CivilianCasualties)
	cp.FireServiceCasualties = cloneSlice(d.FireServiceCasualties)
	cp.Attachments = cloneSlice(d.Attachments)
	cp.RespondingPersonnelIDs = cloneSlice(d.RespondingPersonnelIDs)
	cp.RespondingApparatusIDs = cloneSlice(d.RespondingApparatusIDs)
	cp.SupplyUsage = cloneSlice(d.SupplyUsage)
	cp.Workflow = d.Workflow.clone()
	return cp
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneBasic(b BasicModule) BasicModule {
	cp := b
	cp.Dates = Dates{
		Alarm:           cloneTime(b.Dates.Alarm),
		Arrival:         cloneTime(b.Dates.Arrival),
		Controlled:      cloneTime(b.Dates.Controlled),
		LastUnitCleared: cloneTime(b.Dates.LastUnitCleared),
	}
	cp.ActionsTaken = cloneSlice(b.ActionsTaken)
	return cp
}

func cloneFire(m *FireModule) *FireModule {
	if m == nil {
		return nil
	}
	cp := *m
	cp.OnSiteMaterials = cloneSlice(m.OnSiteMaterials)
	cp.HumanFactors = cloneSlice(m.HumanFactors)
	return &cp
}

func cloneStructureFire(m *StructureFireModule) *StructureFireModule {
	if m == nil {
		return nil
	}
	cp := *m
	cp.StoriesAboveGrade = cloneInt(m.StoriesAboveGrade)
	return &cp
}

func cloneEms(m *EmsModule) *EmsModule {
	if m == nil {
		return nil
	}
	cp := *m
	cp.PatientCount = cloneInt(m.PatientCount)
	return &cp
}

func cloneHazmat(m *HazmatModule) *HazmatModule {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Chemicals = cloneSlice(m.Chemicals)
	return &cp
}

func cloneWildland(m *WildlandFireModule) *WildlandFireModule {
	if m == nil {
		return nil
	}
	cp := *m
	cp.CropsBurned = cloneSlice(m.CropsBurned)
	return &cp
}

func cloneArson(m *ArsonModule) *ArsonModule {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

func cloneCivilianCasualties(in []CivilianCasualty) []CivilianCasualty {
	out := cloneSlice(in)
	for i := range out {
		out[i].Age = cloneInt(in[i].Age)
	}
	return out
}
