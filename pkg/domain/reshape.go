package domain

// ReshapeModules reshapes the document for code using the default table.
func ReshapeModules(prev IncidentDocument, code string) IncidentDocument {
	return defaultTable.ReshapeModules(prev, code)
}

// ReshapeModules returns a copy of prev whose sub-modules match the module
// set of code. Applicable modules that already exist are carried over as-is;
// missing ones are created empty with the basic identification copied in.
// Modules that no longer apply are dropped together with their data. prev is
// never modified.
func (t *ClassificationTable) ReshapeModules(prev IncidentDocument, code string) IncidentDocument {
	next := prev.Clone()
	next.Basic.IncidentType = code
	set := t.ModuleSetFor(code)
	ident := next.Basic.Identification

	if !set.Fire {
		next.Fire = nil
	} else if next.Fire == nil {
		next.Fire = &FireModule{Identification: ident}
	}
	if !set.StructureFire {
		next.StructureFire = nil
	} else if next.StructureFire == nil {
		next.StructureFire = &StructureFireModule{Identification: ident}
	}
	if !set.Ems {
		next.Ems = nil
	} else if next.Ems == nil {
		next.Ems = &EmsModule{Identification: ident}
	}
	if !set.Hazmat {
		next.Hazmat = nil
	} else if next.Hazmat == nil {
		next.Hazmat = &HazmatModule{Identification: ident}
	}
	if !set.Wildland {
		next.Wildland = nil
	} else if next.Wildland == nil {
		next.Wildland = &WildlandFireModule{Identification: ident}
	}
	if !set.Arson {
		next.Arson = nil
	} else if next.Arson == nil {
		next.Arson = &ArsonModule{Identification: ident}
	}
	return next
}

// DiscardedModules lists the present modules of prev that a reshape to code
// would drop.
func (t *ClassificationTable) DiscardedModules(prev IncidentDocument, code string) []ModuleKind {
	set := t.ModuleSetFor(code)
	var out []ModuleKind
	for _, kind := range prev.PresentModules() {
		if !set.Has(kind) {
			out = append(out, kind)
		}
	}
	return out
}
