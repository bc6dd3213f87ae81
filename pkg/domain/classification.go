package domain

import (
	"fmt"
	"sort"
)

// ModuleSet lists which optional modules apply to an incident type.
type ModuleSet struct {
	Wildland      bool `json:"wildland"`
	Fire          bool `json:"fire"`
	StructureFire bool `json:"structureFire"`
	Ems           bool `json:"ems"`
	Hazmat        bool `json:"hazmat"`
	Arson         bool `json:"arson"`
}

// Has reports whether the module kind is part of the set. The basic module is
// always applicable.
func (s ModuleSet) Has(kind ModuleKind) bool {
	switch kind {
	case ModuleBasic:
		return true
	case ModuleFire:
		return s.Fire
	case ModuleStructureFire:
		return s.StructureFire
	case ModuleEms:
		return s.Ems
	case ModuleHazmat:
		return s.Hazmat
	case ModuleWildland:
		return s.Wildland
	case ModuleArson:
		return s.Arson
	default:
		return false
	}
}

// Kinds returns the applicable sub-modules in canonical order.
func (s ModuleSet) Kinds() []ModuleKind {
	var out []ModuleKind
	for _, kind := range SubModuleKinds {
		if s.Has(kind) {
			out = append(out, kind)
		}
	}
	return out
}

// IsEmpty reports whether no sub-module applies.
func (s ModuleSet) IsEmpty() bool {
	return s == ModuleSet{}
}

// ModuleSetFieldID is the field id of findings about module presence.
const ModuleSetFieldID = "module"

// CheckModuleSet reports every sub-module whose presence disagrees with the
// module set of the document's incident type: required modules that are
// missing and present modules that do not apply.
func (t *ClassificationTable) CheckModuleSet(doc IncidentDocument) Result {
	res := Result{}
	code := doc.ClassificationCode()
	set := t.ModuleSetFor(code)
	for _, kind := range SubModuleKinds {
		switch want, have := set.Has(kind), doc.HasModule(kind); {
		case want && !have:
			res.Add(kind, ModuleSetFieldID, fmt.Sprintf("Module is required for incident type %q", code))
		case !want && have:
			res.Add(kind, ModuleSetFieldID, fmt.Sprintf("Module does not apply to incident type %q", code))
		}
	}
	return res
}

// ClassificationTable maps NFIRS incident type codes to descriptions and
// module sets. It is static after construction.
type ClassificationTable struct {
	descriptions map[string]string
	wildland     map[string]struct{}
	structure    map[string]struct{}
}

// NewClassificationTable builds a table from explicit data. Nil lists fall
// back to the defaults.
func NewClassificationTable(descriptions map[string]string, wildland, structure []string) *ClassificationTable {
	if descriptions == nil {
		descriptions = defaultIncidentTypes
	}
	if wildland == nil {
		wildland = defaultWildlandCodes
	}
	if structure == nil {
		structure = defaultStructureCodes
	}
	t := &ClassificationTable{
		descriptions: make(map[string]string, len(descriptions)),
		wildland:     toSet(wildland),
		structure:    toSet(structure),
	}
	for code, desc := range descriptions {
		t.descriptions[code] = desc
	}
	return t
}

var defaultTable = NewClassificationTable(nil, nil, nil)

// DefaultClassificationTable returns the built-in NFIRS table.
func DefaultClassificationTable() *ClassificationTable {
	return defaultTable
}

// ModuleSetFor derives the applicable modules using the default table.
func ModuleSetFor(code string) ModuleSet {
	return defaultTable.ModuleSetFor(code)
}

// ModuleSetFor derives the applicable modules for code. Wildland codes
// activate only the wildland module; otherwise the first digit selects fire
// (plus arson, plus structure fire for structure codes), EMS or hazmat.
// Unknown or empty codes yield the empty set.
func (t *ClassificationTable) ModuleSetFor(code string) ModuleSet {
	if code == "" {
		return ModuleSet{}
	}
	if _, ok := t.wildland[code]; ok {
		return ModuleSet{Wildland: true}
	}
	switch code[0] {
	case '1':
		_, structure := t.structure[code]
		return ModuleSet{Fire: true, StructureFire: structure, Arson: true}
	case '3':
		return ModuleSet{Ems: true}
	case '4':
		return ModuleSet{Hazmat: true}
	default:
		return ModuleSet{}
	}
}

// Describe returns the description for a code.
func (t *ClassificationTable) Describe(code string) (string, bool) {
	desc, ok := t.descriptions[code]
	return desc, ok
}

// Codes returns all known codes in ascending order.
func (t *ClassificationTable) Codes() []string {
	out := make([]string, 0, len(t.descriptions))
	for code := range t.descriptions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// WildlandCodes returns the wildland enumeration in ascending order.
func (t *ClassificationTable) WildlandCodes() []string {
	return sortedKeys(t.wildland)
}

// StructureCodes returns the structure fire enumeration in ascending order.
func (t *ClassificationTable) StructureCodes() []string {
	return sortedKeys(t.structure)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var defaultWildlandCodes = []string{"140", "141", "142", "143", "170", "171", "172", "173"}

var defaultStructureCodes = []string{
	"111", "112", "113", "114", "115", "116", "117", "118",
	"120", "121", "122", "123",
}

var defaultIncidentTypes = map[string]string{
	"100": "Fire, other",
	"111": "Building fire",
	"112": "Fires in structure other than in a building",
	"113": "Cooking fire, confined to container",
	"114": "Chimney or flue fire, confined to chimney or flue",
	"115": "Incinerator overload or malfunction, fire confined",
	"116": "Fuel burner/boiler malfunction, fire confined",
	"117": "Commercial compactor fire, confined to rubbish",
	"118": "Trash or rubbish fire, contained",
	"120": "Fire in mobile property used as a fixed structure, other",
	"121": "Fire in mobile home used as fixed residence",
	"122": "Fire in motor home, camper, recreational vehicle",
	"123": "Fire in portable building, fixed location",
	"130": "Mobile property (vehicle) fire, other",
	"131": "Passenger vehicle fire",
	"132": "Road freight or transport vehicle fire",
	"133": "Rail vehicle fire",
	"134": "Water vehicle fire",
	"135": "Aircraft fire",
	"136": "Self-propelled motor home or recreational vehicle",
	"137": "Camper or recreational vehicle (RV) fire",
	"138": "Off-road vehicle or heavy equipment fire",
	"140": "Natural vegetation fire, other",
	"141": "Forest, woods or wildland fire",
	"142": "Brush or brush-and-grass mixture fire",
	"143": "Grass fire",
	"150": "Outside rubbish fire, other",
	"151": "Outside rubbish, trash or waste fire",
	"152": "Garbage dump or sanitary landfill fire",
	"153": "Construction or demolition landfill fire",
	"154": "Dumpster or other outside trash receptacle fire",
	"155": "Outside stationary compactor/compacted trash fire",
	"160": "Special outside fire, other",
	"161": "Outside storage fire",
	"162": "Outside equipment fire",
	"163": "Outside gas or vapor combustion explosion",
	"164": "Outside mailbox fire",
	"170": "Cultivated vegetation, crop fire, other",
	"171": "Cultivated grain or crop fire",
	"172": "Cultivated orchard or vineyard fire",
	"173": "Cultivated trees or nursery stock fire",
	"300": "Rescue, EMS incident, other",
	"311": "Medical assist, assist EMS crew",
	"320": "Emergency medical service incident, other",
	"321": "EMS call, excluding vehicle accident with injury",
	"322": "Motor vehicle accident with injuries",
	"323": "Motor vehicle/pedestrian accident (MV Ped)",
	"324": "Motor vehicle accident with no injuries",
	"400": "Hazardous condition, other",
	"410": "Combustible/flammable gas/liquid condition, other",
	"411": "Gasoline or other flammable liquid spill",
	"412": "Gas leak (natural gas or LPG)",
	"413": "Oil or other combustible liquid spill",
	"420": "Toxic condition, other",
	"421": "Chemical hazard (no spill or leak)",
	"422": "Chemical spill or leak",
	"423": "Refrigeration leak",
	"424": "Carbon monoxide incident",
	"440": "Electrical wiring/equipment problem, other",
	"441": "Heat from short circuit (wiring), defective/worn",
	"442": "Overheated motor",
	"443": "Breakdown of light ballast",
	"444": "Power line down",
	"500": "Service call, other",
	"510": "Person in distress, other",
	"511": "Lock-out",
	"520": "Water problem, other",
	"531": "Smoke or odor removal",
	"550": "Public service assistance, other",
	"553": "Public service",
	"561": "Unauthorized burning",
	"571": "Cover assignment, standby, moveup",
	"600": "Good intent call, other",
	"611": "Dispatched and cancelled en route",
	"622": "No incident found on arrival at dispatch address",
	"651": "Smoke scare, odor of smoke",
	"671": "HazMat release investigation w/no HazMat",
	"700": "False alarm or false call, other",
	"710": "Malicious, mischievous false call, other",
	"730": "System malfunction, other",
	"740": "Unintentional transmission of alarm, other",
	"743": "Smoke detector activation, no fire - unintentional",
	"745": "Alarm system activation, no fire - unintentional",
	"746": "Carbon monoxide detector activation, no CO",
	"800": "Severe weather or natural disaster, other",
	"813": "Wind storm, tornado/hurricane assessment",
	"815": "Severe weather or natural disaster standby",
	"900": "Special type of incident, other",
	"911": "Citizen complaint",
}
