// Package domain defines the NFIRS incident document, the classification
// table that drives module activation, and the rule primitives used to
// validate a report before it is locked.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ModuleKind identifies one NFIRS module of an incident document. The values
// double as module ids on validation findings.
type ModuleKind string

// Supported NFIRS modules.
const (
	ModuleBasic         ModuleKind = "basic"
	ModuleFire          ModuleKind = "fire"
	ModuleStructureFire ModuleKind = "structureFire"
	ModuleEms           ModuleKind = "ems"
	ModuleHazmat        ModuleKind = "hazmat"
	ModuleWildland      ModuleKind = "wildland"
	ModuleArson         ModuleKind = "arson"
)

// SubModuleKinds lists the optional modules in canonical order.
var SubModuleKinds = []ModuleKind{
	ModuleFire,
	ModuleStructureFire,
	ModuleEms,
	ModuleHazmat,
	ModuleWildland,
	ModuleArson,
}

// Label returns a human readable module name.
func (k ModuleKind) Label() string {
	switch k {
	case ModuleBasic:
		return "Basic"
	case ModuleFire:
		return "Fire"
	case ModuleStructureFire:
		return "Structure Fire"
	case ModuleEms:
		return "EMS"
	case ModuleHazmat:
		return "HazMat"
	case ModuleWildland:
		return "Wildland Fire"
	case ModuleArson:
		return "Arson"
	default:
		return string(k)
	}
}

// Identification is the block every module carries to tie it back to the
// basic module. IncidentDate is a calendar date (YYYY-MM-DD).
type Identification struct {
	FDID           string `json:"fdid"`
	IncidentNumber string `json:"incidentNumber"`
	IncidentDate   string `json:"incidentDate"`
}

// Matches reports whether all three identification fields agree.
func (id Identification) Matches(other Identification) bool {
	return id.FDID == other.FDID &&
		id.IncidentNumber == other.IncidentNumber &&
		id.IncidentDate == other.IncidentDate
}

// Location is the incident address (NFIRS basic section B).
type Location struct {
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetPrefix string `json:"streetPrefix,omitempty"`
	StreetName   string `json:"streetName"`
	StreetType   string `json:"streetType,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	CrossStreet  string `json:"crossStreet,omitempty"`
}

// Dates groups the incident timeline (section E1).
type Dates struct {
	Alarm           *time.Time `json:"alarm"`
	Arrival         *time.Time `json:"arrival,omitempty"`
	Controlled      *time.Time `json:"controlled,omitempty"`
	LastUnitCleared *time.Time `json:"lastUnitCleared,omitempty"`
}

// SectionG records resources and estimated losses. The counts are derived
// from the responding sets and must not be edited directly.
type SectionG struct {
	ApparatusCount       int                 `json:"apparatusCount"`
	PersonnelSuppression int                 `json:"personnelSuppression"`
	PersonnelEms         int                 `json:"personnelEms"`
	PersonnelOther       int                 `json:"personnelOther"`
	PropertyLoss         decimal.NullDecimal `json:"propertyLoss"`
	ContentsLoss         decimal.NullDecimal `json:"contentsLoss"`
}

// SectionH records casualty counts and detector/hazmat flags. Casualty
// counts are derived from the casualty lists.
type SectionH struct {
	CasualtiesCivilian int    `json:"casualtiesCivilian"`
	CasualtiesFire     int    `json:"casualtiesFire"`
	DetectorAlerted    string `json:"detectorAlerted,omitempty"`
	HazmatReleased     string `json:"hazmatReleased,omitempty"`
}

// BasicModule is the mandatory NFIRS-1 module.
type BasicModule struct {
	Identification
	IncidentType   string   `json:"incidentType"`
	ExposureNumber int      `json:"exposureNumber"`
	State          string   `json:"state,omitempty"`
	Location       Location `json:"location"`
	Dates          Dates    `json:"dates"`
	AidGiven       string   `json:"aidGiven,omitempty"`
	ActionsTaken   []string `json:"actionsTaken,omitempty"`
	SectionG       SectionG `json:"sectionG"`
	SectionH       SectionH `json:"sectionH"`
	PropertyUse    string   `json:"propertyUse,omitempty"`
	MixedUse       string   `json:"mixedUse,omitempty"`
	Narrative      string   `json:"narrative,omitempty"`
}

// Ignition captures the fire module ignition section.
type Ignition struct {
	AreaOfOrigin     string `json:"areaOfOrigin"`
	HeatSource       string `json:"heatSource"`
	ItemFirstIgnited string `json:"itemFirstIgnited,omitempty"`
	TypeOfMaterial   string `json:"typeOfMaterial,omitempty"`
}

// FireModule is NFIRS-2.
type FireModule struct {
	Identification
	PropertyDetails   string   `json:"propertyDetails,omitempty"`
	OnSiteMaterials   []string `json:"onSiteMaterials,omitempty"`
	Ignition          Ignition `json:"ignition"`
	CauseOfIgnition   string   `json:"causeOfIgnition,omitempty"`
	HumanFactors      []string `json:"humanFactors,omitempty"`
	EquipmentInvolved string   `json:"equipmentInvolved,omitempty"`
	MobileProperty    string   `json:"mobileProperty,omitempty"`
}

// Detectors captures detector presence and performance.
type Detectors struct {
	Presence  string `json:"presence,omitempty"`
	Type      string `json:"type,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// StructureFireModule is NFIRS-3.
type StructureFireModule struct {
	Identification
	StructureType           string    `json:"structureType"`
	BuildingStatus          string    `json:"buildingStatus,omitempty"`
	StoriesAboveGrade       *int      `json:"storiesAboveGrade,omitempty"`
	FireSpread              string    `json:"fireSpread,omitempty"`
	Detectors               Detectors `json:"detectors"`
	AutomaticExtinguishment string    `json:"automaticExtinguishment,omitempty"`
}

// EmsModule is NFIRS-6.
type EmsModule struct {
	Identification
	PatientCount       *int   `json:"patientCount"`
	ProviderImpression string `json:"providerImpression,omitempty"`
	HighestLevelOfCare string `json:"highestLevelOfCare,omitempty"`
	PatientStatus      string `json:"patientStatus,omitempty"`
}

// HazmatChemical is one released or involved substance.
type HazmatChemical struct {
	UNNumber string              `json:"unNumber,omitempty"`
	Name     string              `json:"name"`
	Quantity decimal.NullDecimal `json:"quantity"`
	Units    string              `json:"units,omitempty"`
}

// HazmatModule is NFIRS-7.
type HazmatModule struct {
	Identification
	Chemicals    []HazmatChemical `json:"chemicals,omitempty"`
	ReleasedFrom string           `json:"releasedFrom,omitempty"`
	Disposition  string           `json:"disposition,omitempty"`
}

// WildlandFireModule is NFIRS-8.
type WildlandFireModule struct {
	Identification
	TotalAcresBurned decimal.NullDecimal `json:"totalAcresBurned"`
	Latitude         string              `json:"latitude,omitempty"`
	Longitude        string              `json:"longitude,omitempty"`
	FireCause        string              `json:"fireCause,omitempty"`
	CropsBurned      []string            `json:"cropsBurned,omitempty"`
}

// ArsonModule is NFIRS-11.
type ArsonModule struct {
	Identification
	AgencyReferredTo    string `json:"agencyReferredTo,omitempty"`
	CaseStatus          string `json:"caseStatus,omitempty"`
	Motivation          string `json:"motivation,omitempty"`
	JuvenileInvolvement bool   `json:"juvenileInvolvement"`
}

// CivilianCasualty is one NFIRS-4 record.
type CivilianCasualty struct {
	ID       string `json:"id"`
	Gender   string `json:"gender,omitempty"`
	Age      *int   `json:"age,omitempty"`
	Severity string `json:"severity,omitempty"`
	Cause    string `json:"cause,omitempty"`
	Activity string `json:"activity,omitempty"`
}

// FireServiceCasualty is one NFIRS-5 record.
type FireServiceCasualty struct {
	ID          string `json:"id"`
	PersonnelID string `json:"personnelId,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Cause       string `json:"cause,omitempty"`
	Activity    string `json:"activity,omitempty"`
}

// Attachment references a file stored in the blob store.
type Attachment struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	BlobKey     string    `json:"blobKey"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// SupplyUsage records consumables used on the incident.
type SupplyUsage struct {
	ConsumableID string `json:"consumableId"`
	Quantity     int    `json:"quantity"`
}

// IncidentDocument is the root aggregate of an NFIRS incident report.
type IncidentDocument struct {
	ID                     string                `json:"id"`
	Basic                  BasicModule           `json:"basic"`
	Fire                   *FireModule           `json:"fire,omitempty"`
	StructureFire          *StructureFireModule  `json:"structureFire,omitempty"`
	Ems                    *EmsModule            `json:"ems,omitempty"`
	Hazmat                 *HazmatModule         `json:"hazmat,omitempty"`
	Wildland               *WildlandFireModule   `json:"wildland,omitempty"`
	Arson                  *ArsonModule          `json:"arson,omitempty"`
	CivilianCasualties     []CivilianCasualty    `json:"civilianCasualties"`
	FireServiceCasualties  []FireServiceCasualty `json:"fireServiceCasualties"`
	Attachments            []Attachment          `json:"attachments"`
	RespondingPersonnelIDs []string              `json:"respondingPersonnelIds"`
	RespondingApparatusIDs []string              `json:"respondingApparatusIds"`
	SupplyUsage            []SupplyUsage         `json:"supplyUsage"`
	Workflow               Workflow              `json:"workflow"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`
}

// NewIncidentDocument builds the minimal editable shell for a new report.
func NewIncidentDocument(id string, basic BasicModule) IncidentDocument {
	return IncidentDocument{
		ID:       id,
		Basic:    cloneBasic(basic),
		Workflow: Workflow{Status: StatusEditable},
	}
}

// ClassificationCode returns the NFIRS incident type code, empty when unset.
func (d IncidentDocument) ClassificationCode() string {
	return d.Basic.IncidentType
}

// IsLocked reports whether the document is frozen.
func (d IncidentDocument) IsLocked() bool {
	return d.Workflow.Status == StatusLocked
}

// HasModule reports whether the given sub-module is present.
func (d IncidentDocument) HasModule(kind ModuleKind) bool {
	switch kind {
	case ModuleBasic:
		return true
	case ModuleFire:
		return d.Fire != nil
	case ModuleStructureFire:
		return d.StructureFire != nil
	case ModuleEms:
		return d.Ems != nil
	case ModuleHazmat:
		return d.Hazmat != nil
	case ModuleWildland:
		return d.Wildland != nil
	case ModuleArson:
		return d.Arson != nil
	default:
		return false
	}
}

// PresentModules lists the present sub-modules in canonical order.
func (d IncidentDocument) PresentModules() []ModuleKind {
	var out []ModuleKind
	for _, kind := range SubModuleKinds {
		if d.HasModule(kind) {
			out = append(out, kind)
		}
	}
	return out
}

// ModuleIdentification returns the identification block of a present
// sub-module.
func (d IncidentDocument) ModuleIdentification(kind ModuleKind) (Identification, bool) {
	switch kind {
	case ModuleBasic:
		return d.Basic.Identification, true
	case ModuleFire:
		if d.Fire != nil {
			return d.Fire.Identification, true
		}
	case ModuleStructureFire:
		if d.StructureFire != nil {
			return d.StructureFire.Identification, true
		}
	case ModuleEms:
		if d.Ems != nil {
			return d.Ems.Identification, true
		}
	case ModuleHazmat:
		if d.Hazmat != nil {
			return d.Hazmat.Identification, true
		}
	case ModuleWildland:
		if d.Wildland != nil {
			return d.Wildland.Identification, true
		}
	case ModuleArson:
		if d.Arson != nil {
			return d.Arson.Identification, true
		}
	}
	return Identification{}, false
}

// AddRespondingApparatus adds an apparatus id, ignoring duplicates.
func (d *IncidentDocument) AddRespondingApparatus(id string) bool {
	return addToSet(&d.RespondingApparatusIDs, id)
}

// RemoveRespondingApparatus removes an apparatus id.
func (d *IncidentDocument) RemoveRespondingApparatus(id string) bool {
	return removeFromSet(&d.RespondingApparatusIDs, id)
}

// AddRespondingPersonnel adds a personnel id, ignoring duplicates.
func (d *IncidentDocument) AddRespondingPersonnel(id string) bool {
	return addToSet(&d.RespondingPersonnelIDs, id)
}

// RemoveRespondingPersonnel removes a personnel id.
func (d *IncidentDocument) RemoveRespondingPersonnel(id string) bool {
	return removeFromSet(&d.RespondingPersonnelIDs, id)
}

// RecordSupplyUsage adds quantity to the usage entry for a consumable,
// creating it when missing. Entries that drop to zero or below are removed.
func (d *IncidentDocument) RecordSupplyUsage(consumableID string, quantity int) {
	if consumableID == "" || quantity == 0 {
		return
	}
	for i := range d.SupplyUsage {
		if d.SupplyUsage[i].ConsumableID != consumableID {
			continue
		}
		d.SupplyUsage[i].Quantity += quantity
		if d.SupplyUsage[i].Quantity <= 0 {
			d.SupplyUsage = append(d.SupplyUsage[:i], d.SupplyUsage[i+1:]...)
		}
		return
	}
	if quantity > 0 {
		d.SupplyUsage = append(d.SupplyUsage, SupplyUsage{ConsumableID: consumableID, Quantity: quantity})
	}
}

func addToSet(set *[]string, id string) bool {
	if id == "" {
		return false
	}
	for _, existing := range *set {
		if existing == id {
			return false
		}
	}
	*set = append(*set, id)
	return true
}

func removeFromSet(set *[]string, id string) bool {
	for i, existing := range *set {
		if existing == id {
			*set = append((*set)[:i], (*set)[i+1:]...)
			return true
		}
	}
	return false
}
