package incidents

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"nfirscore/pkg/domain"
)

// Request headers carrying the acting user.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type actorHeaders struct {
	ID   string `validate:"required,max=128"`
	Role string `validate:"omitempty,max=64,actor_role"`
}

type createIncidentRequest struct {
	Basic domain.BasicModule `json:"basic"`
	// Basic carries its own incident type; the top-level field wins when set.
	IncidentType string `json:"incidentType" validate:"omitempty,numeric,len=3"`
}

type classificationRequest struct {
	IncidentType string `json:"incidentType" validate:"required,numeric,len=3"`
}

type unitRequest struct {
	UnitID string `json:"unitId" validate:"required,max=64"`
}

type personnelRequest struct {
	PersonnelID string `json:"personnelId" validate:"required,max=64"`
}

type supplyRequest struct {
	ConsumableID string `json:"consumableId" validate:"required,max=64"`
	Quantity     int    `json:"quantity" validate:"required,ne=0"`
}

type civilianCasualtyRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	Gender   string `json:"gender" validate:"omitempty,oneof=1 2 U"`
	Age      *int   `json:"age" validate:"omitempty,min=0,max=130"`
	Severity string `json:"severity" validate:"omitempty,max=2"`
	Cause    string `json:"cause" validate:"omitempty,max=2"`
	Activity string `json:"activity" validate:"omitempty,max=2"`
}

func (r civilianCasualtyRequest) toDomain() domain.CivilianCasualty {
	return domain.CivilianCasualty{ID: r.ID, Gender: r.Gender, Age: r.Age, Severity: r.Severity, Cause: r.Cause, Activity: r.Activity}
}

type fireServiceCasualtyRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	PersonnelID string `json:"personnelId" validate:"required,max=64"`
	Severity    string `json:"severity" validate:"omitempty,max=2"`
	Cause       string `json:"cause" validate:"omitempty,max=2"`
	Activity    string `json:"activity" validate:"omitempty,max=2"`
}

func (r fireServiceCasualtyRequest) toDomain() domain.FireServiceCasualty {
	return domain.FireServiceCasualty{ID: r.ID, PersonnelID: r.PersonnelID, Severity: r.Severity, Cause: r.Cause, Activity: r.Activity}
}

// lossesRequest edits the section G loss estimates, the only section G
// values that are not derived.
type lossesRequest struct {
	PropertyLoss decimal.NullDecimal `json:"propertyLoss"`
	ContentsLoss decimal.NullDecimal `json:"contentsLoss"`
}

type updateIncidentRequest struct {
	Basic         domain.BasicModule          `json:"basic"`
	Fire          *domain.FireModule          `json:"fire"`
	StructureFire *domain.StructureFireModule `json:"structureFire"`
	Ems           *domain.EmsModule           `json:"ems"`
	Hazmat        *domain.HazmatModule        `json:"hazmat"`
	Wildland      *domain.WildlandFireModule  `json:"wildland"`
	Arson         *domain.ArsonModule         `json:"arson"`
}

// apply copies the editable content onto doc. The incident type, derived
// counts and module presence are left to their dedicated operations.
func (r updateIncidentRequest) apply(doc *domain.IncidentDocument) {
	basic := r.Basic
	basic.IncidentType = doc.Basic.IncidentType
	basic.SectionG.ApparatusCount = doc.Basic.SectionG.ApparatusCount
	basic.SectionG.PersonnelSuppression = doc.Basic.SectionG.PersonnelSuppression
	basic.SectionG.PersonnelEms = doc.Basic.SectionG.PersonnelEms
	basic.SectionG.PersonnelOther = doc.Basic.SectionG.PersonnelOther
	basic.SectionH.CasualtiesCivilian = doc.Basic.SectionH.CasualtiesCivilian
	basic.SectionH.CasualtiesFire = doc.Basic.SectionH.CasualtiesFire
	doc.Basic = basic
	if doc.Fire != nil && r.Fire != nil {
		doc.Fire = r.Fire
	}
	if doc.StructureFire != nil && r.StructureFire != nil {
		doc.StructureFire = r.StructureFire
	}
	if doc.Ems != nil && r.Ems != nil {
		doc.Ems = r.Ems
	}
	if doc.Hazmat != nil && r.Hazmat != nil {
		doc.Hazmat = r.Hazmat
	}
	if doc.Wildland != nil && r.Wildland != nil {
		doc.Wildland = r.Wildland
	}
	if doc.Arson != nil && r.Arson != nil {
		doc.Arson = r.Arson
	}
}

// newValidator registers actor_role, which accepts the built-in roles and
// any of extra.
func newValidator(extra []domain.Role) *validator.Validate {
	accepted := make(map[domain.Role]struct{}, len(extra))
	for _, role := range extra {
		accepted[role] = struct{}{}
	}
	v := validator.New()
	_ = v.RegisterValidation("actor_role", func(fl validator.FieldLevel) bool {
		role := domain.Role(fl.Field().String())
		if role.Known() {
			return true
		}
		_, ok := accepted[role]
		return ok
	})
	return v
}

// fieldErrors flattens validator errors into field -> failed tag.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["request"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
