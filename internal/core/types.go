package core

import "nfirscore/pkg/domain"

type (
	IncidentDocument       = domain.IncidentDocument
	ModuleKind             = domain.ModuleKind
	Finding                = domain.Finding
	Result                 = domain.Result
	FieldPolicy            = domain.FieldPolicy
	Rule                   = domain.Rule
	Validator              = domain.Validator
	Actor                  = domain.Actor
	Role                   = domain.Role
	Status                 = domain.Status
	InvalidTransitionError = domain.InvalidTransitionError
)

const (
	ModuleBasic         = domain.ModuleBasic
	ModuleFire          = domain.ModuleFire
	ModuleStructureFire = domain.ModuleStructureFire
	ModuleEms           = domain.ModuleEms
	ModuleHazmat        = domain.ModuleHazmat
	ModuleWildland      = domain.ModuleWildland
	ModuleArson         = domain.ModuleArson
)

const (
	StatusEditable = domain.StatusEditable
	StatusLocked   = domain.StatusLocked
)
