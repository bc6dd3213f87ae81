package core

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"nfirscore/pkg/domain"
)

// Authorizer decides role-gated workflow operations.
type Authorizer interface {
	CanUnlock(role domain.Role) bool
}

const (
	incidentObject = "incident"
	unlockAction   = "unlock"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// DefaultElevatedRoles may unlock locked reports.
var DefaultElevatedRoles = []domain.Role{domain.RoleChief, domain.RoleAdministrator}

// CasbinAuthorizer evaluates role permissions with a casbin RBAC enforcer.
type CasbinAuthorizer struct {
	enforcer *casbin.Enforcer
}

// NewCasbinAuthorizer grants the unlock permission to each elevated role.
// Passing no roles uses DefaultElevatedRoles.
func NewCasbinAuthorizer(elevated ...domain.Role) (*CasbinAuthorizer, error) {
	if len(elevated) == 0 {
		elevated = DefaultElevatedRoles
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	for _, role := range elevated {
		if role == "" {
			continue
		}
		if _, err := enforcer.AddPolicy(string(role), incidentObject, unlockAction); err != nil {
			return nil, fmt.Errorf("grant unlock to %s: %w", role, err)
		}
	}
	return &CasbinAuthorizer{enforcer: enforcer}, nil
}

// CanUnlock reports whether role may return a locked report to editing.
// Enforcement errors deny.
func (a *CasbinAuthorizer) CanUnlock(role domain.Role) bool {
	if a == nil || a.enforcer == nil || role == "" {
		return false
	}
	ok, err := a.enforcer.Enforce(string(role), incidentObject, unlockAction)
	if err != nil {
		return false
	}
	return ok
}

// GrantRole makes member inherit the permissions of role, e.g. a
// department-specific "battalion_chief" inheriting "chief".
func (a *CasbinAuthorizer) GrantRole(member, role domain.Role) error {
	if _, err := a.enforcer.AddGroupingPolicy(string(member), string(role)); err != nil {
		return fmt.Errorf("grant %s to %s: %w", role, member, err)
	}
	return nil
}
