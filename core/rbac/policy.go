package rbac

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"aegis-log/core/store"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Principal is the resolved acting user; lower layers never see sessions
// or request state, only this value.
type Principal struct {
	ID       int64
	Username string
	IsAdmin  bool
}

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub_rule, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = eval(p.sub_rule) && r.act == p.act
`

// Rules per action: reads and creates are open to any authenticated
// principal; updates require the original reporter or an admin; deletes
// are admin-only.
var policyRules = [][]string{
	{"true", string(ActionRead)},
	{"true", string(ActionCreate)},
	{"r.sub.IsAdmin == true || r.sub.ID == r.obj.ReportedBy", string(ActionUpdate)},
	{"r.sub.IsAdmin == true", string(ActionDelete)},
}

// Policy evaluates incident-level authorization with a casbin ABAC model.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("parse policy model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("build enforcer: %w", err)
	}
	if _, err := e.AddPolicies(policyRules); err != nil {
		return nil, fmt.Errorf("load policy rules: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

// Can reports whether the principal may perform the action on the target
// incident. Target may be nil for actions that have no target record.
func (p *Policy) Can(sub Principal, act Action, target *store.Incident) (bool, error) {
	obj := store.Incident{}
	if target != nil {
		obj = *target
	}
	return p.enforcer.Enforce(sub, obj, string(act))
}
