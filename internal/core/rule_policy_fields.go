package core

import (
	"fmt"
	"sort"

	"nfirscore/pkg/domain"
)

// PolicyFieldsRule enforces optional fields the field policy marks as
// mandatory. Keys are evaluated in sorted order so repeated runs report the
// same sequence. Unknown keys and keys for absent modules are ignored.
func PolicyFieldsRule() domain.Rule {
	return policyFieldsRule{}
}

type policyFieldsRule struct{}

func (policyFieldsRule) Name() string { return "policy_fields" }

func (policyFieldsRule) Evaluate(doc domain.IncidentDocument, policy domain.FieldPolicy) domain.Result {
	res := domain.Result{}
	if len(policy) == 0 {
		return res
	}
	keys := make([]string, 0, len(policy))
	for key, required := range policy {
		if required {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		kind, path, ok := domain.ParsePolicyKey(key)
		if !ok {
			continue
		}
		present, applicable := domain.FieldPresent(doc, kind, path)
		if !applicable || present {
			continue
		}
		res.Add(kind, path, fmt.Sprintf("%s is required by department policy", path))
	}
	return res
}
