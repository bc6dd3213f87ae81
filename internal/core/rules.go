package core

import "nfirscore/pkg/domain"

// NewDefaultValidator builds the validator with the built-in rule set in the
// order findings are reported: basic required fields, sub-module required
// fields, cross-module identification, then policy-driven fields.
func NewDefaultValidator() *Validator {
	return domain.NewValidator(
		BasicRequiredRule(),
		ModuleRequiredRule(),
		IdentificationConsistencyRule(),
		PolicyFieldsRule(),
	)
}

func requiredMessage(label string) string {
	return label + " is required"
}
