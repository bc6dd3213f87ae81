package domain

// Finding is one validation finding tagged with the originating module and
// the dotted field path inside it.
type Finding struct {
	ModuleID ModuleKind `json:"moduleId"`
	FieldID  string     `json:"fieldId"`
	Message  string     `json:"message"`
}

// Result aggregates findings produced by the validator.
type Result struct {
	Findings []Finding `json:"findings"`
}

// Merge appends findings from another result, keeping their order.
func (r *Result) Merge(other Result) {
	if len(other.Findings) == 0 {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// Add appends a single finding.
func (r *Result) Add(module ModuleKind, field, message string) {
	r.Findings = append(r.Findings, Finding{ModuleID: module, FieldID: field, Message: message})
}

// LockEligible reports whether the document may be locked.
func (r Result) LockEligible() bool {
	return len(r.Findings) == 0
}

// ByModule counts findings per module.
func (r Result) ByModule() map[ModuleKind]int {
	out := make(map[ModuleKind]int)
	for _, f := range r.Findings {
		out[f.ModuleID]++
	}
	return out
}

// FieldPolicy marks optional fields as mandatory. Keys have the form
// "<module>.<field path>", for example "basic.location.city".
type FieldPolicy map[string]bool

// Rule is one validation check. Evaluate must be pure and must not fail:
// malformed or missing data simply yields findings.
type Rule interface {
	Name() string
	Evaluate(doc IncidentDocument, policy FieldPolicy) Result
}

// Validator runs its rules in registration order and concatenates their
// findings without short-circuiting or deduplication.
type Validator struct {
	rules []Rule
}

// NewValidator constructs an empty validator.
func NewValidator(rules ...Rule) *Validator {
	v := &Validator{}
	for _, rule := range rules {
		v.Register(rule)
	}
	return v
}

// Register appends a rule.
func (v *Validator) Register(rule Rule) {
	v.rules = append(v.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (v *Validator) Rules() []string {
	out := make([]string, 0, len(v.rules))
	for _, rule := range v.rules {
		out = append(out, rule.Name())
	}
	return out
}

// Validate evaluates every rule against doc.
func (v *Validator) Validate(doc IncidentDocument, policy FieldPolicy) Result {
	var combined Result
	for _, rule := range v.rules {
		combined.Merge(rule.Evaluate(doc, policy))
	}
	return combined
}
