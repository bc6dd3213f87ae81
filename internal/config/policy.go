package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"nfirscore/pkg/domain"
)

// PolicyFile is the on-disk shape of a department field policy:
//
//	required_fields:
//	  basic.narrative: true
//	  fire.ignition.itemFirstIgnited: true
type PolicyFile struct {
	RequiredFields map[string]bool `yaml:"required_fields"`
}

// Policy is a loaded field policy plus the keys that do not name a known
// field. Unknown keys are kept in the policy and ignored by validation.
type Policy struct {
	Fields  domain.FieldPolicy
	Unknown []string
}

// LoadPolicy reads a policy file. An empty path yields an empty policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return Policy{Fields: domain.FieldPolicy{}}, nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(bytes.NewReader(raw))
}

// ParsePolicy decodes a policy document from r.
func ParsePolicy(r io.Reader) (Policy, error) {
	var file PolicyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	policy := Policy{Fields: make(domain.FieldPolicy, len(file.RequiredFields))}
	for key, required := range file.RequiredFields {
		policy.Fields[key] = required
		if _, _, ok := domain.ParsePolicyKey(key); !ok {
			policy.Unknown = append(policy.Unknown, key)
		}
	}
	sort.Strings(policy.Unknown)
	return policy, nil
}
