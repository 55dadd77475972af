// Package retention decides when resolved requests become eligible for
// automatic archival and runs the scheduled sweep that archives them.
package retention

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Policy grants a category a retention duration: once a resolved request of
// that category is older than the duration, the sweep archives it.
type Policy struct {
	CategoryID     uuid.UUID `yaml:"category_id" json:"category_id"`
	DurationMonths int       `yaml:"duration_months" json:"duration_months"`
	Description    string    `yaml:"description" json:"description"`
}

type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

// LoadPolicies reads retention policies from a YAML file.
func LoadPolicies(path string) ([]Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for i, p := range file.Policies {
		if p.CategoryID == uuid.Nil {
			return nil, fmt.Errorf("policy %d: category_id is required", i)
		}
		if p.DurationMonths <= 0 {
			return nil, fmt.Errorf("policy %d: duration_months must be positive", i)
		}
	}
	return file.Policies, nil
}

// Engine maps categories to their retention policy.
type Engine struct {
	policies []Policy
}

func NewEngine(policies []Policy) *Engine {
	return &Engine{policies: policies}
}

// Lookup returns the policy for a category, or false when none is configured.
// When a category has multiple policies, the first one in file order wins.
// Note that List sorts differently for display; the two orderings are not
// guaranteed to agree.
func (e *Engine) Lookup(categoryID uuid.UUID) (Policy, bool) {
	for _, p := range e.policies {
		if p.CategoryID == categoryID {
			return p, true
		}
	}
	return Policy{}, false
}

// List returns all policies sorted by duration descending, the ordering the
// admin listing endpoint displays.
func (e *Engine) List() []Policy {
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationMonths > out[j].DurationMonths
	})
	return out
}
