package loginwall

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is an ordered, read-only set of rules. The first rule whose Match
// accepts a URL wins.
type Registry struct {
	rules []Rule
}

// NewRegistry validates and freezes the given rules in declaration order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	frozen := make([]Rule, 0, len(rules))
	ids := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("register rule: %w", err)
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("register rule: duplicate rule id %s", r.ID)
		}
		ids[r.ID] = struct{}{}
		frozen = append(frozen, r.clone())
	}
	return &Registry{rules: frozen}, nil
}

// FindRuleForURL returns the first rule that matches rawURL.
func (r *Registry) FindRuleForURL(rawURL string) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	for _, rule := range r.rules {
		if rule.Match(rawURL) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the registered rules in priority order.
func (r *Registry) Rules() []Rule {
	if r == nil {
		return nil
	}
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		out[i] = rule.clone()
	}
	return out
}

// Len reports the number of registered rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// WithoutRules drops rules whose id appears in ids (case-insensitive). It is
// used to honour per-deployment site opt-outs before building a registry.
func WithoutRules(rules []Rule, ids []string) []Rule {
	if len(ids) == 0 {
		return rules
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			skip[id] = struct{}{}
		}
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if _, ok := skip[strings.ToLower(r.ID)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := NewRegistry(DefaultRules()...)
	if err != nil {
		panic(fmt.Sprintf("loginwall: built-in rules are invalid: %v", err))
	}
	return reg
})

// DefaultRegistry returns the registry of built-in site rules.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
