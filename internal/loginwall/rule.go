package loginwall

import (
	"errors"
	"fmt"
)

// Rule binds a URL predicate to the signals evaluated for one site.
type Rule struct {
	ID       string
	SiteName string
	// Match reports whether the rule applies to a URL. It must return false
	// rather than panic for unparsable input.
	Match           func(rawURL string) bool
	Signals         []Signal
	Mode            Mode
	ThresholdWeight int
}

// Validate checks the structural invariants a registry relies on.
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rule id is required")
	}
	if r.SiteName == "" {
		return fmt.Errorf("rule %s: site name is required", r.ID)
	}
	if r.Match == nil {
		return fmt.Errorf("rule %s: match function is required", r.ID)
	}
	if len(r.Signals) == 0 {
		return fmt.Errorf("rule %s: at least one signal is required", r.ID)
	}
	if !r.Mode.valid() {
		return fmt.Errorf("rule %s: invalid detection mode %s", r.ID, r.Mode)
	}
	switch {
	case r.Mode == ModeThreshold && r.ThresholdWeight <= 0:
		return fmt.Errorf("rule %s: threshold weight must be > 0 in threshold mode", r.ID)
	case r.Mode != ModeThreshold && r.ThresholdWeight != 0:
		return fmt.Errorf("rule %s: threshold weight is only valid in threshold mode", r.ID)
	}
	seen := make(map[string]struct{}, len(r.Signals))
	for i, s := range r.Signals {
		if s.ID == "" {
			return fmt.Errorf("rule %s: signal %d has no id", r.ID, i)
		}
		if s.Check == nil {
			return fmt.Errorf("rule %s: signal %s has no check", r.ID, s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("rule %s: duplicate signal id %s", r.ID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

func (r Rule) clone() Rule {
	cp := r
	cp.Signals = append([]Signal(nil), r.Signals...)
	return cp
}
