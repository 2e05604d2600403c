package loginwall

import "strings"

const reasonSeparator = "; "

// Evaluate runs every signal of rule against ev and reduces the outcomes
// according to the rule's mode. All signals run even once the verdict is
// decided so the reason always lists the complete matched set.
func Evaluate(rule Rule, ev *Evidence) Result {
	result, _ := evaluate(rule, ev)
	return result
}

func evaluate(rule Rule, ev *Evidence) (Result, []Outcome) {
	outcomes := make([]Outcome, 0, len(rule.Signals))
	for _, s := range rule.Signals {
		outcomes = append(outcomes, Outcome{
			SignalID: s.ID,
			Matched:  s.Check(ev),
			Weight:   s.weight(),
		})
	}

	var (
		matched     []string
		totalWeight int
	)
	for i, o := range outcomes {
		if !o.Matched {
			continue
		}
		totalWeight += o.Weight
		matched = append(matched, rule.Signals[i].Description)
	}

	if !positive(rule, len(matched), len(outcomes), totalWeight) {
		return Result{}, outcomes
	}
	return Result{
		IsLoginRedirect: true,
		SiteName:        rule.SiteName,
		Reason:          strings.Join(matched, reasonSeparator),
	}, outcomes
}

func positive(rule Rule, matched, total, weight int) bool {
	switch rule.Mode {
	case ModeAny:
		return matched > 0
	case ModeAll:
		return total > 0 && matched == total
	case ModeThreshold:
		return weight >= rule.ThresholdWeight
	default:
		return false
	}
}
