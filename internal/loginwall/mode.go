package loginwall

import (
	"fmt"
	"strings"
)

// Mode selects how signal outcomes are reduced to a verdict.
type Mode int

// Supported combination modes.
const (
	// ModeAny is positive when at least one signal matched.
	ModeAny Mode = iota + 1
	// ModeAll is positive when every signal matched.
	ModeAll
	// ModeThreshold is positive when the summed weight of matched signals
	// reaches the rule's ThresholdWeight.
	ModeThreshold
)

func (m Mode) String() string {
	switch m {
	case ModeAny:
		return "any"
	case ModeAll:
		return "all"
	case ModeThreshold:
		return "threshold"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts the textual form used in rule files.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "any":
		return ModeAny, nil
	case "all":
		return ModeAll, nil
	case "threshold":
		return ModeThreshold, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q", raw)
	}
}

func (m Mode) valid() bool {
	return m >= ModeAny && m <= ModeThreshold
}
