package loginwall

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Signal kinds accepted in rule files.
const (
	KindTitle             = "title"
	KindCanonicalMismatch = "canonical_mismatch"
	KindSelector          = "selector"
	KindKeywords          = "keywords"
	KindMissingStructure  = "missing_structure"
	KindBrowserPath       = "browser_path"
)

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID        string       `yaml:"id"`
	SiteName  string       `yaml:"site_name"`
	Domains   []string     `yaml:"domains"`
	Mode      string       `yaml:"mode"`
	Threshold int          `yaml:"threshold"`
	Signals   []signalSpec `yaml:"signals"`
}

type signalSpec struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Weight      int      `yaml:"weight"`
	Kind        string   `yaml:"kind"`
	Values      []string `yaml:"values"`
	Segments    []string `yaml:"segments"`
	Selectors   []string `yaml:"selectors"`
}

// LoadRulesFile reads declarative site rules from a YAML file.
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	rules, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("load rules from %s: %w", path, err)
	}
	return rules, nil
}

// LoadRules decodes rule definitions. Every rule is validated, and every
// selector compiled, before anything is returned.
//
//	rules:
//	  - id: example
//	    site_name: Example
//	    domains: [example.com]
//	    mode: threshold
//	    threshold: 3
//	    signals:
//	      - id: password-field
//	        description: password input present
//	        weight: 2
//	        kind: selector
//	        selectors: ['input[type="password"]']
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file ruleFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.ID, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s ruleSpec) build() (Rule, error) {
	domains := compact(s.Domains)
	if len(domains) == 0 {
		return Rule{}, errors.New("at least one domain is required")
	}
	mode, err := ParseMode(s.Mode)
	if err != nil {
		return Rule{}, err
	}
	signals := make([]Signal, 0, len(s.Signals))
	for _, sig := range s.Signals {
		built, err := sig.build()
		if err != nil {
			return Rule{}, fmt.Errorf("signal %s: %w", sig.ID, err)
		}
		signals = append(signals, built)
	}
	return Rule{
		ID:              s.ID,
		SiteName:        s.SiteName,
		Match:           HostMatcher(domains...),
		Signals:         signals,
		Mode:            mode,
		ThresholdWeight: s.Threshold,
	}, nil
}

func (s signalSpec) build() (Signal, error) {
	if s.Weight < 0 {
		return Signal{}, errors.New("weight must be positive")
	}
	if err := compileSelectors(s.Selectors); err != nil {
		return Signal{}, err
	}
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case KindTitle:
		if len(compact(s.Values)) == 0 {
			return Signal{}, errors.New("title signal needs values")
		}
		return TitleSignal(s.ID, s.Description, s.Weight, s.Values...), nil
	case KindCanonicalMismatch:
		if len(compact(s.Segments)) == 0 {
			return Signal{}, errors.New("canonical_mismatch signal needs segments")
		}
		return CanonicalMismatchSignal(s.ID, s.Description, s.Weight, s.Segments...), nil
	case KindSelector:
		if len(compact(s.Selectors)) == 0 {
			return Signal{}, errors.New("selector signal needs selectors")
		}
		return SelectorSignal(s.ID, s.Description, s.Weight, s.Selectors...), nil
	case KindKeywords:
		if len(compact(s.Values)) == 0 {
			return Signal{}, errors.New("keywords signal needs values")
		}
		return KeywordSignal(s.ID, s.Description, s.Weight, s.Values...), nil
	case KindMissingStructure:
		if len(compact(s.Segments)) == 0 || len(compact(s.Selectors)) == 0 {
			return Signal{}, errors.New("missing_structure signal needs segments and selectors")
		}
		return MissingStructureSignal(s.ID, s.Description, s.Weight, s.Segments, s.Selectors), nil
	case KindBrowserPath:
		if len(compact(s.Values)) == 0 {
			return Signal{}, errors.New("browser_path signal needs values")
		}
		return BrowserPathSignal(s.ID, s.Description, s.Weight, s.Values...), nil
	default:
		return Signal{}, fmt.Errorf("unknown signal kind %q", s.Kind)
	}
}

func compileSelectors(selectors []string) error {
	for _, sel := range compact(selectors) {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("invalid selector %q: %w", sel, err)
		}
	}
	return nil
}
