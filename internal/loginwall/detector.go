package loginwall

import "go.uber.org/zap"

// Observer receives every evaluation a Detector performs. Implementations
// must be safe for concurrent use and must not retain outcomes.
type Observer interface {
	ObserveEvaluation(rule Rule, outcomes []Outcome, result Result)
}

// Detector is the entry point the crawl pipeline calls after fetching and
// extracting a page.
type Detector struct {
	registry *Registry
	observer Observer
	logger   *zap.Logger
}

// Option customises a Detector.
type Option func(*Detector)

// WithLogger sets the logger used for positive verdicts.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver attaches an evaluation observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(d *Detector) {
		d.observer = o
	}
}

// NewDetector builds a Detector over registry. A nil registry detects nothing.
func NewDetector(registry *Registry, opts ...Option) *Detector {
	d := &Detector{
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the rules the detector resolves against.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect classifies a fetched page. It never returns an error: unparsable or
// non-web URLs and unknown sites yield a negative Result.
func (d *Detector) Detect(originalURL, browserURL string, md Metadata, htmlContent string) Result {
	rule, ok := d.resolve(originalURL, browserURL)
	if !ok {
		return Result{}
	}
	ev := NewEvidence(originalURL, browserURL, md, htmlContent)
	result, outcomes := evaluate(rule, ev)
	if d.observer != nil {
		d.observer.ObserveEvaluation(rule, outcomes, result)
	}
	if result.IsLoginRedirect {
		d.logger.Info("login redirect detected",
			zap.String("rule", rule.ID),
			zap.String("site", result.SiteName),
			zap.String("original_url", originalURL),
			zap.String("browser_url", browserURL),
			zap.String("reason", result.Reason),
		)
	}
	return result
}

// Assert returns a *LoginRedirectError when Detect is positive and nil
// otherwise.
func (d *Detector) Assert(originalURL, browserURL string, md Metadata, htmlContent string) error {
	result := d.Detect(originalURL, browserURL, md, htmlContent)
	if !result.IsLoginRedirect {
		return nil
	}
	return &LoginRedirectError{
		SiteName:    result.SiteName,
		Reason:      result.Reason,
		OriginalURL: originalURL,
	}
}

// resolve tries the requested URL first. The browser URL is only consulted
// when it is a usable http(s) URL, which lets a redirect onto a known login
// domain be caught.
func (d *Detector) resolve(originalURL, browserURL string) (Rule, bool) {
	if rule, ok := d.registry.FindRuleForURL(originalURL); ok {
		return rule, true
	}
	if !IsWebURL(browserURL) {
		return Rule{}, false
	}
	return d.registry.FindRuleForURL(browserURL)
}

// Detect runs the built-in rules.
func Detect(originalURL, browserURL string, md Metadata, htmlContent string) Result {
	return NewDetector(DefaultRegistry()).Detect(originalURL, browserURL, md, htmlContent)
}

// Assert runs the built-in rules and fails with *LoginRedirectError on a
// positive verdict.
func Assert(originalURL, browserURL string, md Metadata, htmlContent string) error {
	return NewDetector(DefaultRegistry()).Assert(originalURL, browserURL, md, htmlContent)
}
