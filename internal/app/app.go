// Package app builds the long-lived services shared by the login-wall
// binaries: the detector, the fetchers, and the one-shot Checker.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/crawler"
	collyfetcher "github.com/JakeFAU/loginwall/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/loginwall/internal/fetcher/headless"
	"github.com/JakeFAU/loginwall/internal/headless/detector"
	"github.com/JakeFAU/loginwall/internal/loginwall"
)

// NewDetector builds the login-wall detector described by cfg. Rules from
// cfg.RulesFile are tried before the built-in sites and replace any built-in
// rule with the same id. Rules listed in cfg.DisabledSites are dropped from
// both. A disabled detector has no rules
// and never reports a login wall.
func NewDetector(cfg config.DetectorConfig, logger *zap.Logger, opts ...loginwall.Option) (*loginwall.Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]loginwall.Option{loginwall.WithLogger(logger)}, opts...)
	if !cfg.Enabled {
		logger.Warn("login-wall detector disabled")
		empty, err := loginwall.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("build empty registry: %w", err)
		}
		return loginwall.NewDetector(empty, opts...), nil
	}

	var rules []loginwall.Rule
	var overridden []string
	if cfg.RulesFile != "" {
		custom, err := loginwall.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load detector rules: %w", err)
		}
		logger.Info("loaded detector rules file",
			zap.String("path", cfg.RulesFile),
			zap.Int("rules", len(custom)),
		)
		rules = append(rules, custom...)
		for _, r := range custom {
			overridden = append(overridden, r.ID)
		}
	}
	builtins := loginwall.DefaultRules()
	kept := loginwall.WithoutRules(builtins, overridden)
	if len(kept) < len(builtins) {
		logger.Info("rules file replaces built-in rules", zap.Int("replaced", len(builtins)-len(kept)))
	}
	rules = append(rules, kept...)
	rules = loginwall.WithoutRules(rules, cfg.DisabledSites)

	registry, err := loginwall.NewRegistry(rules...)
	if err != nil {
		return nil, fmt.Errorf("build detector registry: %w", err)
	}
	ids := make([]string, 0, registry.Len())
	for _, r := range registry.Rules() {
		ids = append(ids, r.ID)
	}
	logger.Info("login-wall detector ready", zap.Strings("rules", ids))
	return loginwall.NewDetector(registry, opts...), nil
}

// Fetchers bundles the probe fetcher with the optional headless fetcher and
// the heuristic that decides when to promote a probe.
type Fetchers struct {
	Probe crawler.Fetcher
	// Headless is nil when headless rendering is disabled or Chrome could not
	// be started.
	Headless crawler.Fetcher
	Promoter crawler.HeadlessDetector

	browser *headlessfetcher.Fetcher
}

// NewFetchers builds the fetchers configured in cfg. A headless fetcher that
// fails to start is logged and left disabled.
func NewFetchers(cfg config.Config, logger *zap.Logger) *Fetchers {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetchers{
		Probe: collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Crawler.UserAgent,
			RespectRobots: cfg.Crawler.RespectRobots,
			Timeout:       cfg.FetchTimeout(),
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		}),
	}
	logger.Info("using colly probe fetcher", zap.String("user_agent", cfg.Crawler.UserAgent))
	if !cfg.Headless.Enabled {
		return f
	}

	browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		SettleDelay:       time.Duration(cfg.Headless.SettleDelayMs) * time.Millisecond,
	})
	if err != nil {
		logger.Warn("headless fetcher init failed", zap.Error(err))
		return f
	}
	f.browser = browser
	f.Headless = browser
	f.Promoter = detector.NewHeuristic(cfg.Headless.PromotionThreshold)
	logger.Info("using headless fetcher", zap.Int("max_parallel", cfg.Headless.MaxParallel))
	return f
}

// Close shuts down the browser, if one was started.
func (f *Fetchers) Close() {
	if f.browser != nil {
		f.browser.Close()
	}
}
