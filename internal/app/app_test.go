package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/crawler"
	headlessfetcher "github.com/JakeFAU/loginwall/internal/fetcher/headless"
	"github.com/JakeFAU/loginwall/internal/loginwall"
)

const localRules = `
rules:
  - id: local
    site_name: Local Test
    domains: [127.0.0.1]
    mode: threshold
    threshold: 3
    signals:
      - id: password
        description: password field present
        weight: 2
        kind: selector
        selectors: ['input[type="password"]']
      - id: landed
        description: browser landed on the login path
        weight: 2
        kind: browser_path
        values: [/login]
  - id: instagram-override
    site_name: Instagram Override
    domains: [instagram.com]
    mode: any
    signals:
      - id: password
        description: password field present
        kind: selector
        selectors: ['input[type="password"]']
`

func writeRules(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(localRules), 0o600))
	return path
}

func TestNewDetectorDisabled(t *testing.T) {
	t.Parallel()

	det, err := NewDetector(config.DetectorConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 0, det.Registry().Len())
	result := det.Detect("https://www.instagram.com/p/ABC/", "https://www.instagram.com/accounts/login/",
		loginwall.Metadata{Title: "Instagram"}, `<input type="password">`)
	require.False(t, result.IsLoginRedirect)
}

func TestNewDetectorDisabledSites(t *testing.T) {
	t.Parallel()

	det, err := NewDetector(config.DetectorConfig{
		Enabled:       true,
		DisabledSites: []string{"Instagram"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, len(loginwall.DefaultRules())-1, det.Registry().Len())
	_, ok := det.Registry().FindRuleForURL("https://www.instagram.com/p/ABC/")
	require.False(t, ok)
}

func TestNewDetectorRulesFileTakesPrecedence(t *testing.T) {
	t.Parallel()

	det, err := NewDetector(config.DetectorConfig{Enabled: true, RulesFile: writeRules(t)}, zap.NewNop())
	require.NoError(t, err)

	rules := det.Registry().Rules()
	require.Equal(t, "local", rules[0].ID)
	require.Equal(t, "instagram-override", rules[1].ID)
	require.Len(t, rules, 2+len(loginwall.DefaultRules()))

	rule, ok := det.Registry().FindRuleForURL("https://www.instagram.com/p/ABC/")
	require.True(t, ok)
	require.Equal(t, "instagram-override", rule.ID)
}

func TestNewDetectorRulesFileReplacesBuiltinByID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - id: instagram
    site_name: Instagram Custom
    domains: [instagram.com]
    mode: any
    signals:
      - id: password
        description: password field present
        kind: selector
        selectors: ['input[type="password"]']
`), 0o600))

	det, err := NewDetector(config.DetectorConfig{Enabled: true, RulesFile: path}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, len(loginwall.DefaultRules()), det.Registry().Len())

	rule, ok := det.Registry().FindRuleForURL("https://www.instagram.com/p/ABC/")
	require.True(t, ok)
	require.Equal(t, "Instagram Custom", rule.SiteName)
}

func TestNewDetectorRulesFileErrors(t *testing.T) {
	t.Parallel()

	_, err := NewDetector(config.DetectorConfig{
		Enabled:   true,
		RulesFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}, zap.NewNop())
	require.ErrorContains(t, err, "load detector rules")
}

func newLocalSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/post/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login?next=/post/1", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Log in</title></head><body>` +
			`<form action="/login" method="post"><input name="user"><input type="password" name="pw"></form>` +
			`<p>` + strings.Repeat("Welcome back. ", 200) + `</p></body></html>`))
	})
	mux.HandleFunc("/post/2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>A post</title></head><body><article>` +
			strings.Repeat("Some words. ", 300) + `</article></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	cfg := config.Config{
		Crawler:  config.CrawlerConfig{UserAgent: "loginwall-test"},
		HTTP:     config.HTTPConfig{TimeoutSeconds: 5},
		Detector: config.DetectorConfig{Enabled: true, RulesFile: writeRules(t)},
	}
	checker, err := NewChecker(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(checker.Close)
	return checker
}

func TestCheckerDetectsRedirectToLogin(t *testing.T) {
	t.Parallel()

	site := newLocalSite(t)
	checker := newTestChecker(t)

	report, err := checker.Check(context.Background(), site.URL+"/post/1", false)
	require.NoError(t, err)
	require.Equal(t, site.URL+"/post/1", report.URL)
	require.Contains(t, report.FinalURL, "/login")
	require.Equal(t, http.StatusOK, report.StatusCode)
	require.Equal(t, "Log in", report.Metadata.Title)
	require.True(t, report.Result.IsLoginRedirect)
	require.Equal(t, "Local Test", report.Result.SiteName)
	require.Equal(t, "password field present; browser landed on the login path", report.Result.Reason)
}

func TestCheckerCleanPage(t *testing.T) {
	t.Parallel()

	site := newLocalSite(t)
	checker := newTestChecker(t)

	report, err := checker.Check(context.Background(), site.URL+"/post/2", false)
	require.NoError(t, err)
	require.False(t, report.Result.IsLoginRedirect)
	require.Equal(t, "A post", report.Metadata.Title)
}

func TestCheckerErrors(t *testing.T) {
	t.Parallel()

	checker := newTestChecker(t)

	_, err := checker.Check(context.Background(), "ftp://example.com/file", false)
	require.True(t, errors.Is(err, crawler.ErrUnsupportedURL))

	_, err = checker.Check(context.Background(), "https://example.com/", true)
	require.True(t, errors.Is(err, headlessfetcher.ErrDisabled))
}
