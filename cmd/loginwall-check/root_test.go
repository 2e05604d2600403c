package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/loginwall/internal/app"
)

const rulesYAML = `
rules:
  - id: local
    site_name: Local Test
    domains: [127.0.0.1]
    mode: all
    signals:
      - id: password
        description: password field present
        kind: selector
        selectors: ['input[type="password"]']
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(rulesYAML), 0o600))
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("detector:\n  rules_file: "+rules+"\n"), 0o600))
	return cfg
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.HasPrefix(r.URL.Path, "/private") {
			_, _ = w.Write([]byte(`<html><body><form><input type="password"></form></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Public</title></head><body><p>hello</p></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCleanPage(t *testing.T) {
	site := newSite(t)
	out, err := execute(t, "--config", writeConfig(t), site.URL+"/public")
	require.NoError(t, err)

	var report app.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.False(t, report.Result.IsLoginRedirect)
	require.Equal(t, "Public", report.Metadata.Title)
}

func TestCheckLoginWall(t *testing.T) {
	site := newSite(t)
	out, err := execute(t, "--config", writeConfig(t), site.URL+"/public", site.URL+"/private")
	require.ErrorIs(t, err, errLoginWallDetected)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var report app.Report
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &report))
	require.True(t, report.Result.IsLoginRedirect)
	require.Equal(t, "Local Test", report.Result.SiteName)
}

func TestCheckRequiresURL(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
}

func TestCheckRejectsUnsupportedURL(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t), "ftp://example.com/")
	require.ErrorContains(t, err, "check ftp://example.com/")
}
