package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/loginwall"
)

const loginPageHTML = `<html><head><title>Instagram</title></head><body>` +
	`<form id="loginForm" method="post">` +
	`<input name="username" type="text"><input name="password" type="password">` +
	`<button type="submit">Log in</button></form>` +
	`<a href="/accounts/password/reset/">Forgot password?</a>` +
	`<p>Don't have an account? <a href="/accounts/emailsignup/">Sign up</a></p>` +
	`</body></html>`

func detectBody(t *testing.T, req detectRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return string(data)
}

func TestDetectHandler_ExtractsMetadataWhenMissing(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, config.Config{})
	rec := h.do(http.MethodPost, "/v1/detect", detectBody(t, detectRequest{
		OriginalURL: "https://www.instagram.com/p/ABC123/",
		BrowserURL:  "https://www.instagram.com/accounts/login/",
		HTML:        loginPageHTML,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var result loginwall.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.IsLoginRedirect)
	require.Equal(t, "Instagram", result.SiteName)
	require.NotEmpty(t, result.Reason)
}

func TestDetectHandler_UnknownSiteIsNegative(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, config.Config{})
	rec := h.do(http.MethodPost, "/v1/detect", detectBody(t, detectRequest{
		OriginalURL: "https://example.com/article",
		Metadata:    &loginwall.Metadata{Title: "Instagram"},
		HTML:        loginPageHTML,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"isLoginRedirect":false}`, rec.Body.String())
}

func TestDetectHandler_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, config.Config{})

	rec := h.do(http.MethodPost, "/v1/detect", "{invalid")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid JSON")

	rec = h.do(http.MethodPost, "/v1/detect", `{"html":"<p>hi</p>"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "original_url is required")
}

func TestDetectHandler_ListsRules(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, config.Config{})
	rec := h.do(http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []ruleDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, loginwall.DefaultRegistry().Len())
	require.Equal(t, "instagram", rules[0].ID)
	require.Equal(t, "Instagram", rules[0].SiteName)
	require.Equal(t, "threshold", rules[0].Mode)
	require.Positive(t, rules[0].ThresholdWeight)
	require.NotEmpty(t, rules[0].Signals)
	for _, sig := range rules[0].Signals {
		require.NotEmpty(t, sig.ID)
		require.Positive(t, sig.Weight)
	}
}

func TestDetectHandler_UsesConfiguredRegistry(t *testing.T) {
	t.Parallel()

	reg, err := loginwall.NewRegistry()
	require.NoError(t, err)
	server := NewServer(Deps{Detector: loginwall.NewDetector(reg)}, config.Config{}, nil)
	h := &testHarness{server: server}

	rec := h.do(http.MethodPost, "/v1/detect", detectBody(t, detectRequest{
		OriginalURL: "https://www.instagram.com/p/ABC123/",
		BrowserURL:  "https://www.instagram.com/accounts/login/",
		HTML:        loginPageHTML,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"isLoginRedirect":false}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/v1/rules", "")
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestDetectHandler_EmptyBrowserURLIsNotSubstituted(t *testing.T) {
	t.Parallel()

	reg, err := loginwall.NewRegistry(loginwall.Rule{
		ID:       "members",
		SiteName: "Members",
		Match:    loginwall.HostMatcher("members.example.com"),
		Mode:     loginwall.ModeAny,
		Signals: []loginwall.Signal{
			loginwall.BrowserPathSignal("login-path", "browser landed on the login path", 1, "/login"),
		},
	})
	require.NoError(t, err)
	detector := loginwall.NewDetector(reg)
	h := &testHarness{server: NewServer(Deps{Detector: detector}, config.Config{}, nil)}

	const original = "https://members.example.com/login/welcome"
	rec := h.do(http.MethodPost, "/v1/detect", detectBody(t, detectRequest{OriginalURL: original}))

	require.Equal(t, http.StatusOK, rec.Code)
	var result loginwall.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, detector.Detect(original, "", loginwall.Metadata{}, ""), result)
	require.False(t, result.IsLoginRedirect)
}
