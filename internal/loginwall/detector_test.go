package loginwall

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	instagramPostURL  = "https://www.instagram.com/p/ABC123/"
	instagramLoginURL = "https://www.instagram.com/accounts/login/"
)

const instagramLoginPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Instagram</title>
  <script>window._sharedData = {"config":{"viewer":null}};</script>
</head>
<body>
  <main>
    <form id="loginForm" method="post">
      <input name="username" type="text" aria-label="Phone number, username, or email">
      <input name="password" type="password" aria-label="Password">
      <button type="submit">Log in</button>
    </form>
    <a href="/accounts/password/reset/">Forgot password?</a>
    <p>Don't have an account? <a href="/accounts/emailsignup/">Sign up</a></p>
  </main>
</body>
</html>`

const instagramPostPage = `<!DOCTYPE html>
<html lang="en">
<head><title>Sunset over the bay • Instagram</title></head>
<body>
  <article>
    <header><a href="/someone/">someone</a></header>
    <img src="https://cdn.example/sunset.jpg" alt="Sunset over the bay">
    <time datetime="2024-05-01T18:00:00.000Z">May 1</time>
  </article>
</body>
</html>`

var instagramLoginMetadata = Metadata{Title: "Instagram", URL: "https://www.instagram.com/"}

func TestDetectInstagramLoginWall(t *testing.T) {
	t.Parallel()

	result := Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
	require.True(t, result.IsLoginRedirect)
	require.Equal(t, "Instagram", result.SiteName)
	require.Equal(t,
		"page title is the generic Instagram title; "+
			"canonical URL points away from the requested post; "+
			"login form with a password field is present; "+
			"visible text prompts to log in, sign up and recover a password; "+
			"post URL requested but no article or timestamp markup found; "+
			"browser landed on the Instagram login path",
		result.Reason,
	)
}

func TestDetectInstagramPostIsNotLoginWall(t *testing.T) {
	t.Parallel()

	md := Metadata{Title: "Sunset over the bay • Instagram", Description: "42 likes"}
	result := Detect(instagramPostURL, instagramPostURL, md, instagramPostPage)
	require.Equal(t, Result{}, result)
	require.NoError(t, Assert(instagramPostURL, instagramPostURL, md, instagramPostPage))
}

func TestDetectIsDeterministic(t *testing.T) {
	t.Parallel()

	first := Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
	for range 5 {
		require.Equal(t, first, Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage))
	}
}

func TestDetectIgnoresUnusableBrowserURL(t *testing.T) {
	t.Parallel()

	for _, browserURL := range []string{"", "about:blank", "javascript:void(0)", "/accounts/login/"} {
		t.Run(fmt.Sprintf("browser=%q", browserURL), func(t *testing.T) {
			t.Parallel()

			result := Detect(instagramPostURL, browserURL, instagramLoginMetadata, instagramLoginPage)
			require.True(t, result.IsLoginRedirect)
			require.Equal(t, "Instagram", result.SiteName)
			require.NotContains(t, result.Reason, "browser landed")

			none := Detect("https://blog.example.org/post/1", browserURL, instagramLoginMetadata, instagramLoginPage)
			require.Equal(t, Result{}, none)
		})
	}
}

func TestDetectFollowsRedirectIntoKnownSite(t *testing.T) {
	t.Parallel()

	result := Detect("https://l.example.net/short/abc", instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
	require.True(t, result.IsLoginRedirect)
	require.Equal(t, "Instagram", result.SiteName)
}

func TestDetectPrefersOriginalURLRule(t *testing.T) {
	t.Parallel()

	original := Rule{
		ID:       "original",
		SiteName: "Original",
		Match:    HostMatcher("original.example"),
		Mode:     ModeAny,
		Signals:  []Signal{constSignal("o", 1, true)},
	}
	browser := Rule{
		ID:       "browser",
		SiteName: "Browser",
		Match:    HostMatcher("browser.example"),
		Mode:     ModeAny,
		Signals:  []Signal{constSignal("b", 1, true)},
	}
	reg, err := NewRegistry(browser, original)
	require.NoError(t, err)

	d := NewDetector(reg)
	result := d.Detect("https://original.example/a", "https://browser.example/login", Metadata{}, "")
	require.Equal(t, "Original", result.SiteName)

	result = d.Detect("https://elsewhere.example/a", "https://browser.example/login", Metadata{}, "")
	require.Equal(t, "Browser", result.SiteName)
}

func TestDetectUnknownSiteIsNeverPositive(t *testing.T) {
	t.Parallel()

	page := `<form action="/login"><input type="password"></form><p>Log in Sign up Forgot password</p>`
	for _, u := range []string{
		"https://example.com/p/ABC/",
		"https://notinstagram.com/p/ABC/",
		"https://instagram.com.evil.tld/p/ABC/",
		"not a url",
		"",
	} {
		require.Equal(t, Result{}, Detect(u, u, Metadata{Title: "Instagram"}, page), u)
		require.NoError(t, Assert(u, u, Metadata{Title: "Instagram"}, page), u)
	}
}

func TestAssertReturnsLoginRedirectError(t *testing.T) {
	t.Parallel()

	err := Assert(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrLoginRedirect)

	wrapped := fmt.Errorf("crawl attempt: %w", err)
	lr, ok := AsLoginRedirect(wrapped)
	require.True(t, ok)
	require.Equal(t, "Instagram", lr.SiteName)
	require.Equal(t, instagramPostURL, lr.OriginalURL)
	require.NotEmpty(t, lr.Reason)
	require.Contains(t, err.Error(), instagramPostURL)

	_, ok = AsLoginRedirect(errors.New("timeout"))
	require.False(t, ok)
}

type recordingObserver struct {
	mu       sync.Mutex
	rules    []string
	outcomes [][]Outcome
	results  []Result
}

func (r *recordingObserver) ObserveEvaluation(rule Rule, outcomes []Outcome, result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule.ID)
	r.outcomes = append(r.outcomes, append([]Outcome(nil), outcomes...))
	r.results = append(r.results, result)
}

func TestDetectorObserverAndLogging(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	obs := &recordingObserver{}
	d := NewDetector(DefaultRegistry(), WithLogger(zap.New(core)), WithObserver(obs), WithLogger(nil))

	d.Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
	d.Detect(instagramPostURL, instagramPostURL, Metadata{Title: "caption"}, instagramPostPage)
	d.Detect("https://example.com/", "", Metadata{}, "")

	require.Equal(t, []string{"instagram", "instagram"}, obs.rules)
	require.Len(t, obs.outcomes[0], 6)
	require.True(t, obs.results[0].IsLoginRedirect)
	require.False(t, obs.results[1].IsLoginRedirect)

	entries := logs.FilterMessage("login redirect detected").All()
	require.Len(t, entries, 1)
	require.Equal(t, "Instagram", entries[0].ContextMap()["site"])
}

func TestDetectorIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultRegistry())
	want := d.Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = d.Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage)
				return
			}
			results[i] = d.Detect(instagramPostURL, instagramPostURL, Metadata{Title: "caption"}, instagramPostPage)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if i%2 == 0 {
			require.Equal(t, want, got)
		} else {
			require.Equal(t, Result{}, got)
		}
	}
}

func TestNilRegistryDetectorIsNegative(t *testing.T) {
	t.Parallel()

	d := NewDetector(nil)
	require.Nil(t, d.Registry())
	require.Equal(t, Result{}, d.Detect(instagramPostURL, instagramLoginURL, instagramLoginMetadata, instagramLoginPage))
}
