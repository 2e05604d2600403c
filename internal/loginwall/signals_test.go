package loginwall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleSignal(t *testing.T) {
	t.Parallel()

	sig := TitleSignal("title", "generic title", 1, "Instagram", "Login • Instagram")
	cases := []struct {
		name  string
		title string
		page  string
		want  bool
	}{
		{name: "exact", title: "Instagram", want: true},
		{name: "case and spacing", title: "  login   •  INSTAGRAM ", want: true},
		{name: "content title", title: "Sunset at the beach • Instagram photos", want: false},
		{name: "missing title", want: false},
		{name: "document title fallback", page: "<title>Instagram</title>", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := NewEvidence("https://www.instagram.com/p/x/", "", Metadata{Title: tc.title}, tc.page)
			require.Equal(t, tc.want, sig.Check(ev))
		})
	}
}

func TestCanonicalMismatchSignal(t *testing.T) {
	t.Parallel()

	sig := CanonicalMismatchSignal("canon", "canonical mismatch", 2, "/p/", "reel")
	cases := []struct {
		name      string
		original  string
		canonical string
		want      bool
	}{
		{name: "root canonical", original: "https://www.instagram.com/p/ABC/", canonical: "https://www.instagram.com/", want: true},
		{name: "relative root canonical", original: "https://www.instagram.com/p/ABC/", canonical: "/", want: true},
		{name: "canonical without segment", original: "https://www.instagram.com/reel/XYZ", canonical: "https://www.instagram.com/accounts/login/", want: true},
		{name: "same post", original: "https://www.instagram.com/p/ABC/", canonical: "https://www.instagram.com/p/ABC/", want: false},
		{name: "non content request", original: "https://www.instagram.com/someuser/", canonical: "https://www.instagram.com/", want: false},
		{name: "no canonical", original: "https://www.instagram.com/p/ABC/", want: false},
		{name: "bad original", original: "::::", canonical: "https://www.instagram.com/", want: false},
		{name: "bad canonical", original: "https://www.instagram.com/p/ABC/", canonical: "http://[::1", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := NewEvidence(tc.original, "", Metadata{URL: tc.canonical}, "")
			require.Equal(t, tc.want, sig.Check(ev))
		})
	}
}

func TestSelectorSignal(t *testing.T) {
	t.Parallel()

	sig := SelectorSignal("pw", "password", 2, `input[type="password"]`, `form[action*="/accounts/login"]`, "")
	require.True(t, sig.Check(NewEvidence("", "", Metadata{}, `<input type="password" name="p">`)))
	require.True(t, sig.Check(NewEvidence("", "", Metadata{}, `<form action="/accounts/login/ajax/"></form>`)))
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, `<input type="text">`)))
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, "")))

	invalid := SelectorSignal("bad", "bad selector", 1, "input[")
	require.False(t, invalid.Check(NewEvidence("", "", Metadata{}, `<input>`)))
}

func TestKeywordSignalOnlyReadsVisibleText(t *testing.T) {
	t.Parallel()

	sig := KeywordSignal("kw", "keywords", 1, "Log in", "sign up", "forgot  password")

	hidden := `<html><head><style>.log-in{} /* Log in */</style></head><body>
<script>const labels = ["Log in", "Sign up", "Forgot password"];</script>
<noscript>Log in Sign up Forgot password</noscript>
<p>Welcome</p></body></html>`
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, hidden)))

	visible := `<html><body><button>Log In</button><a>Sign up</a><a href="#">Forgot
password?</a></body></html>`
	require.True(t, sig.Check(NewEvidence("", "", Metadata{}, visible)))

	partial := `<body><button>Log in</button><a>Sign up</a></body>`
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, partial)))

	require.False(t, KeywordSignal("none", "no phrases", 1, " ").Check(NewEvidence("", "", Metadata{}, visible)))
}

func TestMissingStructureSignal(t *testing.T) {
	t.Parallel()

	sig := MissingStructureSignal("structure", "missing article", 1,
		[]string{"/p/"}, []string{"article", "time[datetime]"})

	require.True(t, sig.Check(NewEvidence("https://www.instagram.com/p/ABC/", "", Metadata{}, `<div>login</div>`)))
	require.False(t, sig.Check(NewEvidence("https://www.instagram.com/p/ABC/", "", Metadata{}, `<article>post</article>`)))
	require.False(t, sig.Check(NewEvidence("https://www.instagram.com/p/ABC/", "", Metadata{}, `<time datetime="2024-01-01">x</time>`)))
	require.False(t, sig.Check(NewEvidence("https://www.instagram.com/explore/", "", Metadata{}, `<div></div>`)))
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, `<div></div>`)))
}

func TestBrowserPathSignal(t *testing.T) {
	t.Parallel()

	sig := BrowserPathSignal("path", "login path", 2, "/accounts/login")
	require.True(t, sig.Check(NewEvidence("", "https://www.instagram.com/accounts/login/?next=%2Fp%2FABC%2F", Metadata{}, "")))
	require.True(t, sig.Check(NewEvidence("", "https://www.instagram.com/Accounts/Login", Metadata{}, "")))
	require.False(t, sig.Check(NewEvidence("", "https://www.instagram.com/p/ABC/", Metadata{}, "")))
	require.False(t, sig.Check(NewEvidence("", "about:blank", Metadata{}, "")))
	require.False(t, sig.Check(NewEvidence("", "", Metadata{}, "")))
}
