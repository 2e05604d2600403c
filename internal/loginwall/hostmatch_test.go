package loginwall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostMatcher(t *testing.T) {
	t.Parallel()

	match := HostMatcher("example.com", "*.short.io", "")
	cases := []struct {
		name string
		url  string
		want bool
	}{
		{name: "apex", url: "https://example.com/p/1", want: true},
		{name: "subdomain", url: "https://www.example.com/", want: true},
		{name: "deep subdomain", url: "http://a.b.example.com", want: true},
		{name: "mixed case host", url: "https://WWW.Example.COM/x", want: true},
		{name: "trailing dot", url: "https://example.com./x", want: true},
		{name: "port", url: "https://example.com:8443/x", want: true},
		{name: "wildcard entry", url: "https://go.short.io/abc", want: true},
		{name: "raw suffix spoof", url: "https://notexample.com/", want: false},
		{name: "appended domain spoof", url: "https://example.com.evil.tld/", want: false},
		{name: "userinfo spoof", url: "https://example.com@evil.tld/", want: false},
		{name: "other host", url: "https://example.org/", want: false},
		{name: "empty", url: "", want: false},
		{name: "plain text", url: "not a url", want: false},
		{name: "scheme-less", url: "example.com/p/1", want: false},
		{name: "protocol relative", url: "//example.com/p/1", want: false},
		{name: "ftp scheme", url: "ftp://example.com/file", want: false},
		{name: "javascript", url: "javascript:void(0)", want: false},
		{name: "bad escape", url: "https://example.com/%zz", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, match(tc.url))
		})
	}
}

func TestIsWebURL(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://www.instagram.com/accounts/login/",
		"http://example.com",
		"HTTPS://EXAMPLE.COM/x",
	}
	for _, raw := range valid {
		require.True(t, IsWebURL(raw), raw)
	}

	invalid := []string{
		"",
		"   ",
		"about:blank",
		"javascript:void(0)",
		"/relative/path",
		"chrome-error://chromewebdata/",
		"data:text/html,hi",
		"https://",
		"http://[::1",
	}
	for _, raw := range invalid {
		require.False(t, IsWebURL(raw), raw)
	}
}
