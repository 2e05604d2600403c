package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSeedURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "HTTPS://WWW.Instagram.COM:443/p/ABC123/#comments", want: "https://www.instagram.com/p/ABC123/"},
		{in: "http://example.com:80", want: "http://example.com/"},
		{in: " https://example.com/a?b=2&a=1 ", want: "https://example.com/a?b=2&a=1"},
		{in: "https://example.com:8443/x", want: "https://example.com:8443/x"},
	}
	for _, tc := range cases {
		got, err := NormalizeSeedURL(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"", "about:blank", "ftp://example.com/", "/relative", "http://%zz"} {
		_, err := NormalizeSeedURL(bad)
		require.Error(t, err, bad)
	}
	_, err := NormalizeSeedURL("mailto:someone@example.com")
	require.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestCrawlStatusTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, CrawlStatusSucceeded.Terminal())
	require.True(t, CrawlStatusFailed.Terminal())
	require.False(t, CrawlStatusPending.Terminal())
	require.False(t, CrawlStatusRunning.Terminal())
}
