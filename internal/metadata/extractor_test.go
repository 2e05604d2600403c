package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/loginwall/internal/loginwall"
)

func TestExtractPrefersOpenGraph(t *testing.T) {
	t.Parallel()

	page := `<html><head>
<title>Fallback title</title>
<meta property="og:title" content=" Sunset over   the bay ">
<meta name="description" content="plain description">
<meta property="og:description" content="">
<meta property="og:image" content="https://cdn.example/sunset.jpg">
<meta property="og:url" content="https://www.instagram.com/p/ABC123/">
<link rel="canonical" href="https://www.instagram.com/p/other/">
<meta name="author" content="someone">
<meta property="og:site_name" content="Instagram">
<link rel="icon" href="/favicon.ico">
</head><body></body></html>`

	md := New().Extract(page)
	require.Equal(t, loginwall.Metadata{
		Title:       "Sunset over the bay",
		Description: "plain description",
		Image:       "https://cdn.example/sunset.jpg",
		URL:         "https://www.instagram.com/p/ABC123/",
		Author:      "someone",
		Publisher:   "Instagram",
		Logo:        "/favicon.ico",
	}, md)
}

func TestExtractFallbacks(t *testing.T) {
	t.Parallel()

	page := `<html><head>
<title>
  Instagram
</title>
<link rel="canonical" href="https://www.instagram.com/">
<link rel="apple-touch-icon" href="/apple.png">
</head><body><a rel="author" href="/u">Jane Doe</a></body></html>`

	md := New().Extract(page)
	require.Equal(t, "Instagram", md.Title)
	require.Equal(t, "https://www.instagram.com/", md.URL)
	require.Equal(t, "Jane Doe", md.Author)
	require.Equal(t, "/apple.png", md.Logo)
	require.Empty(t, md.Description)
	require.Empty(t, md.Image)
	require.Empty(t, md.Publisher)
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	require.Equal(t, loginwall.Metadata{}, New().Extract(""))
	require.Equal(t, loginwall.Metadata{}, New().Extract("not html at all <<<"))
}
