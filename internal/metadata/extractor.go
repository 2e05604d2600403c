// Package metadata extracts page metadata (title, description, canonical URL
// and friends) from raw HTML for the login-wall detector.
package metadata

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/loginwall/internal/loginwall"
)

// Extractor implements crawler.MetadataExtractor using goquery.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

var (
	titleSources = []source{
		{selector: `meta[property="og:title"]`, attr: "content"},
		{selector: `meta[name="twitter:title"]`, attr: "content"},
		{selector: "title"},
	}
	descriptionSources = []source{
		{selector: `meta[property="og:description"]`, attr: "content"},
		{selector: `meta[name="description"]`, attr: "content"},
		{selector: `meta[name="twitter:description"]`, attr: "content"},
	}
	imageSources = []source{
		{selector: `meta[property="og:image"]`, attr: "content"},
		{selector: `meta[property="og:image:url"]`, attr: "content"},
		{selector: `meta[name="twitter:image"]`, attr: "content"},
		{selector: `link[rel="image_src"]`, attr: "href"},
	}
	urlSources = []source{
		{selector: `meta[property="og:url"]`, attr: "content"},
		{selector: `link[rel="canonical"]`, attr: "href"},
	}
	authorSources = []source{
		{selector: `meta[name="author"]`, attr: "content"},
		{selector: `meta[property="article:author"]`, attr: "content"},
		{selector: `[rel="author"]`},
		{selector: `[itemprop="author"] [itemprop="name"]`},
	}
	publisherSources = []source{
		{selector: `meta[property="og:site_name"]`, attr: "content"},
		{selector: `meta[name="application-name"]`, attr: "content"},
		{selector: `meta[name="publisher"]`, attr: "content"},
	}
	logoSources = []source{
		{selector: `link[rel="apple-touch-icon"]`, attr: "href"},
		{selector: `link[rel="icon"]`, attr: "href"},
		{selector: `link[rel="shortcut icon"]`, attr: "href"},
		{selector: `[itemprop="logo"]`, attr: "content"},
	}
)

// source reads either an attribute or, when attr is empty, the element text.
type source struct {
	selector string
	attr     string
}

// Extract parses htmlContent and returns the first non-empty value for each
// field. Unparsable input yields empty metadata.
func (Extractor) Extract(htmlContent string) loginwall.Metadata {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return loginwall.Metadata{}
	}
	return loginwall.Metadata{
		Title:       first(doc, titleSources),
		Description: first(doc, descriptionSources),
		Image:       first(doc, imageSources),
		URL:         first(doc, urlSources),
		Author:      first(doc, authorSources),
		Publisher:   first(doc, publisherSources),
		Logo:        first(doc, logoSources),
	}
}

func first(doc *goquery.Document, sources []source) string {
	for _, src := range sources {
		var value string
		doc.Find(src.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if src.attr == "" {
				value = collapse(sel.Text())
			} else {
				raw, _ := sel.Attr(src.attr)
				value = collapse(raw)
			}
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
