package loginwall

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Evidence is the immutable bundle signals evaluate against. The HTML is
// parsed exactly once per Evidence; signals share the parsed document.
type Evidence struct {
	originalURL string
	browserURL  string
	metadata    Metadata
	html        string
	doc         *goquery.Document
	visibleText string
}

// NewEvidence parses htmlContent and precomputes the visible text. Parsing is
// static: scripts are not executed and nothing is fetched.
func NewEvidence(originalURL, browserURL string, md Metadata, htmlContent string) *Evidence {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return &Evidence{
		originalURL: originalURL,
		browserURL:  browserURL,
		metadata:    md,
		html:        htmlContent,
		doc:         doc,
		visibleText: visibleText(doc),
	}
}

// OriginalURL is the URL the crawler was asked to fetch.
func (e *Evidence) OriginalURL() string { return e.originalURL }

// BrowserURL is the URL the fetcher ended on after redirects.
func (e *Evidence) BrowserURL() string { return e.browserURL }

// Metadata returns the extracted page metadata.
func (e *Evidence) Metadata() Metadata { return e.metadata }

// HTML returns the raw markup.
func (e *Evidence) HTML() string { return e.html }

// Find runs a CSS selector against the parsed document and returns a
// detached copy of the matches, so edits never reach the shared document.
// Invalid selectors match nothing.
func (e *Evidence) Find(selector string) *goquery.Selection {
	return e.doc.Find(selector).Clone()
}

// Count returns how many elements match selector.
func (e *Evidence) Count(selector string) int {
	return e.doc.Find(selector).Length()
}

// Title prefers the extracted metadata title and falls back to <title>.
func (e *Evidence) Title() string {
	if t := strings.TrimSpace(e.metadata.Title); t != "" {
		return t
	}
	return strings.TrimSpace(e.doc.Find("title").First().Text())
}

// CanonicalURL returns the page's self-declared URL: metadata first, then
// link[rel=canonical], then og:url. Empty when none is declared.
func (e *Evidence) CanonicalURL() string {
	if u := strings.TrimSpace(e.metadata.URL); u != "" {
		return u
	}
	if href, ok := e.doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	if content, ok := e.doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}

// VisibleText is the lowercased, whitespace-collapsed text a reader would
// see. Content of script, style, noscript, template and head elements, of
// elements carrying the hidden attribute, and of comments is excluded.
func (e *Evidence) VisibleText() string {
	return e.visibleText
}

func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	for _, root := range doc.Nodes {
		collectVisible(root, &b)
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

func collectVisible(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if !rendered(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisible(c, b)
	}
}

func rendered(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return false
	}
	for _, attr := range n.Attr {
		if attr.Namespace == "" && strings.EqualFold(attr.Key, "hidden") {
			return false
		}
	}
	return true
}
