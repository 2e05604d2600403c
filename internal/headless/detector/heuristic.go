// Package detector decides when a plain HTTP probe is not enough to judge a
// page and the crawl should be promoted to a headless render.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

const defaultBodyThreshold = 2048

// appShellSelectors mark single-page-app mount points whose content, and any
// login interstitial, only appears after scripts run.
var appShellSelectors = []string{
	"#__next",
	"#root",
	"#app",
	"[data-reactroot]",
	"#react-root",
}

// Heuristic promotes probes that look like app shells or client-side
// redirects.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. Zero selects the default threshold.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// ShouldPromote reports whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.UsedHeadless || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	if hasClientRedirect(doc) {
		return true
	}
	for _, sel := range appShellSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return len(body) < h.BodyLengthThreshold && scriptHeavy(doc, len(body))
}

func hasClientRedirect(doc *goquery.Document) bool {
	redirect := false
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			redirect = true
		}
		return !redirect
	})
	return redirect
}

// scriptHeavy reports whether inline scripts make up at least a quarter of
// the document.
func scriptHeavy(doc *goquery.Document, total int) bool {
	if total == 0 {
		return false
	}
	scriptBytes := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
		if src, ok := s.Attr("src"); ok {
			scriptBytes += len(src)
		}
	})
	return scriptBytes*100/total >= 25
}
