package loginwall

import (
	"net/url"
	"strings"
)

// TitleSignal matches when the page title equals one of titles, ignoring
// case and surrounding whitespace. Generic site titles ("Instagram") and their
// localised login variants belong here; content-specific titles never match.
func TitleSignal(id, description string, weight int, titles ...string) Signal {
	want := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		if t = normalizeText(t); t != "" {
			want[t] = struct{}{}
		}
	}
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			title := normalizeText(ev.Title())
			if title == "" {
				return false
			}
			_, ok := want[title]
			return ok
		},
	}
}

// CanonicalMismatchSignal matches when the requested URL is a content URL
// (its path contains one of segments) but the page declares a canonical URL
// that is the site root or lacks every content segment.
func CanonicalMismatchSignal(id, description string, weight int, segments ...string) Signal {
	segs := normalizeSegments(segments)
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			requested, ok := parseWebURL(ev.OriginalURL())
			if !ok || !hasSegment(requested.Path, segs) {
				return false
			}
			declared := ev.CanonicalURL()
			if declared == "" {
				return false
			}
			canonical, err := requested.Parse(declared)
			if err != nil {
				return false
			}
			if strings.Trim(canonical.Path, "/") == "" {
				return true
			}
			return !hasSegment(canonical.Path, segs)
		},
	}
}

// SelectorSignal matches when any of selectors finds an element, e.g. a
// password input or a form posting to a login endpoint.
func SelectorSignal(id, description string, weight int, selectors ...string) Signal {
	sels := compact(selectors)
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			for _, sel := range sels {
				if ev.Count(sel) > 0 {
					return true
				}
			}
			return false
		},
	}
}

// KeywordSignal matches when every phrase occurs in the visible text.
// Matching is case-insensitive and whitespace-tolerant.
func KeywordSignal(id, description string, weight int, phrases ...string) Signal {
	want := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalizeText(p); p != "" {
			want = append(want, p)
		}
	}
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			if len(want) == 0 {
				return false
			}
			text := ev.VisibleText()
			for _, p := range want {
				if !strings.Contains(text, p) {
					return false
				}
			}
			return true
		},
	}
}

// MissingStructureSignal matches when the requested URL names a content
// type (one of segments) but none of the selectors that such a page should
// carry are present.
func MissingStructureSignal(id, description string, weight int, segments, selectors []string) Signal {
	segs := normalizeSegments(segments)
	sels := compact(selectors)
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			requested, ok := parseWebURL(ev.OriginalURL())
			if !ok || !hasSegment(requested.Path, segs) || len(sels) == 0 {
				return false
			}
			for _, sel := range sels {
				if ev.Count(sel) > 0 {
					return false
				}
			}
			return true
		},
	}
}

// BrowserPathSignal matches when the browser ended on a path starting with
// one of prefixes, such as /accounts/login.
func BrowserPathSignal(id, description string, weight int, prefixes ...string) Signal {
	want := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			want = append(want, p)
		}
	}
	return Signal{
		ID:          id,
		Description: description,
		Weight:      weight,
		Check: func(ev *Evidence) bool {
			browser, ok := parseWebURL(ev.BrowserURL())
			if !ok {
				return false
			}
			path := strings.ToLower(browser.EscapedPath())
			for _, p := range want {
				if strings.HasPrefix(path, p) {
					return true
				}
			}
			return false
		},
	}
}

func hasSegment(path string, segments []string) bool {
	if len(segments) == 0 {
		return false
	}
	p := strings.ToLower(path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	for _, seg := range segments {
		if strings.Contains(p, seg) {
			return true
		}
	}
	return false
}

func normalizeSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		if !strings.HasPrefix(s, "/") {
			s = "/" + s
		}
		out = append(out, s)
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
