package loginwall

import (
	"net/url"
	"strings"
)

// HostMatcher returns a Match function accepting http(s) URLs whose host is
// one of domains or a subdomain of one. Suffixes are anchored on a dot, so a
// matcher for example.com rejects notexample.com and example.com.evil.tld.
func HostMatcher(domains ...string) func(string) bool {
	suffixes := make([]string, 0, len(domains))
	for _, d := range domains {
		d = normalizeHost(strings.TrimPrefix(strings.TrimSpace(d), "*."))
		if d == "" {
			continue
		}
		suffixes = append(suffixes, d)
	}
	return func(rawURL string) bool {
		u, ok := parseWebURL(rawURL)
		if !ok {
			return false
		}
		host := normalizeHost(u.Hostname())
		for _, suffix := range suffixes {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}
		return false
	}
}

// IsWebURL reports whether raw is an absolute http or https URL with a host.
// about:blank, javascript: URLs, relative paths and the empty string are not.
func IsWebURL(raw string) bool {
	_, ok := parseWebURL(raw)
	return ok
}

func parseWebURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
