// Package loginwall decides whether a crawled page is a login or paywall
// interstitial instead of the content that was requested.
//
// Detection is rule based. A Registry holds one Rule per supported site; each
// Rule owns an ordered list of weighted Signals and a combination Mode. The
// Detector resolves a rule from the requested URL (falling back to the URL the
// browser ended up on), parses the HTML once into Evidence, runs every Signal
// and reduces the outcomes to a Result whose Reason lists the signals that
// fired.
//
// The package performs no I/O. Every Detect call is independent and safe for
// concurrent use because registries are frozen at construction.
package loginwall
