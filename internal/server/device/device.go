// Package device derives a coarse human-readable descriptor ("Chrome on
// Windows") from a client-supplied user-agent string. This is a best-effort
// heuristic for the session list UI, not a fingerprint: matching is an
// ordered substring table where the first hit wins.
package device

import "strings"

type rule struct {
	substr string
	label  string
}

// Order matters. Edge and Opera ship "Chrome" in their UA, so they must be
// checked first; Chrome ships "Safari", so Safari comes after Chrome.
var browserRules = []rule{
	{"Edg", "Edge"},
	{"OPR", "Opera"},
	{"Opera", "Opera"},
	{"Chrome", "Chrome"},
	{"Safari", "Safari"},
	{"Firefox", "Firefox"},
	{"MSIE", "Internet Explorer"},
	{"Trident", "Internet Explorer"},
}

// iPhone/iPad before Macintosh: iPadOS can masquerade as a Mac but the
// mobile tokens are more specific. Android before Linux for the same reason.
var osRules = []rule{
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Android", "Android"},
	{"Windows", "Windows"},
	{"Macintosh", "macOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

const (
	unknownBrowser = "Unknown Browser"
	unknownOS      = "Unknown OS"
)

// Describe returns "<browser> on <OS>" for the given user-agent string.
// Unrecognized input yields "Unknown Browser on Unknown OS".
func Describe(userAgent string) string {
	return match(userAgent, browserRules, unknownBrowser) + " on " + match(userAgent, osRules, unknownOS)
}

func match(s string, rules []rule, fallback string) string {
	for _, r := range rules {
		if strings.Contains(s, r.substr) {
			return r.label
		}
	}
	return fallback
}
