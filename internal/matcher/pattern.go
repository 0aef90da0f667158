package matcher

import (
	"strings"

	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/request"
)

// CheckPattern tests the URL of req against the pattern of f. Regex filters go
// through cache; plain filters use substring, prefix, suffix or equality tests
// depending on their anchors.
func CheckPattern(f *models.NetworkFilter, req *request.Request, cache RegexCache) bool {
	if f.IsHostnameAnchor() {
		if !IsAnchoredByHostname(f.Hostname, req.Hostname, f.IsHostnameRegex()) {
			return false
		}
		url := req.GetURL(f.MatchCase())

		switch {
		case f.IsRegex():
			start := 0
			if idx := strings.Index(url, f.Hostname); idx >= 0 {
				start = idx
			}
			return checkRegexAt(f, url, start+len(f.Hostname), cache)
		case f.IsLeftAnchor() && f.IsRightAnchor():
			// Pattern must be exactly the rest of the URL
			after := GetURLAfterHostname(url, f.Hostname)
			return anyPart(f.Filter, func(p string) bool { return after == p })
		case f.IsRightAnchor():
			if f.Filter.Kind == models.PartEmpty {
				// ||foo.bar| must not match foo.bar.baz
				return len(req.Hostname) == len(f.Hostname) || strings.HasSuffix(req.Hostname, f.Hostname)
			}
			return anyPart(f.Filter, func(p string) bool { return strings.HasSuffix(url, p) })
		case f.IsLeftAnchor():
			after := GetURLAfterHostname(url, f.Hostname)
			return anyPart(f.Filter, func(p string) bool { return strings.HasPrefix(after, p) })
		default:
			after := GetURLAfterHostname(url, f.Hostname)
			return anyPart(f.Filter, func(p string) bool { return strings.Contains(after, p) })
		}
	}

	if f.IsRegex() || f.IsCompleteRegex() {
		return checkRegexAt(f, req.GetURL(f.MatchCase()), 0, cache)
	}

	url := req.GetURL(f.MatchCase())
	switch {
	case f.IsLeftAnchor() && f.IsRightAnchor():
		return anyPart(f.Filter, func(p string) bool { return url == p })
	case f.IsLeftAnchor():
		return anyPart(f.Filter, func(p string) bool { return strings.HasPrefix(url, p) })
	case f.IsRightAnchor():
		return anyPart(f.Filter, func(p string) bool { return strings.HasSuffix(url, p) })
	default:
		return anyPart(f.Filter, func(p string) bool { return strings.Contains(url, p) })
	}
}

func checkRegexAt(f *models.NetworkFilter, url string, start int, cache RegexCache) bool {
	if start > len(url) {
		start = len(url)
	}
	return cache.GetOrCompile(f).IsMatch(url[start:])
}

// anyPart applies test to each alternative of part. An empty part always matches.
func anyPart(part models.FilterPart, test func(string) bool) bool {
	switch part.Kind {
	case models.PartEmpty:
		return true
	case models.PartSimple:
		return test(part.Parts[0])
	default:
		for _, p := range part.Parts {
			if test(p) {
				return true
			}
		}
		return false
	}
}
