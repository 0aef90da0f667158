package matcher

import "strings"

// IsAnchoredByHostname checks that filterHostname lines up with label
// boundaries of hostname: "foo" anchors "foo.com" and "sub.foo.com" but not
// "foobar.com". wildcard relaxes the right boundary for ||foo*^ filters.
func IsAnchoredByHostname(filterHostname, hostname string, wildcard bool) bool {
	flen := len(filterHostname)
	if flen == 0 {
		return true
	}
	hlen := len(hostname)

	switch {
	case flen > hlen:
		return false
	case flen == hlen:
		return filterHostname == hostname
	}

	idx := strings.Index(hostname, filterHostname)
	if idx < 0 {
		return false
	}

	// The right-boundary test reads hostname[flen], which equals the byte after
	// the match only when the match is a prefix. Infix matches keep this reading.
	prefixOK := wildcard || strings.HasSuffix(filterHostname, ".") || hostname[flen] == '.'

	switch {
	case idx == 0:
		return prefixOK
	case idx == hlen-flen:
		return strings.HasPrefix(filterHostname, ".") || hostname[idx-1] == '.'
	default:
		return prefixOK && (strings.HasPrefix(filterHostname, ".") || hostname[idx-1] == '.')
	}
}

// GetURLAfterHostname returns what follows the first occurrence of hostname
// in url, or "" when hostname does not occur
func GetURLAfterHostname(url, hostname string) string {
	idx := strings.Index(url, hostname)
	if idx < 0 {
		return ""
	}
	return url[idx+len(hostname):]
}
