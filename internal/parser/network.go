package parser

import (
	"slices"
	"strings"

	"golang.org/x/net/idna"

	"github.com/bnema/ublock-network-filters/internal/hashing"
	"github.com/bnema/ublock-network-filters/internal/models"
)

type leftAnchor int

const (
	anchorNone leftAnchor = iota
	anchorSinglePipe
	anchorDoublePipe
)

// abstractFilter is a line split into its syntactic pieces, before any interpretation
type abstractFilter struct {
	exception   bool
	left        leftAnchor
	rightAnchor bool
	pattern     string
	options     []filterOption
	hasOptions  bool
}

var hostProfile = idna.New(idna.MapForLookup(), idna.Transitional(false), idna.StrictDomainName(false))

func splitLine(line string) (abstractFilter, error) {
	var af abstractFilter
	start, end := 0, len(line)

	if strings.HasPrefix(line, "@@") {
		start = 2
		af.exception = true
	}

	if idx := optionsIndex(line); idx >= start {
		end = idx
		opts, err := parseOptions(line[idx+1:])
		if err != nil {
			return af, err
		}
		af.options = opts
		af.hasOptions = true
	}

	switch {
	case strings.HasPrefix(line[start:], "||"):
		start += 2
		af.left = anchorDoublePipe
	case strings.HasPrefix(line[start:], "|"):
		start++
		af.left = anchorSinglePipe
	}
	if start > end {
		end = start
	}

	if end > 0 && end > start && line[end-1] == '|' {
		end--
		af.rightAnchor = true
	}

	af.pattern = line[start:end]
	return af, nil
}

// optionsIndex finds the right-most '$' not escaped by a backslash, or -1
func optionsIndex(line string) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == '$' && (i == 0 || line[i-1] != '\\') {
			return i
		}
	}
	return -1
}

func checkIsRegex(s string) bool {
	return strings.ContainsAny(s, "*^")
}

// Parse compiles one filter-list line into a NetworkFilter. debug keeps the
// raw line on the result.
func Parse(line string, debug bool, _ models.ParseOptions) (*models.NetworkFilter, error) {
	af, err := splitLine(line)
	if err != nil {
		return nil, lineError(line, err)
	}

	mask := models.ThirdParty | models.FirstParty | models.FromHTTPS | models.FromHTTP
	var cptPositive, cptNegative models.NetworkFilterMask

	f := &models.NetworkFilter{}

	if af.exception {
		mask.Set(models.IsException, true)
	}

	if af.hasOptions {
		if err := validateOptions(af.options); err != nil {
			return nil, lineError(line, err)
		}

		for _, o := range af.options {
			switch o.kind {
			case optDomain:
				allow, deny := hashDomains(o.domains)
				if len(allow) > 0 {
					f.OptDomains = allow
					f.OptDomainsUnion = union(allow)
				}
				if len(deny) > 0 {
					f.OptNotDomains = deny
					f.OptNotDomainsUnion = union(deny)
				}
			case optBadfilter:
				mask.Set(models.BadFilter, true)
			case optImportant:
				mask.Set(models.IsImportant, true)
			case optMatchCase:
				mask.Set(models.MatchCase, true)
			case optThirdParty, optFirstParty:
				if (o.kind == optThirdParty) == o.enabled {
					mask.Clear(models.FirstParty)
				} else {
					mask.Clear(models.ThirdParty)
				}
			case optTag:
				f.Tag = o.value
			case optRedirect:
				mask.Set(models.IsRedirect|models.AlsoBlockRedirect, true)
				f.ModifierOption = o.value
			case optRedirectRule:
				mask.Set(models.IsRedirect, true)
				f.ModifierOption = o.value
			case optRemoveparam:
				mask.Set(models.IsRemoveparam, true)
				f.ModifierOption = o.value
			case optCsp:
				// csp never carries content types and must reach documents
				mask.Set(models.IsCSP|models.FromDocument, true)
				f.ModifierOption = o.value
			case optGenericHide:
				mask.Set(models.GenericHide, true)
			case optDocument:
				cptPositive.Set(models.FromDocument, true)
			case optContentType:
				if o.enabled {
					cptPositive.Set(o.cpt, true)
				} else {
					cptNegative.Set(o.cpt, true)
				}
			}
		}
	}

	mask |= cptPositive

	// A negated network type starts from every network type; the negation is applied last.
	if !mask.Contains(models.IsRemoveparam) && cptNegative.Intersects(models.FromNetworkTypes) {
		mask |= models.FromNetworkTypes
	}
	if !cptPositive.Intersects(models.FromAllTypes) {
		if mask.Contains(models.IsRemoveparam) {
			mask |= models.FromDocument | models.FromSubdocument | models.FromXMLHTTPRequest
		} else {
			mask |= models.FromNetworkTypes
		}
	}

	switch af.left {
	case anchorDoublePipe:
		mask.Set(models.IsHostnameAnchor, true)
	case anchorSinglePipe:
		mask.Set(models.IsLeftAnchor, true)
	}

	endURLAnchor := false
	if af.rightAnchor {
		mask.Set(models.IsRightAnchor, true)
		endURLAnchor = true
	}

	pattern := af.pattern
	isRegex := checkIsRegex(pattern)
	mask.Set(models.IsRegex, isRegex)

	if len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		if !fullRegexHandling {
			return nil, lineError(line, ErrFullRegexUnsupported)
		}
		mask.Set(models.IsCompleteRegex, true)
	} else if mask.Contains(models.MatchCase) {
		return nil, lineError(line, ErrMatchCaseWithoutFullRegex)
	}

	start, end := 0, len(pattern)
	hostname := ""
	hasHostname := false

	if af.left == anchorDoublePipe {
		if isRegex {
			if sep := strings.IndexAny(pattern, "/^*"); sep >= 0 {
				if pattern[sep] == '*' {
					mask.Set(models.IsHostnameRegex, true)
				}
				hostname = pattern[:sep]
				hasHostname = true
				start = sep

				// A lone trailing '^' only says nothing may follow the hostname
				if end-start == 1 && pattern[start] == '^' {
					mask.Set(models.IsRegex, false)
					start = end
					mask.Set(models.IsRightAnchor, true)
				} else {
					mask.Set(models.IsLeftAnchor, true)
					mask.Set(models.IsRegex, checkIsRegex(pattern[start:end]))
				}
			}
		} else if slash := strings.IndexByte(pattern, '/'); slash >= 0 {
			hostname = pattern[:slash]
			hasHostname = true
			start = slash
			mask.Set(models.IsLeftAnchor, true)
		} else {
			hostname = pattern
			hasHostname = true
			start = end
		}
	}

	if end > start && strings.HasSuffix(pattern, "*") {
		end--
	}
	if end > start && pattern[start] == '*' {
		mask.Set(models.IsLeftAnchor, false)
		start++
	}

	if mask.Contains(models.IsLeftAnchor) {
		start = rewriteProtocol(pattern, start, end, &mask)
	}

	if end > start {
		literal := pattern[start:end]
		mask.Set(models.IsRegex, checkIsRegex(literal))
		if !mask.Contains(models.MatchCase) {
			literal = asciiLower(literal)
		}
		f.Filter = models.SimplePart(literal)
	} else {
		f.Filter = models.EmptyPart()
	}

	if hasHostname {
		h, err := normalizeHostname(hostname, mask.Contains(models.IsHostnameAnchor))
		if err != nil {
			return nil, lineError(line, err)
		}
		f.Hostname = h
	}

	if mask.Contains(models.GenericHide) && !af.exception {
		return nil, lineError(line, ErrGenericHideWithoutException)
	}
	if mask.Contains(models.IsRemoveparam) && af.exception {
		return nil, lineError(line, ErrRemoveparamWithException)
	}

	// ||host^ with no explicit type also blocks the main document
	if !cptPositive.Intersects(models.FromAllTypes) &&
		!cptNegative.Intersects(models.FromAllTypes) &&
		mask.Contains(models.IsHostnameAnchor) &&
		mask.Contains(models.IsRightAnchor) &&
		!endURLAnchor &&
		!mask.Contains(models.IsRemoveparam) {
		mask |= models.FromAllTypes
	}

	mask &^= cptNegative

	f.Mask = mask
	if debug {
		f.RawLine = line
	}
	f.ID = f.ComputeID()

	return f, nil
}

// rewriteProtocol folds a bare ws://, http://, https:// or http*:// literal
// into the protocol bits and returns the new pattern start
func rewriteProtocol(pattern string, start, end int, mask *models.NetworkFilterMask) int {
	rest := pattern[start:]
	switch {
	case end == start+5 && strings.HasPrefix(rest, "ws://"):
		mask.Set(models.FromWebsocket, true)
		mask.Clear(models.FromHTTP | models.FromHTTPS)
	case end == start+7 && strings.HasPrefix(rest, "http://"):
		mask.Set(models.FromHTTP, true)
		mask.Clear(models.FromHTTPS)
	case end == start+8 && strings.HasPrefix(rest, "https://"):
		mask.Set(models.FromHTTPS, true)
		mask.Clear(models.FromHTTP)
	case end == start+8 && strings.HasPrefix(rest, "http*://"):
		mask.Set(models.FromHTTP|models.FromHTTPS, true)
	default:
		return start
	}
	mask.Clear(models.IsLeftAnchor)
	return end
}

func hashDomains(entries []domainEntry) (allow, deny []uint64) {
	for _, e := range entries {
		h := hashing.FastHash(e.name)
		if e.enabled {
			allow = append(allow, h)
		} else {
			deny = append(deny, h)
		}
	}
	if allow != nil {
		slices.Sort(allow)
		allow = slices.Compact(allow)
	}
	if deny != nil {
		slices.Sort(deny)
		deny = slices.Compact(deny)
	}
	return allow, deny
}

func union(hashes []uint64) uint64 {
	var u uint64
	for _, h := range hashes {
		u |= h
	}
	return u
}

func normalizeHostname(host string, hostnameAnchor bool) (string, error) {
	if hostnameAnchor {
		host = trimWWW(host)
	}
	host = strings.ToLower(host)
	if isASCII(host) {
		return host, nil
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", ErrPunycode
	}
	return ascii, nil
}

func trimWWW(host string) string {
	for strings.HasPrefix(host, "www.") {
		host = host[4:]
	}
	return host
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
