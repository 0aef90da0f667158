package parser

import (
	"regexp"
	"strings"

	"github.com/bnema/ublock-network-filters/internal/models"
)

var validParam = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

type optionKind int

const (
	optDomain optionKind = iota
	optBadfilter
	optImportant
	optMatchCase
	optThirdParty
	optFirstParty
	optTag
	optRedirect
	optRedirectRule
	optCsp
	optRemoveparam
	optGenericHide
	optDocument
	optContentType
)

type domainEntry struct {
	enabled bool
	name    string
}

// filterOption is one entry of the $options segment
type filterOption struct {
	kind    optionKind
	enabled bool // false when negated, for party and content-type options
	value   string
	domains []domainEntry
	cpt     models.NetworkFilterMask
}

var contentTypes = map[string]models.NetworkFilterMask{
	"image":             models.FromImage,
	"media":             models.FromMedia,
	"object":            models.FromObject,
	"object-subrequest": models.FromObject,
	"other":             models.FromOther,
	"ping":              models.FromPing,
	"beacon":            models.FromPing,
	"script":            models.FromScript,
	"stylesheet":        models.FromStylesheet,
	"css":               models.FromStylesheet,
	"subdocument":       models.FromSubdocument,
	"frame":             models.FromSubdocument,
	"xmlhttprequest":    models.FromXMLHTTPRequest,
	"xhr":               models.FromXMLHTTPRequest,
	"websocket":         models.FromWebsocket,
	"font":              models.FromFont,
}

// parseOptions splits a raw $options segment into typed options
func parseOptions(raw string) ([]filterOption, error) {
	parts := strings.Split(raw, ",")
	result := make([]filterOption, 0, len(parts))

	for _, part := range parts {
		negated := strings.HasPrefix(part, "~")
		part = strings.TrimLeft(part, "~")

		name, value, _ := strings.Cut(part, "=")

		var opt filterOption
		switch name {
		case "domain", "from":
			domains := parseDomainOption(value)
			if len(domains) == 0 {
				return nil, ErrNoSupportedDomains
			}
			opt = filterOption{kind: optDomain, domains: domains}
		case "badfilter":
			if negated {
				return nil, ErrNegatedBadFilter
			}
			opt = filterOption{kind: optBadfilter}
		case "important":
			if negated {
				return nil, ErrNegatedImportant
			}
			opt = filterOption{kind: optImportant}
		case "match-case":
			if negated {
				return nil, ErrNegatedOptionMatchCase
			}
			opt = filterOption{kind: optMatchCase}
		case "third-party", "3p":
			opt = filterOption{kind: optThirdParty, enabled: !negated}
		case "first-party", "1p":
			opt = filterOption{kind: optFirstParty, enabled: !negated}
		case "tag":
			if negated {
				return nil, ErrNegatedTag
			}
			opt = filterOption{kind: optTag, value: value}
		case "redirect", "redirect-rule":
			if negated {
				return nil, ErrNegatedRedirection
			}
			if value == "" {
				return nil, ErrEmptyRedirection
			}
			kind := optRedirect
			if name == "redirect-rule" {
				kind = optRedirectRule
			}
			opt = filterOption{kind: kind, value: value}
		case "csp":
			opt = filterOption{kind: optCsp, value: value}
		case "removeparam":
			if negated {
				return nil, ErrNegatedRemoveparam
			}
			if value == "" {
				return nil, ErrEmptyRemoveparam
			}
			if !validParam.MatchString(value) {
				return nil, ErrRemoveparamRegexUnsupported
			}
			opt = filterOption{kind: optRemoveparam, value: value}
		case "generichide", "ghide":
			if negated {
				return nil, ErrNegatedGenericHide
			}
			opt = filterOption{kind: optGenericHide}
		case "document", "doc":
			if negated {
				return nil, ErrNegatedDocument
			}
			opt = filterOption{kind: optDocument}
		default:
			cpt, ok := contentTypes[name]
			if !ok {
				return nil, ErrUnrecognisedOption
			}
			opt = filterOption{kind: optContentType, enabled: !negated, cpt: cpt}
		}
		result = append(result, opt)
	}

	return result, nil
}

// parseDomainOption parses domain=example.com|~excluded.com. Regex entries are dropped.
func parseDomainOption(value string) []domainEntry {
	var domains []domainEntry
	for _, d := range strings.Split(value, "|") {
		entry := domainEntry{enabled: true, name: d}
		if rest, ok := strings.CutPrefix(d, "~"); ok {
			entry = domainEntry{enabled: false, name: rest}
		}
		if strings.HasPrefix(entry.name, "/") && strings.HasSuffix(entry.name, "/") {
			continue
		}
		domains = append(domains, entry)
	}
	return domains
}

func (o filterOption) isContentType() bool {
	return o.kind == optContentType || o.kind == optDocument
}

// validateOptions checks combinations that individual options cannot
func validateOptions(opts []filterOption) error {
	hasCsp := false
	hasContentType := false
	modifiers := 0

	for _, o := range opts {
		switch {
		case o.kind == optCsp:
			hasCsp = true
			modifiers++
		case o.isContentType():
			hasContentType = true
		case o.kind == optRedirect, o.kind == optRedirectRule, o.kind == optRemoveparam:
			modifiers++
		}
	}

	if hasCsp && hasContentType {
		return ErrCspWithContentType
	}
	if modifiers > 1 {
		return ErrMultipleModifierOptions
	}
	return nil
}
