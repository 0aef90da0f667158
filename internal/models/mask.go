package models

import "strings"

// NetworkFilterMask packs every boolean facet of a network filter.
// Bit positions are part of the persisted form and of filter ids, never reorder them.
type NetworkFilterMask uint32

const (
	FromImage NetworkFilterMask = 1 << iota
	FromMedia
	FromObject
	FromOther
	FromPing
	FromScript
	FromStylesheet
	FromSubdocument
	FromWebsocket
	FromXMLHTTPRequest
	FromFont
	FromHTTP
	FromHTTPS
	IsImportant
	MatchCase
	IsRemoveparam
	ThirdParty
	FirstParty
	IsRegex
	IsLeftAnchor
	IsRightAnchor
	IsHostnameAnchor
	IsException
	IsCSP
	IsCompleteRegex
	Unmatched
	IsRedirect
	BadFilter
	IsHostnameRegex
	FromDocument
	GenericHide
	AlsoBlockRedirect
)

// Combined masks
const (
	FromNetworkTypes = FromFont | FromImage | FromMedia | FromObject | FromOther |
		FromPing | FromScript | FromStylesheet | FromSubdocument | FromWebsocket |
		FromXMLHTTPRequest

	FromAllTypes = FromNetworkTypes | FromDocument

	DefaultOptions = FromNetworkTypes | FromHTTP | FromHTTPS | ThirdParty | FirstParty
)

// Contains reports whether every bit of other is set
func (m NetworkFilterMask) Contains(other NetworkFilterMask) bool {
	return m&other == other
}

// Intersects reports whether any bit of other is set
func (m NetworkFilterMask) Intersects(other NetworkFilterMask) bool {
	return m&other != 0
}

// Set turns the given bits on or off
func (m *NetworkFilterMask) Set(flags NetworkFilterMask, on bool) {
	if on {
		*m |= flags
	} else {
		*m &^= flags
	}
}

// Clear turns the given bits off
func (m *NetworkFilterMask) Clear(flags NetworkFilterMask) {
	*m &^= flags
}

// Union returns m with other's bits added
func (m NetworkFilterMask) Union(other NetworkFilterMask) NetworkFilterMask {
	return m | other
}

var maskNames = []struct {
	flag NetworkFilterMask
	name string
}{
	{FromImage, "image"},
	{FromMedia, "media"},
	{FromObject, "object"},
	{FromOther, "other"},
	{FromPing, "ping"},
	{FromScript, "script"},
	{FromStylesheet, "stylesheet"},
	{FromSubdocument, "subdocument"},
	{FromWebsocket, "websocket"},
	{FromXMLHTTPRequest, "xhr"},
	{FromFont, "font"},
	{FromHTTP, "http"},
	{FromHTTPS, "https"},
	{IsImportant, "important"},
	{MatchCase, "match-case"},
	{IsRemoveparam, "removeparam"},
	{ThirdParty, "third-party"},
	{FirstParty, "first-party"},
	{IsRegex, "regex"},
	{IsLeftAnchor, "left-anchor"},
	{IsRightAnchor, "right-anchor"},
	{IsHostnameAnchor, "hostname-anchor"},
	{IsException, "exception"},
	{IsCSP, "csp"},
	{IsCompleteRegex, "complete-regex"},
	{Unmatched, "unmatched"},
	{IsRedirect, "redirect"},
	{BadFilter, "badfilter"},
	{IsHostnameRegex, "hostname-regex"},
	{FromDocument, "document"},
	{GenericHide, "generichide"},
	{AlsoBlockRedirect, "also-block-redirect"},
}

// String lists the set flags joined by "|"
func (m NetworkFilterMask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	for _, n := range maskNames {
		if m&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
