package models

import (
	"fmt"
	"strings"
)

// PartKind identifies the shape of a FilterPart
type PartKind uint8

const (
	PartEmpty PartKind = iota
	PartSimple
	PartAnyOf
)

// FilterPart is the literal portion of a network filter.
// Empty matches everything, AnyOf matches if any alternative does.
type FilterPart struct {
	Kind  PartKind
	Parts []string // one element for PartSimple
}

// EmptyPart returns the match-everything part
func EmptyPart() FilterPart {
	return FilterPart{Kind: PartEmpty}
}

// SimplePart wraps a single literal
func SimplePart(s string) FilterPart {
	return FilterPart{Kind: PartSimple, Parts: []string{s}}
}

// AnyOfPart wraps an ordered list of alternatives
func AnyOfPart(parts []string) FilterPart {
	return FilterPart{Kind: PartAnyOf, Parts: parts}
}

// StringView returns the textual form of the part. ok is false for PartEmpty.
func (p FilterPart) StringView() (s string, ok bool) {
	switch p.Kind {
	case PartSimple:
		return p.Parts[0], true
	case PartAnyOf:
		return strings.Join(p.Parts, "|"), true
	default:
		return "", false
	}
}

// Patterns returns the alternatives to evaluate, nil for PartEmpty
func (p FilterPart) Patterns() []string {
	if p.Kind == PartEmpty {
		return nil
	}
	return p.Parts
}

// NetworkFilter is a compiled network rule. It must not be mutated once parsed.
type NetworkFilter struct {
	Mask   NetworkFilterMask
	Filter FilterPart

	// Sorted, deduplicated FastHash values of domain= entries
	OptDomains         []uint64
	OptNotDomains      []uint64
	OptDomainsUnion    uint64
	OptNotDomainsUnion uint64

	// Value of redirect, redirect-rule, csp or removeparam
	ModifierOption string
	Hostname       string
	Tag            string
	RawLine        string

	ID uint64
}

func (f *NetworkFilter) IsException() bool       { return f.Mask.Contains(IsException) }
func (f *NetworkFilter) IsHostnameAnchor() bool  { return f.Mask.Contains(IsHostnameAnchor) }
func (f *NetworkFilter) IsRightAnchor() bool     { return f.Mask.Contains(IsRightAnchor) }
func (f *NetworkFilter) IsLeftAnchor() bool      { return f.Mask.Contains(IsLeftAnchor) }
func (f *NetworkFilter) MatchCase() bool         { return f.Mask.Contains(MatchCase) }
func (f *NetworkFilter) IsImportant() bool       { return f.Mask.Contains(IsImportant) }
func (f *NetworkFilter) IsRedirect() bool        { return f.Mask.Contains(IsRedirect) }
func (f *NetworkFilter) AlsoBlockRedirect() bool { return f.Mask.Contains(AlsoBlockRedirect) }
func (f *NetworkFilter) IsBadFilter() bool       { return f.Mask.Contains(BadFilter) }
func (f *NetworkFilter) IsGenericHide() bool     { return f.Mask.Contains(GenericHide) }
func (f *NetworkFilter) IsRegex() bool           { return f.Mask.Contains(IsRegex) }
func (f *NetworkFilter) IsCompleteRegex() bool   { return f.Mask.Contains(IsCompleteRegex) }
func (f *NetworkFilter) IsHostnameRegex() bool   { return f.Mask.Contains(IsHostnameRegex) }
func (f *NetworkFilter) IsCSP() bool             { return f.Mask.Contains(IsCSP) }
func (f *NetworkFilter) IsRemoveparam() bool     { return f.Mask.Contains(IsRemoveparam) }
func (f *NetworkFilter) FromHTTP() bool          { return f.Mask.Contains(FromHTTP) }
func (f *NetworkFilter) FromHTTPS() bool         { return f.Mask.Contains(FromHTTPS) }
func (f *NetworkFilter) ThirdParty() bool        { return f.Mask.Contains(ThirdParty) }
func (f *NetworkFilter) FirstParty() bool        { return f.Mask.Contains(FirstParty) }

// IsPlain is true when the literal can be matched without a regex
func (f *NetworkFilter) IsPlain() bool { return !f.IsRegex() }

// ForHTTP is true when the filter only applies to plain http
func (f *NetworkFilter) ForHTTP() bool { return f.FromHTTP() && !f.FromHTTPS() }

// ForHTTPS is true when the filter only applies to https
func (f *NetworkFilter) ForHTTPS() bool { return f.FromHTTPS() && !f.FromHTTP() }

func (f *NetworkFilter) HasOptDomains() bool    { return len(f.OptDomains) > 0 }
func (f *NetworkFilter) HasOptNotDomains() bool { return len(f.OptNotDomains) > 0 }

// ComputeID folds the identity-bearing fields into a rolling hash
func (f *NetworkFilter) ComputeID() uint64 {
	return computeFilterID(f.Mask, f.ModifierOption, f.OptDomains, f.OptNotDomains, f.Filter, f.Hostname)
}

// IDWithoutBadfilter is shared by a filter and its $badfilter counterpart
func (f *NetworkFilter) IDWithoutBadfilter() uint64 {
	mask := f.Mask
	mask.Clear(BadFilter)
	return computeFilterID(mask, f.ModifierOption, f.OptDomains, f.OptNotDomains, f.Filter, f.Hostname)
}

func computeFilterID(mask NetworkFilterMask, modifier string, domains, notDomains []uint64, part FilterPart, hostname string) uint64 {
	hash := uint64(5408*33) ^ uint64(mask)

	for _, c := range modifier {
		hash = hash*33 ^ uint64(c)
	}
	for _, d := range domains {
		hash = hash*33 ^ d
	}
	for _, d := range notDomains {
		hash = hash*33 ^ d
	}
	if s, ok := part.StringView(); ok {
		for _, c := range s {
			hash = hash*33 ^ uint64(c)
		}
	}
	for _, c := range hostname {
		hash = hash*33 ^ uint64(c)
	}

	return hash
}

// Equal compares filters by identity
func (f *NetworkFilter) Equal(other *NetworkFilter) bool {
	return f.ID == other.ID
}

// Less orders filters by identity
func (f *NetworkFilter) Less(other *NetworkFilter) bool {
	return f.ID < other.ID
}

func (f *NetworkFilter) String() string {
	if f.RawLine != "" {
		return f.RawLine
	}
	var b strings.Builder
	if f.IsException() {
		b.WriteString("@@")
	}
	if f.IsHostnameAnchor() {
		b.WriteString("||")
		b.WriteString(f.Hostname)
	} else if f.IsLeftAnchor() {
		b.WriteString("|")
	}
	if s, ok := f.Filter.StringView(); ok {
		b.WriteString(s)
	}
	if f.IsRightAnchor() {
		b.WriteString("|")
	}
	fmt.Fprintf(&b, " [%s] id=%016x", f.Mask, f.ID)
	return b.String()
}
