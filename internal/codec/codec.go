// Package codec encodes parsed network filters in protobuf wire format so a
// compiled list can be stored and reloaded without reparsing.
package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bnema/ublock-network-filters/internal/models"
)

// Version is written at the head of every encoded list
const Version = 1

var (
	ErrCorrupt     = errors.New("corrupt filter encoding")
	ErrVersion     = errors.New("unsupported filter list version")
	ErrUnknownPart = errors.New("unknown filter part kind")
)

// Filter fields
const (
	fieldMask           protowire.Number = 1
	fieldPartKind       protowire.Number = 2
	fieldPattern        protowire.Number = 3
	fieldOptDomain      protowire.Number = 4
	fieldOptNotDomain   protowire.Number = 5
	fieldModifier       protowire.Number = 6
	fieldHostname       protowire.Number = 7
	fieldTag            protowire.Number = 8
	fieldRawLine        protowire.Number = 9
	fieldID             protowire.Number = 10
	fieldDomainsUnion   protowire.Number = 11
	fieldNotDomainUnion protowire.Number = 12
)

// List fields
const (
	fieldVersion protowire.Number = 1
	fieldFilter  protowire.Number = 2
)

// MarshalFilter encodes f
func MarshalFilter(f *models.NetworkFilter) []byte {
	return appendFilter(nil, f)
}

func appendFilter(b []byte, f *models.NetworkFilter) []byte {
	b = protowire.AppendTag(b, fieldMask, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Mask))
	b = protowire.AppendTag(b, fieldPartKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Filter.Kind))
	for _, p := range f.Filter.Parts {
		b = protowire.AppendTag(b, fieldPattern, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}
	for _, h := range f.OptDomains {
		b = protowire.AppendTag(b, fieldOptDomain, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, h)
	}
	for _, h := range f.OptNotDomains {
		b = protowire.AppendTag(b, fieldOptNotDomain, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, h)
	}
	b = appendString(b, fieldModifier, f.ModifierOption)
	b = appendString(b, fieldHostname, f.Hostname)
	b = appendString(b, fieldTag, f.Tag)
	b = appendString(b, fieldRawLine, f.RawLine)
	b = protowire.AppendTag(b, fieldID, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, f.ID)
	if f.OptDomainsUnion != 0 {
		b = protowire.AppendTag(b, fieldDomainsUnion, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, f.OptDomainsUnion)
	}
	if f.OptNotDomainsUnion != 0 {
		b = protowire.AppendTag(b, fieldNotDomainUnion, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, f.OptNotDomainsUnion)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// UnmarshalFilter decodes a filter written by MarshalFilter. Unknown fields are skipped.
func UnmarshalFilter(b []byte) (*models.NetworkFilter, error) {
	f := &models.NetworkFilter{}
	var parts []string

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldMask && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			f.Mask = models.NetworkFilterMask(v)
			b = b[n:]
		case num == fieldPartKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			if v > uint64(models.PartAnyOf) {
				return nil, fmt.Errorf("%w: %d", ErrUnknownPart, v)
			}
			f.Filter.Kind = models.PartKind(v)
			b = b[n:]
		case num == fieldPattern && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			parts = append(parts, s)
			b = b[n:]
		case (num == fieldOptDomain || num == fieldOptNotDomain ||
			num == fieldID || num == fieldDomainsUnion || num == fieldNotDomainUnion) &&
			typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			switch num {
			case fieldOptDomain:
				f.OptDomains = append(f.OptDomains, v)
			case fieldOptNotDomain:
				f.OptNotDomains = append(f.OptNotDomains, v)
			case fieldID:
				f.ID = v
			case fieldDomainsUnion:
				f.OptDomainsUnion = v
			default:
				f.OptNotDomainsUnion = v
			}
			b = b[n:]
		case (num == fieldModifier || num == fieldHostname || num == fieldTag || num == fieldRawLine) &&
			typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			switch num {
			case fieldModifier:
				f.ModifierOption = s
			case fieldHostname:
				f.Hostname = s
			case fieldTag:
				f.Tag = s
			default:
				f.RawLine = s
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			b = b[n:]
		}
	}

	switch f.Filter.Kind {
	case models.PartEmpty:
		if len(parts) > 0 {
			return nil, fmt.Errorf("%w: empty part with %d patterns", ErrCorrupt, len(parts))
		}
	case models.PartSimple:
		if len(parts) != 1 {
			return nil, fmt.Errorf("%w: simple part with %d patterns", ErrCorrupt, len(parts))
		}
		f.Filter.Parts = parts
	case models.PartAnyOf:
		f.Filter.Parts = parts
	}

	return f, nil
}

func corrupt(num protowire.Number, n int) error {
	return fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
}

// MarshalFilters encodes a whole list
func MarshalFilters(filters []*models.NetworkFilter) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	for _, f := range filters {
		b = protowire.AppendTag(b, fieldFilter, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalFilter(f))
	}
	return b
}

// UnmarshalFilters decodes a list written by MarshalFilters
func UnmarshalFilters(b []byte) ([]*models.NetworkFilter, error) {
	var filters []*models.NetworkFilter
	seenVersion := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			if v != Version {
				return nil, fmt.Errorf("%w: %d", ErrVersion, v)
			}
			seenVersion = true
			b = b[n:]
		case num == fieldFilter && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			f, err := UnmarshalFilter(raw)
			if err != nil {
				return nil, fmt.Errorf("filter %d: %w", len(filters), err)
			}
			filters = append(filters, f)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt(num, n)
			}
			b = b[n:]
		}
	}

	if !seenVersion {
		return nil, fmt.Errorf("%w: missing version", ErrVersion)
	}
	return filters, nil
}
