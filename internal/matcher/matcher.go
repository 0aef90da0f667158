// Package matcher decides whether a compiled network filter applies to a request.
//
// Matching runs in two stages. CheckOptions rejects on content type, protocol,
// party and source domain, which only needs mask bits and hash lookups.
// CheckPattern then tests the URL with the strategy the filter's anchors select.
// Neither stage returns errors; a filter whose regex fails to compile simply
// never matches.
package matcher

import (
	"github.com/bnema/ublock-network-filters/internal/compiler"
	"github.com/bnema/ublock-network-filters/internal/hashing"
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/request"
)

// RegexCache looks up or compiles the regex of a filter. Implementations must
// be safe for concurrent use.
type RegexCache interface {
	GetOrCompile(f *models.NetworkFilter) *compiler.CompiledRegex
}

// Matches reports whether f applies to req
func Matches(f *models.NetworkFilter, req *request.Request, cache RegexCache) bool {
	return CheckOptions(f, req) && CheckPattern(f, req, cache)
}

// maskForRequestType maps a request type to the content-type bit it must find on a filter
func maskForRequestType(t request.RequestType) models.NetworkFilterMask {
	switch t {
	case request.TypeBeacon, request.TypePing:
		return models.FromPing
	case request.TypeCSP:
		return models.Unmatched
	case request.TypeDocument:
		return models.FromDocument
	case request.TypeDTD, request.TypeFetch, request.TypeOther, request.TypeXLST:
		return models.FromOther
	case request.TypeFont:
		return models.FromFont
	case request.TypeImage:
		return models.FromImage
	case request.TypeMedia:
		return models.FromMedia
	case request.TypeObject:
		return models.FromObject
	case request.TypeScript:
		return models.FromScript
	case request.TypeStylesheet:
		return models.FromStylesheet
	case request.TypeSubdocument:
		return models.FromSubdocument
	case request.TypeWebsocket:
		return models.FromWebsocket
	case request.TypeXMLHTTPRequest:
		return models.FromXMLHTTPRequest
	default:
		return models.FromOther
	}
}

// checkCptAllowed tests the content type. Exceptions without an explicit
// $document still apply to documents, as uBlock Origin does.
func checkCptAllowed(f *models.NetworkFilter, t request.RequestType) bool {
	cpt := maskForRequestType(t)
	if cpt == models.FromDocument {
		return f.Mask.Contains(models.FromDocument) || f.IsException()
	}
	return f.Mask.Contains(cpt)
}

// CheckOptions runs every non-pattern check of f against req
func CheckOptions(f *models.NetworkFilter, req *request.Request) bool {
	if f.IsBadFilter() {
		return false
	}

	if !checkCptAllowed(f, req.Type) ||
		(req.IsHTTPS && !f.FromHTTPS()) ||
		(req.IsHTTP && !f.FromHTTP()) ||
		(!f.FirstParty() && !req.IsThirdParty) ||
		(!f.ThirdParty() && req.IsThirdParty) {
		return false
	}

	sources := req.SourceHostnameHashes
	if sources == nil {
		return true
	}

	// Source hostname must be one of these domains
	if f.HasOptDomains() {
		if !anySubsetOf(sources, f.OptDomainsUnion) {
			return false
		}
		found := false
		for _, h := range sources {
			if hashing.BinLookup(f.OptDomains, h) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.HasOptNotDomains() {
		for _, h := range sources {
			if h&f.OptNotDomainsUnion == h && hashing.BinLookup(f.OptNotDomains, h) {
				return false
			}
		}
	}

	return true
}

// anySubsetOf is true when some hash only has bits present in union. A hash
// failing this cannot be in the set the union was folded from.
func anySubsetOf(hashes []uint64, union uint64) bool {
	for _, h := range hashes {
		if h&union == h {
			return true
		}
	}
	return false
}
