// Package request builds the request values network filters are matched against.
package request

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/bnema/ublock-network-filters/internal/hashing"
)

// RequestType is the content type of a request
type RequestType int

const (
	TypeOther RequestType = iota
	TypeBeacon
	TypeCSP
	TypeDocument
	TypeDTD
	TypeFetch
	TypeFont
	TypeImage
	TypeMedia
	TypeObject
	TypePing
	TypeScript
	TypeStylesheet
	TypeSubdocument
	TypeWebsocket
	TypeXLST
	TypeXMLHTTPRequest
)

var typeNames = map[string]RequestType{
	"beacon":            TypeBeacon,
	"csp_report":        TypeCSP,
	"document":          TypeDocument,
	"main_frame":        TypeDocument,
	"fetch":             TypeFetch,
	"font":              TypeFont,
	"image":             TypeImage,
	"imageset":          TypeImage,
	"media":             TypeMedia,
	"object":            TypeObject,
	"object_subrequest": TypeObject,
	"other":             TypeOther,
	"ping":              TypePing,
	"script":            TypeScript,
	"stylesheet":        TypeStylesheet,
	"sub_frame":         TypeSubdocument,
	"subdocument":       TypeSubdocument,
	"websocket":         TypeWebsocket,
	"xhr":               TypeXMLHTTPRequest,
	"xmlhttprequest":    TypeXMLHTTPRequest,
	"xml_dtd":           TypeDTD,
	"xslt":              TypeXLST,
}

// ParseType maps a browser resource type name to a RequestType. Unknown names are TypeOther.
func ParseType(name string) RequestType {
	if t, ok := typeNames[strings.ToLower(name)]; ok {
		return t
	}
	return TypeOther
}

func (t RequestType) String() string {
	switch t {
	case TypeBeacon:
		return "beacon"
	case TypeCSP:
		return "csp"
	case TypeDocument:
		return "document"
	case TypeDTD:
		return "dtd"
	case TypeFetch:
		return "fetch"
	case TypeFont:
		return "font"
	case TypeImage:
		return "image"
	case TypeMedia:
		return "media"
	case TypeObject:
		return "object"
	case TypePing:
		return "ping"
	case TypeScript:
		return "script"
	case TypeStylesheet:
		return "stylesheet"
	case TypeSubdocument:
		return "subdocument"
	case TypeWebsocket:
		return "websocket"
	case TypeXLST:
		return "xlst"
	case TypeXMLHTTPRequest:
		return "xmlhttprequest"
	default:
		return "other"
	}
}

// ErrInvalidURL is returned when the request URL has no usable hostname
var ErrInvalidURL = errors.New("invalid request url")

var hostProfile = idna.New(idna.MapForLookup(), idna.Transitional(false), idna.StrictDomainName(false))

// Request is an outgoing request as seen by the matcher
type Request struct {
	URL      string
	Hostname string
	Type     RequestType

	IsHTTP       bool
	IsHTTPS      bool
	IsThirdParty bool

	// FastHash of the source hostname and each of its parent domains, sorted
	SourceHostnameHashes []uint64

	lowerURL string
}

// New builds a Request. sourceURL is the document that issued it and may be empty.
func New(rawURL, sourceURL, requestType string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host, err := normalizeHost(u.Hostname())
	if err != nil || host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	// Hosts are matched in their normalized punycode form
	if raw := u.Hostname(); raw != host && strings.ToLower(raw) != host {
		port := u.Port()
		u.Host = host
		if strings.Contains(host, ":") {
			u.Host = "[" + host + "]"
		}
		if port != "" {
			u.Host += ":" + port
		}
		rawURL = u.String()
	}

	var sourceHost string
	if sourceURL != "" {
		if su, err := url.Parse(sourceURL); err == nil {
			sourceHost, _ = normalizeHost(su.Hostname())
		}
	}

	return FromParts(rawURL, host, sourceHost, strings.ToLower(u.Scheme), ParseType(requestType)), nil
}

// FromParts builds a Request from already normalized pieces
func FromParts(rawURL, hostname, sourceHostname, scheme string, typ RequestType) *Request {
	if scheme == "ws" || scheme == "wss" {
		typ = TypeWebsocket
	}

	r := &Request{
		URL:      rawURL,
		Hostname: hostname,
		Type:     typ,
		IsHTTP:   scheme == "http",
		IsHTTPS:  scheme == "https",
		lowerURL: strings.ToLower(rawURL),
	}

	if sourceHostname != "" {
		r.IsThirdParty = registrableDomain(hostname) != registrableDomain(sourceHostname)
		r.SourceHostnameHashes = sourceHashes(sourceHostname, registrableDomain(sourceHostname))
	}
	return r
}

// GetURL returns the URL verbatim for case-sensitive filters, lowercased otherwise
func (r *Request) GetURL(matchCase bool) string {
	if matchCase {
		return r.URL
	}
	return r.lowerURL
}

func normalizeHost(h string) (string, error) {
	h = strings.ToLower(strings.TrimSuffix(h, "."))
	if isASCII(h) {
		return h, nil
	}
	return hostProfile.ToASCII(h)
}

func registrableDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// sourceHashes hashes host and each parent label suffix down to its registrable domain
func sourceHashes(host, domain string) []uint64 {
	hashes := []uint64{hashing.FastHash(host)}
	domainStart := len(host) - len(domain)
	if !strings.HasSuffix(host, domain) {
		domainStart = 0
	}
	for i := 0; i < domainStart; i++ {
		if host[i] == '.' {
			hashes = append(hashes, hashing.FastHash(host[i+1:]))
		}
	}
	slices.Sort(hashes)
	return hashes
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
