package parser

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ublock-network-filters/internal/hashing"
	"github.com/bnema/ublock-network-filters/internal/models"
)

func mustParse(t *testing.T, line string) *models.NetworkFilter {
	t.Helper()
	f, err := Parse(line, true, models.ParseOptions{})
	require.NoError(t, err, line)
	return f
}

func filterText(f *models.NetworkFilter) string {
	s, _ := f.Filter.StringView()
	return s
}

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		line           string
		filter         string
		hostname       string
		hostnameAnchor bool
		leftAnchor     bool
		rightAnchor    bool
		regex          bool
		exception      bool
		important      bool
	}{
		{line: "ads", filter: "ads"},
		{line: "/ads/foo-", filter: "/ads/foo-"},
		{line: "/ads/foo-$important", filter: "/ads/foo-", important: true},
		{line: "foo.com/ads$important", filter: "foo.com/ads", important: true},
		{line: "||foo.com", hostname: "foo.com", hostnameAnchor: true},
		{line: "||foo.com$important", hostname: "foo.com", hostnameAnchor: true, important: true},
		{
			line: "||foo.com/bar/baz$important", filter: "/bar/baz", hostname: "foo.com",
			hostnameAnchor: true, leftAnchor: true, important: true,
		},
		{line: "||foo.com|", hostname: "foo.com", hostnameAnchor: true, rightAnchor: true},
		{line: "||foo.com|$important", hostname: "foo.com", hostnameAnchor: true, rightAnchor: true, important: true},
		{
			line: "||foo.com/bar/baz|$important", filter: "/bar/baz", hostname: "foo.com",
			hostnameAnchor: true, leftAnchor: true, rightAnchor: true, important: true,
		},
		{
			line: "||foo.com^bar/*baz|$important", filter: "^bar/*baz", hostname: "foo.com",
			hostnameAnchor: true, leftAnchor: true, rightAnchor: true, regex: true, important: true,
		},
		{line: "|foo.com", filter: "foo.com", leftAnchor: true},
		{line: "|foo.com/bar/baz", filter: "foo.com/bar/baz", leftAnchor: true},
		{line: "|foo.com^bar/*baz", filter: "foo.com^bar/*baz", leftAnchor: true, regex: true},
		{line: "|foo.com|", filter: "foo.com", leftAnchor: true, rightAnchor: true},
		{line: "||foo.com*bar^", filter: "bar^", hostname: "foo.com", hostnameAnchor: true, regex: true},
		{
			line: "||foo.com^bar*/baz^", filter: "^bar*/baz^", hostname: "foo.com",
			hostnameAnchor: true, leftAnchor: true, regex: true,
		},
		{line: "||foo.com^", hostname: "foo.com", hostnameAnchor: true, rightAnchor: true},
		{
			line: "@@||foo.com/ads|", filter: "/ads", hostname: "foo.com",
			hostnameAnchor: true, leftAnchor: true, rightAnchor: true, exception: true,
		},
		{line: "@@||$domain=auth.wi-fi.ru", hostnameAnchor: true, exception: true},
		{line: "||www.Foo.COM/Ads", filter: "/ads", hostname: "foo.com", hostnameAnchor: true, leftAnchor: true},
		{line: "||WWW.Foo.COM/Ads", filter: "/ads", hostname: "www.foo.com", hostnameAnchor: true, leftAnchor: true},
		{line: "||bücher.de^", hostname: "xn--bcher-kva.de", hostnameAnchor: true, rightAnchor: true},
		{line: "*ads*", filter: "ads"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := mustParse(t, tt.line)

			assert.Equal(t, tt.filter, filterText(f))
			assert.Equal(t, tt.hostname, f.Hostname)
			assert.Equal(t, tt.hostnameAnchor, f.IsHostnameAnchor(), "hostname anchor")
			assert.Equal(t, tt.leftAnchor, f.IsLeftAnchor(), "left anchor")
			assert.Equal(t, tt.rightAnchor, f.IsRightAnchor(), "right anchor")
			assert.Equal(t, tt.regex, f.IsRegex(), "regex")
			assert.Equal(t, !tt.regex, f.IsPlain(), "plain")
			assert.Equal(t, tt.exception, f.IsException(), "exception")
			assert.Equal(t, tt.important, f.IsImportant(), "important")
			assert.Equal(t, tt.line, f.RawLine)
			assert.Equal(t, f.ComputeID(), f.ID)
		})
	}
}

func TestParseEmptyPatternIsEmptyPart(t *testing.T) {
	for _, line := range []string{"||foo.com", "||foo.com^", "$redirect=bar.js", "@@||$domain=auth.wi-fi.ru"} {
		f := mustParse(t, line)
		assert.Equal(t, models.PartEmpty, f.Filter.Kind, line)
	}
}

func TestParseContentTypes(t *testing.T) {
	options := map[string]models.NetworkFilterMask{
		"font":              models.FromFont,
		"image":             models.FromImage,
		"media":             models.FromMedia,
		"object":            models.FromObject,
		"object-subrequest": models.FromObject,
		"other":             models.FromOther,
		"ping":              models.FromPing,
		"script":            models.FromScript,
		"stylesheet":        models.FromStylesheet,
		"subdocument":       models.FromSubdocument,
		"websocket":         models.FromWebsocket,
		"xmlhttprequest":    models.FromXMLHTTPRequest,
		"xhr":               models.FromXMLHTTPRequest,
	}

	types := func(f *models.NetworkFilter) models.NetworkFilterMask {
		return f.Mask & models.FromAllTypes
	}

	for option, bit := range options {
		t.Run(option, func(t *testing.T) {
			assert.Equal(t, bit, types(mustParse(t, "||foo.com$"+option)))
			assert.Equal(t, bit|models.FromObject, types(mustParse(t, "||foo.com$object,"+option)))

			withDomain := mustParse(t, "||foo.com$domain=bar.com,"+option)
			assert.Equal(t, bit, types(withDomain))
			assert.Equal(t, []uint64{hashing.FastHash("bar.com")}, withDomain.OptDomains)

			assert.Equal(t, models.FromNetworkTypes&^bit, types(mustParse(t, "||foo.com$~"+option)))
			assert.Equal(t, models.FromNetworkTypes&^bit, types(mustParse(t, "||foo.com$"+option+",~"+option)))
		})
	}

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, models.FromNetworkTypes, types(mustParse(t, "||foo.com")))
	})

	t.Run("hostname with separator also covers documents", func(t *testing.T) {
		assert.Equal(t, models.FromAllTypes, types(mustParse(t, "||foo.com^")))
		assert.Equal(t, models.FromNetworkTypes, types(mustParse(t, "||foo.com|")))
		assert.Equal(t, models.FromScript, types(mustParse(t, "||foo.com^$script")))
	})

	t.Run("document", func(t *testing.T) {
		assert.Equal(t, models.FromDocument, types(mustParse(t, "||foo.com^$document")))
		assert.Equal(t, models.FromDocument, types(mustParse(t, "||foo.com^$doc")))
	})

	t.Run("aliases", func(t *testing.T) {
		assert.Equal(t, models.FromStylesheet, types(mustParse(t, "||foo.com$css")))
		assert.Equal(t, models.FromSubdocument, types(mustParse(t, "||foo.com$frame")))
		assert.Equal(t, models.FromPing, types(mustParse(t, "||foo.com$beacon")))
	})
}

func TestParseParty(t *testing.T) {
	tests := []struct {
		line       string
		firstParty bool
		thirdParty bool
	}{
		{"||foo.com", true, true},
		{"||foo.com$first-party", true, false},
		{"||foo.com$1p", true, false},
		{"@@||foo.com$first-party", true, false},
		{"@@||foo.com|$first-party", true, false},
		{"||foo.com$~first-party", false, true},
		{"||foo.com$first-party,~first-party", false, false},
		{"||foo.com$third-party", false, true},
		{"||foo.com$3p", false, true},
		{"@@||foo.com$third-party", false, true},
		{"||foo.com$~third-party", true, false},
		{"||foo.com$first-party,~third-party", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := mustParse(t, tt.line)
			assert.Equal(t, tt.firstParty, f.FirstParty(), "first-party")
			assert.Equal(t, tt.thirdParty, f.ThirdParty(), "third-party")
		})
	}
}

func TestParseDomains(t *testing.T) {
	hashes := func(domains ...string) []uint64 {
		var out []uint64
		for _, d := range domains {
			out = append(out, hashing.FastHash(d))
		}
		slices.Sort(out)
		return out
	}

	tests := []struct {
		line       string
		domains    []uint64
		notDomains []uint64
	}{
		{line: "||foo.com"},
		{line: "||foo.com$domain=bar.com", domains: hashes("bar.com")},
		{line: "||foo.com$from=bar.com", domains: hashes("bar.com")},
		{line: "||foo.com$domain=bar.com|baz.com", domains: hashes("bar.com", "baz.com")},
		{line: "||foo.com$domain=baz.com|bar.com|baz.com", domains: hashes("bar.com", "baz.com")},
		{line: "||foo.com$domain=~bar.com", notDomains: hashes("bar.com")},
		{line: "||foo.com$domain=~bar.com|~baz.com", notDomains: hashes("bar.com", "baz.com")},
		{line: "||foo.com$domain=~bar.com|baz.com", domains: hashes("baz.com"), notDomains: hashes("bar.com")},
		{line: "||foo.com$domain=foo|~bar|baz", domains: hashes("foo", "baz"), notDomains: hashes("bar")},
		{line: "||foo.com$domain=/^i[a-z]*\\.example/|bar.com", domains: hashes("bar.com")},
		{line: "adv$domain=a.com,domain=~b.com", domains: hashes("a.com"), notDomains: hashes("b.com")},
		{line: "adv$domain=~b.com,from=a.com", domains: hashes("a.com"), notDomains: hashes("b.com")},
		{line: "adv$domain=a.com,domain=c.com", domains: hashes("c.com")},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := mustParse(t, tt.line)
			assert.Equal(t, tt.domains, f.OptDomains)
			assert.Equal(t, tt.notDomains, f.OptNotDomains)

			var union uint64
			for _, h := range tt.domains {
				union |= h
			}
			assert.Equal(t, union, f.OptDomainsUnion)

			var notUnion uint64
			for _, h := range tt.notDomains {
				notUnion |= h
			}
			assert.Equal(t, notUnion, f.OptNotDomainsUnion)
		})
	}
}

func TestParseModifiers(t *testing.T) {
	t.Run("redirect", func(t *testing.T) {
		f := mustParse(t, "||foo.com$redirect=bar.js")
		assert.True(t, f.IsRedirect())
		assert.True(t, f.AlsoBlockRedirect())
		assert.Equal(t, "bar.js", f.ModifierOption)

		f = mustParse(t, "$redirect=bar.js")
		assert.Equal(t, "bar.js", f.ModifierOption)
	})

	t.Run("redirect-rule", func(t *testing.T) {
		f := mustParse(t, "||foo.com$redirect-rule=noop.js")
		assert.True(t, f.IsRedirect())
		assert.False(t, f.AlsoBlockRedirect())
		assert.Equal(t, "noop.js", f.ModifierOption)
	})

	t.Run("csp", func(t *testing.T) {
		f := mustParse(t, `||foo.com$csp=self bar ""`)
		assert.True(t, f.IsCSP())
		assert.Equal(t, `self bar ""`, f.ModifierOption)
		assert.True(t, f.Mask.Contains(models.FromDocument))

		f = mustParse(t, "||foo.com$csp")
		assert.True(t, f.IsCSP())
		assert.Empty(t, f.ModifierOption)
	})

	t.Run("removeparam", func(t *testing.T) {
		f := mustParse(t, "||foo.com^$removeparam=test")
		assert.True(t, f.IsRemoveparam())
		assert.Equal(t, "test", f.ModifierOption)
		assert.Equal(t, models.FromDocument|models.FromSubdocument|models.FromXMLHTTPRequest,
			f.Mask&models.FromAllTypes)
	})

	t.Run("flags", func(t *testing.T) {
		assert.True(t, mustParse(t, "||foo.com$important").IsImportant())
		assert.False(t, mustParse(t, "||foo.com").IsImportant())
		assert.True(t, mustParse(t, "@@||foo.com$generichide").IsGenericHide())
		assert.True(t, mustParse(t, "@@||foo.com|$ghide").IsGenericHide())
		assert.False(t, mustParse(t, "||foo.com").IsGenericHide())
		assert.True(t, mustParse(t, "||foo.com^$badfilter").IsBadFilter())
		assert.Equal(t, "abc", mustParse(t, "||foo.com$tag=abc").Tag)
	})

	t.Run("generichide with domain", func(t *testing.T) {
		f := mustParse(t, "@@$generichide,domain=example.com")
		assert.True(t, f.IsGenericHide())
		assert.Equal(t, []uint64{hashing.FastHash("example.com")}, f.OptDomains)
	})
}

func TestParseMatchCase(t *testing.T) {
	f := mustParse(t, `/foo[0-9]*\.com/$media,match-case,image`)
	assert.True(t, f.MatchCase())
	assert.True(t, f.IsCompleteRegex())

	f = mustParse(t, `/^https?:\/\/[a-z]{8,15}\.top\/[-a-z]{4,}\.css\?aHR0c[\/0-9a-zA-Z]{33,}=?=?\$/$css,3p,match-case`)
	assert.True(t, f.MatchCase())
	assert.Equal(t, `/^https?:\/\/[a-z]{8,15}\.top\/[-a-z]{4,}\.css\?aHR0c[\/0-9a-zA-Z]{33,}=?=?\$/`, filterText(f))

	assert.False(t, mustParse(t, "||foo.com").MatchCase())
	assert.Equal(t, "/ads[a-z]/", filterText(mustParse(t, "/ADS[a-z]/")))
}

func TestParseProtocols(t *testing.T) {
	tests := []struct {
		line      string
		http      bool
		https     bool
		websocket bool
	}{
		{line: "|http://", http: true},
		{line: "|https://", https: true},
		{line: "|http*://", http: true, https: true},
		{line: "|ws://", websocket: true},
		{line: "|http://ads", http: true, https: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := mustParse(t, tt.line)
			assert.Equal(t, tt.http, f.FromHTTP(), "http")
			assert.Equal(t, tt.https, f.FromHTTPS(), "https")
			if tt.websocket {
				assert.True(t, f.Mask.Contains(models.FromWebsocket))
			}
		})
	}

	f := mustParse(t, "|https://")
	assert.True(t, f.ForHTTPS())
	assert.False(t, f.IsLeftAnchor())
	assert.Equal(t, models.PartEmpty, f.Filter.Kind)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		line string
		err  error
	}{
		{"||foo.com$~important", ErrNegatedImportant},
		{"||foo.com$~badfilter", ErrNegatedBadFilter},
		{"||foo.com$~match-case", ErrNegatedOptionMatchCase},
		{"||foo.com$match-case", ErrMatchCaseWithoutFullRegex},
		{"||foo.com$image,match-case", ErrMatchCaseWithoutFullRegex},
		{"||foo.com$media,match-case,image", ErrMatchCaseWithoutFullRegex},
		{"||foo.com$~redirect", ErrNegatedRedirection},
		{"||foo.com$redirect", ErrEmptyRedirection},
		{"||foo.com$redirect=", ErrEmptyRedirection},
		{"||foo.com$~tag=abc", ErrNegatedTag},
		{"||foo.com$~document", ErrNegatedDocument},
		{"||foo.com$~generichide", ErrNegatedGenericHide},
		{"||foo.com$generichide", ErrGenericHideWithoutException},
		{`||foo.com$domain=foo|bar,csp=self bar "",image`, ErrCspWithContentType},
		{`||video.twimg.com/ext_tw_video/*/*.m3u8$domain=/^i[a-z]*\.strmrdr[a-z]+\..*/`, ErrNoSupportedDomains},
		{"||foo.com^$removeparam", ErrEmptyRemoveparam},
		{"||foo.com^$removeparam=", ErrEmptyRemoveparam},
		{"$~removeparam=test", ErrNegatedRemoveparam},
		{"@@||foo.com^$removeparam=test", ErrRemoveparamWithException},
		{"||foo.com^$removeparam=/abc.*/", ErrRemoveparamRegexUnsupported},
		{"||foo.com^$removeparam=test,redirect=test", ErrMultipleModifierOptions},
		{"||foo.com^$removeparam=test,removeparam=test2", ErrMultipleModifierOptions},
		{"||foo.com$genericblock", ErrUnrecognisedOption},
		{"||foo.com$inline-script", ErrUnrecognisedOption},
		{"||foo.com$popunder", ErrUnrecognisedOption},
		{"||foo.com$popup", ErrUnrecognisedOption},
		{"||foo.com$woot", ErrUnrecognisedOption},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f, err := Parse(tt.line, false, models.ParseOptions{})
			assert.Nil(t, f)
			require.ErrorIs(t, err, tt.err)

			var le *LineError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.line, le.Line)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestParseDebugKeepsRawLine(t *testing.T) {
	f, err := Parse("||foo.com^", false, models.ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, f.RawLine)

	assert.Equal(t, "||foo.com^", mustParse(t, "||foo.com^").RawLine)
}

func TestBadfilterID(t *testing.T) {
	tests := []struct {
		name      string
		filter    string
		badfilter string
		cancels   bool
	}{
		{name: "same rule", filter: "||foo.com^", badfilter: "||foo.com^$badfilter", cancels: true},
		{name: "same options", filter: "||foo.com^$script,domain=a.com", badfilter: "||foo.com^$script,domain=a.com,badfilter", cancels: true},
		{name: "option order", filter: "||foo.com^$domain=a.com|b.com", badfilter: "||foo.com^$badfilter,domain=b.com|a.com", cancels: true},
		{name: "different type", filter: "||foo.com^$script", badfilter: "||foo.com^$image,badfilter"},
		{name: "different pattern", filter: "||foo.com/ads", badfilter: "||foo.com/ad$badfilter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustParse(t, tt.filter)
			bad := mustParse(t, tt.badfilter)

			assert.NotEqual(t, f.ID, bad.ID)
			assert.Equal(t, f.ID, f.IDWithoutBadfilter())
			assert.Equal(t, tt.cancels, f.ID == bad.IDWithoutBadfilter())
		})
	}
}

func TestParseIDIgnoresRawLine(t *testing.T) {
	a := mustParse(t, "||Foo.com^")
	b := mustParse(t, "||foo.com^")
	assert.NotEqual(t, a.RawLine, b.RawLine)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.Equal(b))
}
