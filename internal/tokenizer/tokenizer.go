// Package tokenizer extracts the hashed tokens an external index uses to
// bucket network filters.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bnema/ublock-network-filters/internal/hashing"
	"github.com/bnema/ublock-network-filters/internal/models"
)

// MaxTokens caps the tokens produced from a single input
const MaxTokens = 256

var validParam = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

var (
	httpToken  = hashing.FastHash("http")
	httpsToken = hashing.FastHash("https")
)

func isAllowed(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsNumber(c) || c == '%'
}

// Tokenize hashes every word of s longer than one byte
func Tokenize(s string) []uint64 {
	var tokens []uint64
	inside := false
	start := 0

	for i, c := range s {
		if len(tokens) >= MaxTokens {
			return tokens
		}
		if isAllowed(c) {
			if !inside {
				inside = true
				start = i
			}
		} else if inside {
			inside = false
			if i-start > 1 {
				tokens = append(tokens, hashing.FastHash(s[start:i]))
			}
		}
	}

	if inside && len(s)-start > 1 && len(tokens) < MaxTokens {
		tokens = append(tokens, hashing.FastHash(s[start:]))
	}
	return tokens
}

// TokenizeFilter tokenizes a filter literal. Words touching a '*' are dropped,
// since the wildcard may extend them. skipFirst drops a word at offset 0 and
// skipLast drops a word running to the end of s.
func TokenizeFilter(s string, skipFirst, skipLast bool) []uint64 {
	var tokens []uint64
	inside := false
	start := 0
	var preceding rune

	for i, c := range s {
		if len(tokens) >= MaxTokens {
			return tokens
		}
		if isAllowed(c) {
			if !inside {
				inside = true
				start = i
			}
			continue
		}
		if inside {
			inside = false
			if (start != 0 || !skipFirst) && i-start > 1 && c != '*' && preceding != '*' {
				tokens = append(tokens, hashing.FastHash(s[start:i]))
			}
		}
		preceding = c
	}

	if !skipLast && inside && len(s)-start > 1 && preceding != '*' && len(tokens) < MaxTokens {
		tokens = append(tokens, hashing.FastHash(s[start:]))
	}
	return tokens
}

// FilterTokens returns the token sets under which f should be indexed.
// Usually one set; a filter with only allow-domains and no other tokens gets
// one set per domain.
func FilterTokens(f *models.NetworkFilter) [][]uint64 {
	var tokens []uint64

	if len(f.OptDomains) == 1 && !f.HasOptNotDomains() {
		tokens = append(tokens, f.OptDomains[0])
	}

	if f.Filter.Kind == models.PartSimple && !f.IsCompleteRegex() {
		skipLast := !f.IsRightAnchor()
		skipFirst := f.IsRightAnchor()
		tokens = append(tokens, TokenizeFilter(f.Filter.Parts[0], skipFirst, skipLast)...)
	}

	if !f.IsHostnameRegex() && f.Hostname != "" {
		tokens = append(tokens, Tokenize(f.Hostname)...)
	}

	if len(tokens) == 0 && f.IsRemoveparam() && validParam.MatchString(f.ModifierOption) {
		tokens = append(tokens, Tokenize(strings.ToLower(f.ModifierOption))...)
	}

	if len(tokens) == 0 && f.HasOptDomains() && !f.HasOptNotDomains() {
		sets := make([][]uint64, 0, len(f.OptDomains))
		for _, d := range f.OptDomains {
			sets = append(sets, []uint64{d})
		}
		return sets
	}

	if f.ForHTTP() {
		tokens = append(tokens, httpToken)
	} else if f.ForHTTPS() {
		tokens = append(tokens, httpsToken)
	}
	return [][]uint64{tokens}
}
