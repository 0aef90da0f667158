package compiler

import (
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/bnema/ublock-network-filters/internal/models"
)

// Separator class for '^': anything but a letter, a digit or one of _ - . %.
// Spelled with Unicode classes since \w and \d are ASCII-only in RE2.
const separatorClass = `[^\p{L}\p{M}\p{N}\p{Pc}._%-]`

const restrSeparator = `(?:` + separatorClass + `)`

var (
	// Characters to escape in regex (except * and ^)
	reSpecialChars = regexp.MustCompile(`([\|\.\$\+\?\{\}\(\)\[\]])`)
	// Wildcard
	reWildcard = regexp.MustCompile(`\*`)
	// Separator followed by anything
	reSeparator = regexp.MustCompile(`\^(.)`)
	// Separator at the end of the pattern also matches the end of the url
	reSeparatorEOL = regexp.MustCompile(`\^$`)
)

// Options tunes regex compilation
type Options struct {
	// Backtracking compiles author regexes using lookaround or backreferences
	// with regexp2 instead of rejecting them
	Backtracking bool
	// MatchTimeout bounds a single backtracking match. 0 means no limit.
	MatchTimeout time.Duration
}

// PatternToRegex converts one filter literal to regex source
func PatternToRegex(pattern string, isRightAnchor, isLeftAnchor bool) string {
	s := reSpecialChars.ReplaceAllString(pattern, `\${1}`)
	s = reWildcard.ReplaceAllString(s, `.*`)
	s = reSeparator.ReplaceAllString(s, restrSeparator+`${1}`)
	s = reSeparatorEOL.ReplaceAllString(s, `(?:`+separatorClass+`|$$)`)

	if isLeftAnchor {
		s = "^" + s
	}
	if isRightAnchor {
		s += "$"
	}
	return s
}

// unwrapCompleteRegex strips the /.../ delimiters and unescapes \/ and \:
func unwrapCompleteRegex(pattern string) string {
	inner := pattern[1 : len(pattern)-1]
	inner = strings.ReplaceAll(inner, `\/`, "/")
	return strings.ReplaceAll(inner, `\:`, ":")
}

// CompileRegex builds the regex backing a filter part
func CompileRegex(part models.FilterPart, isRightAnchor, isLeftAnchor, isCompleteRegex bool) *CompiledRegex {
	return Compile(part, isRightAnchor, isLeftAnchor, isCompleteRegex, Options{})
}

// Compile is CompileRegex with engine options
func Compile(part models.FilterPart, isRightAnchor, isLeftAnchor, isCompleteRegex bool, opts Options) *CompiledRegex {
	filters := part.Patterns()
	patterns := make([]string, 0, len(filters))

	for _, f := range filters {
		// An empty alternative makes the whole set match anything
		if f == "" {
			return matchAll()
		}
		if isCompleteRegex && len(f) >= 2 {
			patterns = append(patterns, unwrapCompleteRegex(f))
		} else {
			patterns = append(patterns, PatternToRegex(f, isRightAnchor, isLeftAnchor))
		}
	}

	switch len(patterns) {
	case 0:
		return matchAll()
	case 1:
		return compileSource(patterns, patterns[0], KindCompiled, isCompleteRegex, opts)
	default:
		alternatives := make([]string, len(patterns))
		for i, p := range patterns {
			alternatives[i] = "(?:" + p + ")"
		}
		return compileSource(patterns, strings.Join(alternatives, "|"), KindCompiledSet, isCompleteRegex, opts)
	}
}

func compileSource(patterns []string, source string, kind Kind, complete bool, opts Options) *CompiledRegex {
	re, err := regexp.Compile(source)
	if err == nil {
		return &CompiledRegex{kind: kind, patterns: patterns, re: re}
	}

	if complete && opts.Backtracking && NeedsBacktracking(source) {
		bt, btErr := regexp2.Compile(source, regexp2.ECMAScript)
		if btErr == nil {
			if opts.MatchTimeout > 0 {
				bt.MatchTimeout = opts.MatchTimeout
			}
			return &CompiledRegex{kind: kind, patterns: patterns, bt: bt}
		}
		err = btErr
	}

	return parsingError(patterns, err)
}
