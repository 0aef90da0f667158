package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// ErrRegexParsing wraps engine compile failures. Such regexes never match.
var ErrRegexParsing = errors.New("regex parsing error")

// Kind is the outcome of compiling a filter part
type Kind int

const (
	KindMatchAll Kind = iota
	KindCompiled
	KindCompiledSet
	KindParsingError
)

func (k Kind) String() string {
	switch k {
	case KindMatchAll:
		return "match-all"
	case KindCompiled:
		return "compiled"
	case KindCompiledSet:
		return "compiled-set"
	default:
		return "parsing-error"
	}
}

// CompiledRegex is safe for concurrent use
type CompiledRegex struct {
	kind     Kind
	patterns []string
	re       *regexp.Regexp
	bt       *regexp2.Regexp
	err      error
}

func matchAll() *CompiledRegex {
	return &CompiledRegex{kind: KindMatchAll}
}

func parsingError(patterns []string, err error) *CompiledRegex {
	return &CompiledRegex{
		kind:     KindParsingError,
		patterns: patterns,
		err:      fmt.Errorf("%w: %v", ErrRegexParsing, err),
	}
}

// Kind reports how the regex was compiled
func (c *CompiledRegex) Kind() Kind {
	return c.kind
}

// Err is non-nil only for KindParsingError
func (c *CompiledRegex) Err() error {
	return c.err
}

// Backtracking reports whether the regexp2 engine backs this regex
func (c *CompiledRegex) Backtracking() bool {
	return c.bt != nil
}

// IsMatch tests s. Parsing errors and backtracking timeouts never match.
func (c *CompiledRegex) IsMatch(s string) bool {
	switch c.kind {
	case KindMatchAll:
		return true
	case KindCompiled, KindCompiledSet:
		if c.bt != nil {
			ok, err := c.bt.MatchString(s)
			return err == nil && ok
		}
		return c.re.MatchString(s)
	default:
		return false
	}
}

func (c *CompiledRegex) String() string {
	switch c.kind {
	case KindMatchAll:
		return ".*"
	case KindParsingError:
		return "ERROR"
	default:
		return strings.Join(c.patterns, " | ")
	}
}
