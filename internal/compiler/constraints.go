package compiler

// RE2 Engine Constraints
//
// Generated patterns only use constructs RE2 supports. Author-supplied /regex/
// filters are written for JavaScript engines and sometimes use features RE2
// refuses to compile:
//
// - (?=...) (?!...)    lookahead
// - (?<=...) (?<!...)  lookbehind
// - \1 .. \9           backreferences
// - (?>...)            atomic groups
// - x*+ x++ x?+        possessive quantifiers
//
// Such filters are a permanent non-match unless backtracking is enabled, in
// which case regexp2 compiles them with a per-match timeout.

import (
	"regexp"
	"strings"
)

var (
	reBackreference = regexp.MustCompile(`\\[1-9]`)
	rePossessive    = regexp.MustCompile(`[*+?}]\+`)
)

// EngineIssue describes a construct RE2 cannot compile
type EngineIssue struct {
	Pattern string
	Issue   string
	// Backtrackable is true when regexp2 can compile the construct
	Backtrackable bool
}

// CheckEngineCompatibility lists the RE2-incompatible constructs in pattern
func CheckEngineCompatibility(pattern string) []EngineIssue {
	var issues []EngineIssue

	assertions := []struct {
		match string
		name  string
	}{
		{`(?<!`, "negative lookbehind"},
		{`(?<=`, "positive lookbehind"},
		{`(?=`, "positive lookahead"},
		{`(?!`, "negative lookahead"},
		{`(?>`, "atomic group"},
	}
	for _, a := range assertions {
		if strings.Contains(pattern, a.match) {
			issues = append(issues, EngineIssue{
				Pattern:       pattern,
				Issue:         a.name,
				Backtrackable: true,
			})
		}
	}

	for _, m := range reBackreference.FindAllString(pattern, -1) {
		issues = append(issues, EngineIssue{
			Pattern:       pattern,
			Issue:         "backreference: " + m,
			Backtrackable: true,
		})
	}

	for _, m := range rePossessive.FindAllString(pattern, -1) {
		issues = append(issues, EngineIssue{
			Pattern: pattern,
			Issue:   "possessive quantifier: " + m,
		})
	}

	return issues
}

// NeedsBacktracking is true when pattern has issues and regexp2 can handle all of them
func NeedsBacktracking(pattern string) bool {
	issues := CheckEngineCompatibility(pattern)
	if len(issues) == 0 {
		return false
	}
	for _, issue := range issues {
		if !issue.Backtrackable {
			return false
		}
	}
	return true
}

// DescribeIssues returns a human-readable description of all issues
func DescribeIssues(issues []EngineIssue) string {
	if len(issues) == 0 {
		return ""
	}
	var parts []string
	for _, issue := range issues {
		parts = append(parts, issue.Issue)
	}
	return strings.Join(parts, ", ")
}
