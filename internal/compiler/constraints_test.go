package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEngineCompatibility(t *testing.T) {
	tests := []struct {
		name         string
		pattern      string
		wantIssues   []string
		backtracking bool
	}{
		{
			name:    "plain regex",
			pattern: `^https?://ads\.[a-z]+/`,
		},
		{
			name:         "negative lookahead",
			pattern:      `/(?!static/)`,
			wantIssues:   []string{"negative lookahead"},
			backtracking: true,
		},
		{
			name:         "lookbehind",
			pattern:      `(?<=ads)\.js`,
			wantIssues:   []string{"positive lookbehind"},
			backtracking: true,
		},
		{
			name:         "negative lookbehind and lookahead",
			pattern:      `(?<!cdn)\.ads(?=/)`,
			wantIssues:   []string{"negative lookbehind", "positive lookahead"},
			backtracking: true,
		},
		{
			name:         "backreference",
			pattern:      `(a)\1`,
			wantIssues:   []string{`backreference: \1`},
			backtracking: true,
		},
		{
			name:       "possessive",
			pattern:    `a*+b`,
			wantIssues: []string{"possessive quantifier: *+"},
		},
		{
			name:       "possessive with lookahead",
			pattern:    `(?=x)a++`,
			wantIssues: []string{"positive lookahead", "possessive quantifier: ++"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := CheckEngineCompatibility(tt.pattern)

			var got []string
			for _, issue := range issues {
				got = append(got, issue.Issue)
				assert.Equal(t, tt.pattern, issue.Pattern)
			}
			assert.Equal(t, tt.wantIssues, got)
			assert.Equal(t, tt.backtracking, NeedsBacktracking(tt.pattern))
		})
	}
}

func TestDescribeIssues(t *testing.T) {
	assert.Equal(t, "", DescribeIssues(nil))
	assert.Equal(t, "atomic group, backreference: \\2",
		DescribeIssues(CheckEngineCompatibility(`(?>a)(b)(c)\2`)))
}
