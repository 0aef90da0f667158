package compiler

import (
	"github.com/bnema/ublock-network-filters/internal/models"
)

// Stats tracks precompilation statistics
type Stats struct {
	Total       int
	Compiled    int
	MatchAll    int
	Backtracked int
	Errors      int
	SkipReasons map[string]int
}

// Skip reason constants
const (
	SkipRegexParsing = "regex-parsing-error"
	SkipEngineLimit  = "unsupported-regex-construct"
)

// NeedsRegex reports whether matching f goes through a compiled regex
func NeedsRegex(f *models.NetworkFilter) bool {
	return f.IsRegex() || f.IsCompleteRegex()
}

// Precompiler warms a RegexManager for a filter set and reports what compiled
type Precompiler struct {
	manager *RegexManager
	stats   Stats
}

// NewPrecompiler creates a precompiler backed by manager
func NewPrecompiler(manager *RegexManager) *Precompiler {
	return &Precompiler{
		manager: manager,
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// Stats returns precompilation statistics
func (p *Precompiler) Stats() Stats {
	return p.stats
}

// Precompile compiles the regex of every filter that needs one
func (p *Precompiler) Precompile(filters []*models.NetworkFilter) {
	for _, f := range filters {
		if !NeedsRegex(f) {
			continue
		}
		p.stats.Total++

		re := p.manager.GetOrCompile(f)
		switch re.Kind() {
		case KindMatchAll:
			p.stats.MatchAll++
		case KindParsingError:
			p.stats.Errors++
			reason := SkipRegexParsing
			if s, ok := f.Filter.StringView(); ok && f.IsCompleteRegex() && len(CheckEngineCompatibility(s)) > 0 {
				reason = SkipEngineLimit
			}
			p.stats.SkipReasons[reason]++
		default:
			p.stats.Compiled++
			if re.Backtracking() {
				p.stats.Backtracked++
			}
		}
	}
}
