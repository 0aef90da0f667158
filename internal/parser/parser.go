package parser

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/bnema/ublock-network-filters/internal/logging"
	"github.com/bnema/ublock-network-filters/internal/models"
)

// Parser parses ABP/uBlock filter lists into network filters
type Parser struct {
	stats   Stats
	format  models.ListFormat
	debug   bool
	workers int
	logger  *slog.Logger
}

// Stats tracks parsing statistics
type Stats struct {
	Total       int
	Network     int
	Exception   int
	BadFilter   int
	Cosmetic    int
	Comments    int
	Unsupported int
	SkipReasons map[string]int // Detailed breakdown of skipped lines
}

// SkipReason constants for lines that never reach the network parser
const (
	SkipCosmetic   = "cosmetic (##, #@#, #?#, #$#)"
	SkipHostsEntry = "hosts entry without blocking address"
)

var cosmeticMarkers = []string{"##", "#@#", "#?#", "#@?#", "#$#", "#@$#", "#%#", "#@%#"}

// Option configures a Parser
type Option func(*Parser)

// WithFormat selects standard or hosts list syntax
func WithFormat(format models.ListFormat) Option {
	return func(p *Parser) { p.format = format }
}

// WithDebug keeps raw lines on parsed filters
func WithDebug(debug bool) Option {
	return func(p *Parser) { p.debug = debug }
}

// WithWorkers bounds parsing concurrency. 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Parser) { p.workers = n }
}

// WithLogger sets where skipped lines are reported
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a new parser
func New(opts ...Option) *Parser {
	p := &Parser{
		format: models.FormatStandard,
		logger: logging.Nop(),
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// skip records a skipped line with reason
func (p *Parser) skip(reason string) {
	p.stats.Unsupported++
	p.stats.SkipReasons[reason]++
}

type lineResult struct {
	filter *models.NetworkFilter
	err    error
}

// Parse reads list content and returns the network filters it contains, in
// list order. Lines that fail to parse are counted and skipped.
func (p *Parser) Parse(r io.Reader) ([]*models.NetworkFilter, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.stats.Total++

		if p.isComment(line) {
			p.stats.Comments++
			continue
		}
		if isCosmetic(line) {
			p.stats.Cosmetic++
			p.skip(SkipCosmetic)
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mapper := iter.Mapper[string, lineResult]{MaxGoroutines: p.workers}
	results := mapper.Map(lines, func(line *string) lineResult {
		f, err := p.parseLine(*line)
		return lineResult{filter: f, err: err}
	})

	filters := make([]*models.NetworkFilter, 0, len(results))
	for i, res := range results {
		if res.err != nil {
			reason := skipReason(res.err)
			p.skip(reason)
			p.logger.Debug("skipping filter", "line", lines[i], "reason", reason)
			continue
		}
		if res.filter == nil {
			continue
		}

		switch {
		case res.filter.IsBadFilter():
			p.stats.BadFilter++
		case res.filter.IsException():
			p.stats.Exception++
		default:
			p.stats.Network++
		}
		filters = append(filters, res.filter)
	}

	return filters, nil
}

func (p *Parser) parseLine(line string) (*models.NetworkFilter, error) {
	if p.format == models.FormatHosts {
		host, ok := hostsLineHost(line)
		if !ok {
			return nil, errHostsEntry
		}
		return ParseHostsStyle(host, p.debug)
	}
	return Parse(line, p.debug, models.ParseOptions{Format: p.format})
}

var errHostsEntry = errors.New(SkipHostsEntry)

// isComment checks for list comments and headers
func (p *Parser) isComment(line string) bool {
	if strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
		return true
	}
	return p.format == models.FormatHosts && strings.HasPrefix(line, "#")
}

func isCosmetic(line string) bool {
	for _, m := range cosmeticMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// skipReason reduces a parse error to its sentinel text
func skipReason(err error) string {
	var le *LineError
	if errors.As(err, &le) {
		return le.Err.Error()
	}
	return err.Error()
}
