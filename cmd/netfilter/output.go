package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bnema/ublock-network-filters/internal/compiler"
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/tokenizer"
)

// Breakdown is the printable form of a parsed filter
type Breakdown struct {
	Line          string     `json:"line" yaml:"line"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty"`
	ID            string     `json:"id,omitempty" yaml:"id,omitempty"`
	Flags         []string   `json:"flags,omitempty" yaml:"flags,omitempty"`
	PartKind      string     `json:"part_kind,omitempty" yaml:"part_kind,omitempty"`
	Patterns      []string   `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Hostname      string     `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	OptDomains    []string   `json:"opt_domains,omitempty" yaml:"opt_domains,omitempty"`
	OptNotDomains []string   `json:"opt_not_domains,omitempty" yaml:"opt_not_domains,omitempty"`
	Modifier      string     `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Tag           string     `json:"tag,omitempty" yaml:"tag,omitempty"`
	Regex         string     `json:"regex,omitempty" yaml:"regex,omitempty"`
	Tokens        [][]string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

var partKindNames = map[models.PartKind]string{
	models.PartEmpty:  "empty",
	models.PartSimple: "simple",
	models.PartAnyOf:  "any-of",
}

// NewBreakdown describes f. The regex is only compiled for filters that need one.
func NewBreakdown(f *models.NetworkFilter, manager *compiler.RegexManager) Breakdown {
	b := Breakdown{
		Line:          f.String(),
		ID:            fmt.Sprintf("%016x", f.ID),
		Flags:         strings.Split(f.Mask.String(), "|"),
		PartKind:      partKindNames[f.Filter.Kind],
		Patterns:      f.Filter.Patterns(),
		Hostname:      f.Hostname,
		OptDomains:    hexHashes(f.OptDomains),
		OptNotDomains: hexHashes(f.OptNotDomains),
		Modifier:      f.ModifierOption,
		Tag:           f.Tag,
	}
	if compiler.NeedsRegex(f) {
		b.Regex = manager.GetOrCompile(f).String()
	}
	for _, set := range tokenizer.FilterTokens(f) {
		b.Tokens = append(b.Tokens, hexHashes(set))
	}
	return b
}

func writeBreakdowns(w io.Writer, format string, breakdowns []Breakdown) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdowns)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(breakdowns)
	case "text", "":
		for _, b := range breakdowns {
			writeBreakdownText(w, b)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeBreakdownText(w io.Writer, b Breakdown) {
	fmt.Fprintln(w, b.Line)
	if b.Error != "" {
		fmt.Fprintf(w, "  ERROR: %s\n\n", b.Error)
		return
	}
	fmt.Fprintf(w, "  id:        %s\n", b.ID)
	fmt.Fprintf(w, "  flags:     %s\n", strings.Join(b.Flags, " "))
	fmt.Fprintf(w, "  part:      %s %q\n", b.PartKind, b.Patterns)
	if b.Hostname != "" {
		fmt.Fprintf(w, "  hostname:  %s\n", b.Hostname)
	}
	if len(b.OptDomains) > 0 {
		fmt.Fprintf(w, "  domains:   %s\n", strings.Join(b.OptDomains, " "))
	}
	if len(b.OptNotDomains) > 0 {
		fmt.Fprintf(w, "  ~domains:  %s\n", strings.Join(b.OptNotDomains, " "))
	}
	if b.Modifier != "" {
		fmt.Fprintf(w, "  modifier:  %s\n", b.Modifier)
	}
	if b.Tag != "" {
		fmt.Fprintf(w, "  tag:       %s\n", b.Tag)
	}
	if b.Regex != "" {
		fmt.Fprintf(w, "  regex:     %s\n", b.Regex)
	}
	for i, set := range b.Tokens {
		fmt.Fprintf(w, "  tokens %d:  %s\n", i+1, strings.Join(set, " "))
	}
	fmt.Fprintln(w)
}

func hexHashes(hashes []uint64) []string {
	if len(hashes) == 0 {
		return nil
	}
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = fmt.Sprintf("%016x", h)
	}
	return out
}

func formatHashes(hashes []uint64) string {
	if len(hashes) == 0 {
		return "(none)"
	}
	return strings.Join(hexHashes(hashes), " ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(fs afero.Fs, dir, filename string, data any) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ListResult contains parse results for a single list
type ListResult struct {
	Name         string `json:"name"`
	Path         string `json:"source_path"`
	Format       string `json:"format,omitempty"`
	FilterCount  int    `json:"filter_count"`
	SkippedCount int    `json:"skipped_count"`
}

// Manifest contains metadata about the compiled output
type Manifest struct {
	Version     string                `json:"version"`
	GeneratedAt string                `json:"generated_at"`
	Lists       map[string]ListResult `json:"lists"`
	Combined    CombinedInfo          `json:"combined"`
}

// CombinedInfo contains combined file info
type CombinedInfo struct {
	TotalFilters int      `json:"total_filters"`
	Files        []string `json:"files"`
}
