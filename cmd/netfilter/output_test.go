package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bnema/ublock-network-filters/internal/compiler"
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/parser"
)

func breakdownFor(t *testing.T, line string) Breakdown {
	t.Helper()
	f, err := parser.Parse(line, true, models.ParseOptions{})
	require.NoError(t, err)
	return NewBreakdown(f, compiler.NewRegexManager(compiler.Options{}, nil))
}

func TestNewBreakdown(t *testing.T) {
	b := breakdownFor(t, "||ads.example.com^*/banner$script,domain=example.org")

	assert.Equal(t, "||ads.example.com^*/banner$script,domain=example.org", b.Line)
	assert.Equal(t, "ads.example.com", b.Hostname)
	assert.Equal(t, "simple", b.PartKind)
	assert.Contains(t, b.Flags, "script")
	assert.Contains(t, b.Flags, "hostname-anchor")
	assert.Len(t, b.OptDomains, 1)
	assert.NotEmpty(t, b.Regex)
	assert.NotEmpty(t, b.Tokens)

	plain := breakdownFor(t, "||ads.example.com/path")
	assert.Empty(t, plain.Regex)
}

func TestWriteBreakdowns(t *testing.T) {
	breakdowns := []Breakdown{
		breakdownFor(t, "||ads.example.com^"),
		{Line: "bad$popup", Error: "unsupported option"},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBreakdowns(&buf, "json", breakdowns))

		var decoded []Breakdown
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, breakdowns, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBreakdowns(&buf, "yaml", breakdowns))

		var decoded []Breakdown
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, breakdowns, decoded)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBreakdowns(&buf, "text", breakdowns))
		assert.Contains(t, buf.String(), "hostname:  ads.example.com")
		assert.Contains(t, buf.String(), "ERROR: unsupported option")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeBreakdowns(&bytes.Buffer{}, "xml", breakdowns))
	})
}

func TestWriteJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	manifest := Manifest{
		Version:  "2026.10.19",
		Lists:    map[string]ListResult{"easylist": {Name: "easylist", FilterCount: 3}},
		Combined: CombinedInfo{TotalFilters: 3, Files: []string{"combined.nfb"}},
	}
	require.NoError(t, writeJSON(fs, "/out", "manifest.json", manifest))

	data, err := afero.ReadFile(fs, "/out/manifest.json")
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, manifest, decoded)
}
