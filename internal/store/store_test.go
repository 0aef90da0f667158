package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ublock-network-filters/internal/codec"
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/parser"
)

func makeFilters(t *testing.T, n int) []*models.NetworkFilter {
	t.Helper()
	filters := make([]*models.NetworkFilter, 0, n)
	for i := 0; i < n; i++ {
		f, err := parser.Parse(fmt.Sprintf("||ads%d.example.com^", i), true, models.ParseOptions{})
		require.NoError(t, err)
		filters = append(filters, f)
	}
	return filters
}

func TestSplitter(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		max       int
		wantNames []string
		wantSizes []int
	}{
		{name: "fits in one", count: 3, max: 5, wantNames: []string{"list"}, wantSizes: []int{3}},
		{name: "exact fit", count: 4, max: 4, wantNames: []string{"list"}, wantSizes: []int{4}},
		{name: "two parts", count: 5, max: 3, wantNames: []string{"list-part1", "list-part2"}, wantSizes: []int{3, 2}},
		{name: "default max", count: 2, max: 0, wantNames: []string{"list"}, wantSizes: []int{2}},
		{name: "empty", count: 0, max: 3, wantNames: []string{"list"}, wantSizes: []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shards := NewSplitter(tt.max).Split(makeFilters(t, tt.count), "list")

			var names []string
			var sizes []int
			for _, s := range shards {
				names = append(names, s.Name)
				sizes = append(sizes, len(s.Filters))
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	filters := makeFilters(t, 7)

	paths, err := Save(fs, "/out", "easylist", filters, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/out", "easylist-part1"+Ext),
		filepath.Join("/out", "easylist-part2"+Ext),
		filepath.Join("/out", "easylist-part3"+Ext),
	}, paths)

	found, err := ShardPaths(fs, "/out", "easylist")
	require.NoError(t, err)
	assert.Equal(t, paths, found)

	loaded, err := Load(fs, found...)
	require.NoError(t, err)
	assert.Equal(t, filters, loaded)
}

func TestSaveSingleShard(t *testing.T) {
	fs := afero.NewMemMapFs()
	filters := makeFilters(t, 2)

	paths, err := Save(fs, "/out", "small", filters, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	found, err := ShardPaths(fs, "/out", "small")
	require.NoError(t, err)
	assert.Equal(t, paths, found)
}

func TestShardPathsOrdering(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, i := range []int{10, 2, 1, 11, 9} {
		path := filepath.Join("/out", fmt.Sprintf("big-part%d%s", i, Ext))
		require.NoError(t, afero.WriteFile(fs, path, codec.MarshalFilters(nil), 0644))
	}

	paths, err := ShardPaths(fs, "/out", "big")
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"big-part1.nfb", "big-part2.nfb", "big-part9.nfb", "big-part10.nfb", "big-part11.nfb",
	}, names)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/bad.nfb", []byte{0xff, 0xff}, 0644))

	_, err := Load(fs, "/out/missing.nfb")
	assert.Error(t, err)

	_, err = Load(fs, "/out/bad.nfb")
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}
