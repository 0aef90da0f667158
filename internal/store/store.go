// Package store persists compiled filter sets as sharded codec files.
package store

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/bnema/ublock-network-filters/internal/codec"
	"github.com/bnema/ublock-network-filters/internal/models"
)

// Ext is the file extension of encoded shards
const Ext = ".nfb"

// Save writes filters under dir as one or more shards named after name and
// returns the written paths in shard order
func Save(fs afero.Fs, dir, name string, filters []*models.NetworkFilter, maxPerShard int) ([]string, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	shards := NewSplitter(maxPerShard).Split(filters, name)
	paths := make([]string, 0, len(shards))

	for _, shard := range shards {
		path := filepath.Join(dir, shard.Name+Ext)
		if err := afero.WriteFile(fs, path, codec.MarshalFilters(shard.Filters), 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// Load reads and concatenates the given shards in order
func Load(fs afero.Fs, paths ...string) ([]*models.NetworkFilter, error) {
	var filters []*models.NetworkFilter
	for _, path := range paths {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		decoded, err := codec.UnmarshalFilters(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		filters = append(filters, decoded...)
	}
	return filters, nil
}

// ShardPaths finds the shards Save wrote for name under dir
func ShardPaths(fs afero.Fs, dir, name string) ([]string, error) {
	single := filepath.Join(dir, name+Ext)
	if ok, err := afero.Exists(fs, single); err != nil {
		return nil, err
	} else if ok {
		return []string{single}, nil
	}

	paths, err := afero.Glob(fs, filepath.Join(dir, name+"-part*"+Ext))
	if err != nil {
		return nil, err
	}
	// part10 sorts after part9
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}
