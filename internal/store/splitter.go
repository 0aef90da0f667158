package store

import (
	"fmt"

	"github.com/bnema/ublock-network-filters/internal/models"
)

// MaxFiltersPerFile bounds the size of one encoded shard
const MaxFiltersPerFile = 50000

// Shard is one output file worth of filters
type Shard struct {
	Name    string
	Filters []*models.NetworkFilter
}

// Splitter splits filters into shards of at most maxFilters
type Splitter struct {
	maxFilters int
}

// NewSplitter creates a splitter with the given max filters per file
func NewSplitter(maxFilters int) *Splitter {
	if maxFilters <= 0 {
		maxFilters = MaxFiltersPerFile
	}
	return &Splitter{maxFilters: maxFilters}
}

// Split divides filters into shards in input order. A set that fits in one
// shard keeps baseName; otherwise shards are named baseName-partN.
func (s *Splitter) Split(filters []*models.NetworkFilter, baseName string) []Shard {
	if len(filters) <= s.maxFilters {
		return []Shard{{Name: baseName, Filters: filters}}
	}

	numParts := (len(filters) + s.maxFilters - 1) / s.maxFilters
	shards := make([]Shard, 0, numParts)

	for i := 0; i < numParts; i++ {
		start := i * s.maxFilters
		end := min(start+s.maxFilters, len(filters))

		shards = append(shards, Shard{
			Name:    fmt.Sprintf("%s-part%d", baseName, i+1),
			Filters: filters[start:end],
		})
	}

	return shards
}
