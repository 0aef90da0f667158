package parser

import "github.com/bnema/ublock-network-filters/internal/models"

// Deduplicate drops repeated filters, keeping the first of each id, then
// applies $badfilter: every filter cancelled by a badfilter rule is removed
// along with the badfilter rules themselves.
func Deduplicate(filters []*models.NetworkFilter) []*models.NetworkFilter {
	cancelled := make(map[uint64]bool)
	for _, f := range filters {
		if f.IsBadFilter() {
			cancelled[f.IDWithoutBadfilter()] = true
		}
	}

	seen := make(map[uint64]bool)
	result := make([]*models.NetworkFilter, 0, len(filters))

	for _, f := range filters {
		if f.IsBadFilter() || cancelled[f.ID] {
			continue
		}
		if !seen[f.ID] {
			seen[f.ID] = true
			result = append(result, f)
		}
	}

	return result
}
