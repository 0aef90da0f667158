// Package hashing provides the 64-bit hash shared by domain sets, tokens and
// request source hostnames.
package hashing

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// FastHash hashes a string. Every hash compared against another must come from here.
func FastHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// BinLookup reports whether v is in the sorted slice arr
func BinLookup(arr []uint64, v uint64) bool {
	i := sort.Search(len(arr), func(i int) bool { return arr[i] >= v })
	return i < len(arr) && arr[i] == v
}
