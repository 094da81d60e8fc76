package stripemap

import (
	"fmt"
	"math"
	"strings"
)

// Stats returns statistics for the Table. It read-locks every stripe for
// the duration of the scan, so the result is a consistent snapshot, but
// it is an O(N) operation meant for diagnostics and debugging.
func (t *Table[K, V]) Stats() *TableStats {
	t.locks.lockAll(false)
	defer t.locks.unlockAll(false)

	stats := &TableStats{
		Buckets:       len(t.buckets),
		Stripes:       len(t.locks),
		Counter:       int(t.count.Load()),
		MinChain:      math.MaxInt,
		MaxLoadFactor: t.maxLoadFactor,
		TotalRehashes: t.rehashes.Load(),
		RehashEnabled: t.IsRehashEnabled(),
	}
	for i := range t.buckets {
		size := t.buckets[i].size
		stats.Size += size
		if size == 0 {
			stats.EmptyBuckets++
		}
		stats.MinChain = min(stats.MinChain, size)
		stats.MaxChain = max(stats.MaxChain, size)
	}
	stats.LoadFactor = float64(stats.Size) / float64(stats.Buckets)
	return stats
}

// TableStats is Table statistics.
//
// Warning: table statistics are intended to be used for diagnostic
// purposes, not for production code. Fields may change between minor
// releases.
type TableStats struct {
	// Buckets is the length of the bucket array.
	Buckets int
	// Stripes is the number of stripe locks.
	Stripes int
	// EmptyBuckets is the number of buckets that hold no nodes.
	EmptyBuckets int
	// Size is the sum of all bucket sizes.
	Size int
	// Counter is the table's element counter. It always equals Size.
	Counter int
	// MinChain is the length of the shortest bucket chain.
	MinChain int
	// MaxChain is the length of the longest bucket chain.
	MaxChain int
	// LoadFactor is Size/Buckets.
	LoadFactor float64
	// MaxLoadFactor is the configured rehash threshold.
	MaxLoadFactor float32
	// TotalRehashes is the number of times the bucket array grew.
	TotalRehashes uint32
	// RehashEnabled reports whether inserts may trigger a rehash.
	RehashEnabled bool
}

// String returns string representation of table stats.
func (s *TableStats) String() string {
	var sb strings.Builder
	sb.WriteString("TableStats{\n")
	sb.WriteString(fmt.Sprintf("Buckets:       %d\n", s.Buckets))
	sb.WriteString(fmt.Sprintf("Stripes:       %d\n", s.Stripes))
	sb.WriteString(fmt.Sprintf("EmptyBuckets:  %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Size:          %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:       %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("MinChain:      %d\n", s.MinChain))
	sb.WriteString(fmt.Sprintf("MaxChain:      %d\n", s.MaxChain))
	sb.WriteString(fmt.Sprintf("LoadFactor:    %.3f\n", s.LoadFactor))
	sb.WriteString(fmt.Sprintf("MaxLoadFactor: %.3f\n", s.MaxLoadFactor))
	sb.WriteString(fmt.Sprintf("TotalRehashes: %d\n", s.TotalRehashes))
	sb.WriteString(fmt.Sprintf("RehashEnabled: %t\n", s.RehashEnabled))
	sb.WriteString("}\n")
	return sb.String()
}
