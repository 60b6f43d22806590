package partition

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/slices"
)

// RangePartitioner assigns each shard a contiguous key interval. The
// boundary table is computed once, from a sample of the expected key
// distribution, and never mutated afterwards.
type RangePartitioner struct {
	numShards int

	// cuts[i] is the first key owned by shard i+1, so shard i covers
	// [cuts[i-1], cuts[i]). The outermost intervals extend to the ends of
	// the int64 domain: every key has exactly one owner, sampled or not.
	cuts []int64
}

// NewRange derives equal-count shard boundaries from sampleKeys. At least
// one sample per shard is required to place the cut points.
func NewRange(numShards int, sampleKeys []int64) (*RangePartitioner, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("partition: need at least 1 shard, got %d", numShards)
	}
	if len(sampleKeys) < numShards {
		return nil, fmt.Errorf("partition: range strategy needs at least %d sample keys, got %d",
			numShards, len(sampleKeys))
	}

	sorted := slices.Clone(sampleKeys)
	slices.Sort(sorted)

	size := len(sorted) / numShards
	cuts := make([]int64, 0, numShards-1)
	for i := 1; i < numShards; i++ {
		cuts = append(cuts, sorted[i*size])
	}
	return &RangePartitioner{numShards: numShards, cuts: cuts}, nil
}

// NumShards returns the fixed shard count.
func (p *RangePartitioner) NumShards() int { return p.numShards }

// ShardForKey binary-searches the boundary table.
func (p *RangePartitioner) ShardForKey(key int64) int {
	return sort.Search(len(p.cuts), func(i int) bool { return key < p.cuts[i] })
}

// ShardsForRange returns only the shards whose interval overlaps [lo, hi],
// each clipped to the overlap, in ascending interval order. Because shard
// intervals are globally ordered, concatenating the per-shard results
// reproduces the full scan with no re-sort.
func (p *RangePartitioner) ShardsForRange(lo, hi int64) []ShardRange {
	if lo > hi {
		return nil
	}
	first := p.ShardForKey(lo)
	last := p.ShardForKey(hi)

	out := make([]ShardRange, 0, last-first+1)
	for s := first; s <= last; s++ {
		r := KeyRange{Lo: lo, Hi: hi}
		if s > first {
			r.Lo = p.cuts[s-1]
		}
		if s < last {
			r.Hi = p.cuts[s] - 1
		}
		if r.Lo > r.Hi {
			// Interval emptied by duplicate cut points in a skewed sample.
			continue
		}
		out = append(out, ShardRange{Shard: s, KeyRange: r})
	}
	return out
}

// Ordered reports true: shard intervals are disjoint and globally ordered.
func (p *RangePartitioner) Ordered() bool { return true }

// Intervals returns the boundary table as one inclusive interval per shard,
// in shard order. The end intervals are reported against the int64 domain
// limits.
func (p *RangePartitioner) Intervals() []KeyRange {
	out := make([]KeyRange, p.numShards)
	for i := range out {
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if i > 0 {
			lo = p.cuts[i-1]
		}
		if i < len(p.cuts) {
			hi = p.cuts[i] - 1
		}
		out[i] = KeyRange{Lo: lo, Hi: hi}
	}
	return out
}
