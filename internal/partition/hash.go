package partition

import "fmt"

// HashPartitioner assigns keys to shards by key mod NumShards. The mapping
// is a pure, deterministic function of the key and the shard count.
type HashPartitioner struct {
	numShards int
}

// NewHash creates a hash partitioner over numShards shards.
func NewHash(numShards int) (*HashPartitioner, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("partition: need at least 1 shard, got %d", numShards)
	}
	return &HashPartitioner{numShards: numShards}, nil
}

// NumShards returns the fixed shard count.
func (p *HashPartitioner) NumShards() int { return p.numShards }

// ShardForKey returns key mod NumShards, normalized so that negative keys
// still land in [0, NumShards).
func (p *HashPartitioner) ShardForKey(key int64) int {
	s := int(key % int64(p.numShards))
	if s < 0 {
		s += p.numShards
	}
	return s
}

// ShardsForRange returns every shard with the unclipped bounds: under modulo
// routing a contiguous key range maps to an arbitrary subset of shards, so
// the only safe answer is all of them. The caller must merge and re-sort the
// partial results.
func (p *HashPartitioner) ShardsForRange(lo, hi int64) []ShardRange {
	if lo > hi {
		return nil
	}
	out := make([]ShardRange, p.numShards)
	for i := range out {
		out[i] = ShardRange{Shard: i, KeyRange: KeyRange{Lo: lo, Hi: hi}}
	}
	return out
}

// Ordered reports false: hash routing has no range locality.
func (p *HashPartitioner) Ordered() bool { return false }
