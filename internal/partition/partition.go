package partition

import "fmt"

// Strategy selects how keys are mapped to shards.
type Strategy string

const (
	// StrategyHash routes each key by key mod NumShards. Point load spreads
	// uniformly, but a contiguous key range lands on an effectively
	// arbitrary subset of shards, so range queries fan out to all of them.
	StrategyHash Strategy = "hash"

	// StrategyRange routes by precomputed contiguous key intervals. Range
	// queries touch only the overlapping shards, at the cost of potential
	// load skew.
	StrategyRange Strategy = "range"
)

// KeyRange is an inclusive key interval.
type KeyRange struct {
	Lo int64
	Hi int64
}

// ShardRange is the portion of a query range that one shard must answer.
type ShardRange struct {
	Shard int
	KeyRange
}

// Partitioner maps a global key, or a key range, to shard identifiers.
// Implementations are immutable after construction and safe for concurrent
// use; changing boundaries means building a new Partitioner and
// redistributing keys, which is the caller's problem.
type Partitioner interface {
	// NumShards returns the fixed shard count.
	NumShards() int

	// ShardForKey returns the shard owning key, always in [0, NumShards).
	ShardForKey(key int64) int

	// ShardsForRange returns the shards a scan of [lo, hi] must visit,
	// together with the bounds each shard should be asked for. An empty
	// result means the range itself is empty (lo > hi).
	ShardsForRange(lo, hi int64) []ShardRange

	// Ordered reports whether ShardsForRange returns disjoint sub-ranges in
	// ascending global key order, letting the caller concatenate per-shard
	// results without a re-sort.
	Ordered() bool
}

// Config carries the partitioning parameters supplied by the caller.
type Config struct {
	NumShards int
	Strategy  Strategy

	// SampleKeys is a representative key distribution used to place the
	// shard boundaries. Range strategy only.
	SampleKeys []int64
}

// New validates cfg and builds the partitioner for the selected strategy.
// Invalid configuration is rejected, never silently clamped.
func New(cfg Config) (Partitioner, error) {
	switch cfg.Strategy {
	case StrategyHash:
		return NewHash(cfg.NumShards)
	case StrategyRange:
		return NewRange(cfg.NumShards, cfg.SampleKeys)
	default:
		return nil, fmt.Errorf("partition: unknown strategy %q", cfg.Strategy)
	}
}
