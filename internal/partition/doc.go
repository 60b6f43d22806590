// Package partition implements the routing layer that maps one logical
// keyspace onto several independent shard trees.
//
// # Overview
//
// A Partitioner answers two questions: which shard owns a single key, and
// which shards a range scan must visit. Two interchangeable strategies are
// provided, with very different consequences for range queries:
//
//	┌────────────┬──────────────────────────┬───────────────────────────────┐
//	│            │ hash                     │ range                         │
//	├────────────┼──────────────────────────┼───────────────────────────────┤
//	│ point key  │ key mod NumShards        │ binary search over boundaries │
//	│ point load │ uniform                  │ can skew                      │
//	│ range scan │ all shards, then re-sort │ overlapping shards, clipped,  │
//	│            │ of merged results        │ concatenated in order         │
//	└────────────┴──────────────────────────┴───────────────────────────────┘
//
// Range boundaries are computed once from a representative key sample
// (equal-count slices of the sorted sample) and are immutable for the
// lifetime of the shard set. Re-sharding requires a full stop-the-world
// recompute and key redistribution, which this package does not attempt.
//
// Configuration errors (shard count below 1, an unknown strategy, or a range
// strategy without enough samples) are rejected at construction and never
// silently clamped.
package partition
