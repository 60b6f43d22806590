// Package bptree implements the in-memory ordered index at the core of the
// sharded storage layer: a B+ tree over int64 keys and opaque byte-slice
// values, supporting point lookup, inclusive range scans and
// insert-with-split.
//
// # Overview
//
// Values live only in the leaves. Internal nodes carry bare separator keys
// that bound their children's intervals, and all leaves sit at the same
// depth because splits propagate upward uniformly. Leaves are additionally
// chained left to right, so a range scan costs one root-to-leaf descent plus
// a walk along the chain.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                    Tree                       │
//	│  order (max fan-out), root, size              │
//	├──────────────────────────────────────────────┤
//	│              internalNode                     │
//	│   separators: [k1, k2, ...]                   │
//	│   children:   child i covers [k(i-1), k(i))   │
//	├──────────────────────────────────────────────┤
//	│   leafNode ──▶ leafNode ──▶ leafNode ──▶ nil  │
//	│   sorted (key, value) pairs, no duplicates    │
//	└──────────────────────────────────────────────┘
//
// # Split rules
//
// A node overflows when an insert leaves it with more than order-1 keys.
//
// Leaf split: the upper half (from index ceil(order/2)) moves to a new leaf
// that is spliced into the chain after the original. The new leaf's first
// key is promoted to the parent as a separator and is kept in the leaf.
//
// Internal split: the separator at index ceil(order/2)-1 is promoted and
// removed from both halves. Children moved to the new right node are
// reparented before the split returns, so parent pointers never dangle.
//
// The two promotion rules differ on purpose; conflating them is the classic
// B+ tree implementation mistake and both paths are tested independently.
//
// # Concurrency
//
// A Tree performs no locking. The shard runtime gives each worker goroutine
// exclusive ownership of one Tree, which is the concurrency contract for
// this package: single writer, no shared mutation.
//
// # Limitations
//
//   - No deletion: nodes are created by splits and retired only when a new
//     root replaces them.
//   - No persistence: the index is memory-resident only.
//   - Keys are int64 scalars; composite keys are out of scope.
package bptree
