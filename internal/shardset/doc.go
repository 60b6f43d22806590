// Package shardset implements the shard runtime: a coordinator that spreads
// one logical keyspace across several isolated B+ trees and merges their
// results.
//
// # Overview
//
// Each shard is one worker goroutine exclusively owning one bptree.Tree.
// Shards share no memory; the only communication paths are the two
// one-directional batch streams into each worker and the per-request reply
// channels back out. Isolation is the contract, not an implementation
// accident: it is what lets the trees run without any locks.
//
// # Data flow
//
//	client ──▶ Partitioner ──▶ per-shard batches ──▶ workers ──▶ trees
//	                                                    │
//	client ◀──────────── coordinator merge ◀────────────┘
//
// # Batch protocol
//
// The protocol is phased, exactly like the work streams the workers consume:
//
//	Insert*  ──▶  EndInserts  ──▶  Search / Scan / ScanBatch*  ──▶  Close
//
// Closing a stream channel is the end-of-stream marker; a worker drains its
// insert stream to completion before it serves a single query, so a query
// batch always sees every insert issued before it. Across shards there is no
// ordering guarantee, which is why the coordinator joins every shard it
// dispatched to before merging.
//
// # Merging
//
// Point results come back keyed by the original key order. Range results
// under hash partitioning are concatenated and re-sorted by key, because a
// contiguous range fans out to all shards in arbitrary key order; under
// range partitioning the per-shard results are already clipped and globally
// ordered, so they are concatenated in shard-interval order with no re-sort.
//
// # Failure model
//
// A worker that is gone while a batch is in flight fails the whole batch
// with ErrShardUnavailable; there is no partial or best-effort merge. Waits
// are otherwise unbounded: the protocol has no timeouts, and an external
// watchdog is the caller's concern. Once a batch is queued it runs to
// completion; Close is the only graceful shutdown path.
package shardset
