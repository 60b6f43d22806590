package shardset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/exp/slices"

	"github.com/azavalny/system-design/internal/bptree"
	"github.com/azavalny/system-design/internal/partition"
)

// Protocol errors. Phase misuse is reported, never panicked on.
var (
	// ErrSealed is returned by Insert once EndInserts has sealed the stream.
	ErrSealed = errors.New("shardset: insert stream already sealed")

	// ErrNotSealed is returned by queries issued before EndInserts.
	ErrNotSealed = errors.New("shardset: insert stream not sealed yet")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("shardset: closed")

	// ErrShardUnavailable means a shard worker was gone while a batch was in
	// flight. The whole batch fails: a silently missing shard would be
	// indistinguishable from a sparse-but-correct result.
	ErrShardUnavailable = errors.New("shardset: shard unavailable")
)

type phase int

const (
	phaseInserting phase = iota
	phaseQuerying
	phaseClosed
)

// Config describes a shard set.
type Config struct {
	// Shards is the number of independent workers, each owning one tree.
	Shards int

	// TreeOrder is the B+ tree fan-out used by every shard tree.
	TreeOrder int

	// Strategy selects the partitioner; SampleKeys feeds the range
	// strategy's boundary computation.
	Strategy   partition.Strategy
	SampleKeys []int64

	// CacheEntries, when positive, enables a read-through cache of at most
	// that many entries in front of point lookups.
	CacheEntries int64
}

// Set is the coordinator for a fixed group of shard workers. It owns the
// workers, the routing table and the optional lookup cache; there is no
// ambient global state, every operation goes through the Set handle.
//
// The batch protocol is phased, mirroring the two work streams each worker
// consumes: Insert (repeatable) until EndInserts seals the insert streams,
// then Search/Scan/ScanBatch, then Close. Queries may be issued from
// multiple goroutines; phase transitions are exclusive.
type Set struct {
	part    partition.Partitioner
	workers []*worker
	cache   *ristretto.Cache[int64, []byte]

	mu    sync.RWMutex
	phase phase
}

// PointResult is the outcome of one point lookup. Found distinguishes a
// stored empty value from an absent key.
type PointResult struct {
	Key   int64
	Value []byte
	Found bool
}

// ShardStats pairs a shard identifier with its operation counters.
type ShardStats struct {
	Shard int
	Ops   OperationStats
}

// New validates cfg, builds the partitioner and starts one worker goroutine
// per shard.
func New(cfg Config) (*Set, error) {
	part, err := partition.New(partition.Config{
		NumShards:  cfg.Shards,
		Strategy:   cfg.Strategy,
		SampleKeys: cfg.SampleKeys,
	})
	if err != nil {
		return nil, err
	}

	workers := make([]*worker, cfg.Shards)
	for i := range workers {
		w, err := newWorker(i, cfg.TreeOrder)
		if err != nil {
			return nil, err
		}
		workers[i] = w
	}

	s := &Set{part: part, workers: workers}
	if cfg.CacheEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
			NumCounters: cfg.CacheEntries * 10,
			MaxCost:     cfg.CacheEntries,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("shardset: cache: %w", err)
		}
		s.cache = cache
	}

	for _, w := range workers {
		go w.run()
	}
	return s, nil
}

// NumShards returns the fixed shard count.
func (s *Set) NumShards() int { return len(s.workers) }

// Partitioner exposes the routing table, e.g. for logging shard intervals.
func (s *Set) Partitioner() partition.Partitioner { return s.part }

// Insert partitions batch by key and dispatches one sub-batch per owning
// shard. Batches may be sent repeatedly until EndInserts seals the streams.
func (s *Set) Insert(batch []bptree.Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.phase {
	case phaseClosed:
		return ErrClosed
	case phaseQuerying:
		return ErrSealed
	}

	sub := make([][]bptree.Entry, len(s.workers))
	for _, e := range batch {
		id := s.part.ShardForKey(e.Key)
		sub[id] = append(sub[id], e)
	}
	for id, b := range sub {
		if len(b) == 0 {
			continue
		}
		w := s.workers[id]
		select {
		case w.inserts <- b:
		case <-w.done:
			return fmt.Errorf("%w: shard %d", ErrShardUnavailable, id)
		}
	}
	return nil
}

// EndInserts seals the insert streams by closing them — the end-of-stream
// marker that releases every worker into its query loop. After EndInserts
// each shard is guaranteed to have applied all of its insert batches before
// it answers any query.
func (s *Set) EndInserts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case phaseClosed:
		return ErrClosed
	case phaseQuerying:
		return ErrSealed
	}
	for _, w := range s.workers {
		close(w.inserts)
	}
	s.phase = phaseQuerying
	return nil
}

// Search looks up every key in the batch and returns results keyed by the
// original key order. When the cache is enabled, hits skip shard dispatch
// entirely and found values are cached on the way out.
func (s *Set) Search(keys []int64) ([]PointResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.queryPhase(); err != nil {
		return nil, err
	}

	results := make([]PointResult, len(keys))
	shardKeys := make([][]int64, len(s.workers))
	shardIdx := make([][]int, len(s.workers))
	for i, k := range keys {
		results[i].Key = k
		if s.cache != nil {
			if v, ok := s.cache.Get(k); ok {
				results[i].Value = v
				results[i].Found = true
				continue
			}
		}
		id := s.part.ShardForKey(k)
		shardKeys[id] = append(shardKeys[id], k)
		shardIdx[id] = append(shardIdx[id], i)
	}

	reqs := make([]request, len(s.workers))
	var touched []int
	for id := range s.workers {
		if len(shardKeys[id]) == 0 {
			continue
		}
		reqs[id] = request{keys: shardKeys[id], reply: make(chan response, 1)}
		if err := s.dispatch(id, reqs[id]); err != nil {
			return nil, err
		}
		touched = append(touched, id)
	}

	for _, id := range touched {
		resp, err := s.collect(id, reqs[id])
		if err != nil {
			return nil, err
		}
		for j, hit := range resp.points {
			i := shardIdx[id][j]
			results[i].Value = hit.value
			results[i].Found = hit.found
			if hit.found && s.cache != nil {
				s.cache.Set(results[i].Key, hit.value, 1)
			}
		}
	}
	return results, nil
}

// Scan is the single-range convenience form of ScanBatch.
func (s *Set) Scan(lo, hi int64) ([]bptree.Entry, error) {
	res, err := s.ScanBatch([]partition.KeyRange{{Lo: lo, Hi: hi}})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// ScanBatch runs a batch of range scans. Result slice i holds exactly the
// stored entries with ranges[i].Lo <= key <= ranges[i].Hi in ascending key
// order. Under hash partitioning every shard is asked and the merged results
// are re-sorted; under range partitioning the per-shard results are clipped,
// already globally ordered, and concatenated as-is.
func (s *Set) ScanBatch(ranges []partition.KeyRange) ([][]bptree.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.queryPhase(); err != nil {
		return nil, err
	}

	tasks := make([][]scanTask, len(s.workers))
	for i, r := range ranges {
		for _, sr := range s.part.ShardsForRange(r.Lo, r.Hi) {
			tasks[sr.Shard] = append(tasks[sr.Shard], scanTask{idx: i, lo: sr.Lo, hi: sr.Hi})
		}
	}

	reqs := make([]request, len(s.workers))
	var touched []int
	for id := range s.workers {
		if len(tasks[id]) == 0 {
			continue
		}
		reqs[id] = request{scans: tasks[id], reply: make(chan response, 1)}
		if err := s.dispatch(id, reqs[id]); err != nil {
			return nil, err
		}
		touched = append(touched, id)
	}

	// Workers are collected in ascending shard order, so under an ordered
	// partitioner the per-range appends arrive in global key order.
	out := make([][]bptree.Entry, len(ranges))
	for _, id := range touched {
		resp, err := s.collect(id, reqs[id])
		if err != nil {
			return nil, err
		}
		for _, hit := range resp.scans {
			out[hit.idx] = append(out[hit.idx], hit.entries...)
		}
	}

	if !s.part.Ordered() {
		for i := range out {
			slices.SortFunc(out[i], func(a, b bptree.Entry) int {
				switch {
				case a.Key < b.Key:
					return -1
				case a.Key > b.Key:
					return 1
				}
				return 0
			})
		}
	}
	return out, nil
}

// Stats returns a snapshot of every shard's operation counters.
func (s *Set) Stats() []ShardStats {
	out := make([]ShardStats, len(s.workers))
	for i, w := range s.workers {
		out[i] = ShardStats{Shard: w.id, Ops: w.snapshot()}
	}
	return out
}

// Close tears the shard set down: an unsealed insert stream is sealed, the
// query streams are closed, and Close returns once every worker has exited.
// Batches already queued are completed; there is no mid-batch cancellation.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case phaseClosed:
		return ErrClosed
	case phaseInserting:
		for _, w := range s.workers {
			close(w.inserts)
		}
	}
	for _, w := range s.workers {
		close(w.queries)
	}
	for _, w := range s.workers {
		<-w.done
	}
	if s.cache != nil {
		s.cache.Close()
	}
	s.phase = phaseClosed
	return nil
}

func (s *Set) queryPhase() error {
	switch s.phase {
	case phaseClosed:
		return ErrClosed
	case phaseInserting:
		return ErrNotSealed
	}
	return nil
}

// dispatch hands req to a shard, failing fast if its worker is gone.
func (s *Set) dispatch(id int, req request) error {
	w := s.workers[id]
	select {
	case w.queries <- req:
		return nil
	case <-w.done:
		return fmt.Errorf("%w: shard %d", ErrShardUnavailable, id)
	}
}

// collect waits for a shard's response. The wait is unbounded by design:
// there are no timeouts in the batch protocol, only worker teardown can
// interrupt it.
func (s *Set) collect(id int, req request) (response, error) {
	w := s.workers[id]
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-w.done:
		// The worker may have replied just before exiting.
		select {
		case resp := <-req.reply:
			return resp, nil
		default:
			return response{}, fmt.Errorf("%w: shard %d", ErrShardUnavailable, id)
		}
	}
}
