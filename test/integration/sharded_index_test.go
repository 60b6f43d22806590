package integration

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/azavalny/system-design/internal/bptree"
	"github.com/azavalny/system-design/internal/partition"
	"github.com/azavalny/system-design/internal/shardset"
)

// TestShardedIndexLifecycle drives the whole system in process: batched
// inserts across several shards, the insert/query phase switch, point
// lookups, range scans and teardown, under both partitioning strategies.
func TestShardedIndexLifecycle(t *testing.T) {
	const (
		numKeys   = 20000
		numShards = 5
		treeOrder = 16
		batchSize = 1000
	)

	rng := rand.New(rand.NewSource(42))

	// Dataset: a shuffled permutation of 1..numKeys with derived values.
	keys := make([]int64, numKeys)
	for i := range keys {
		keys[i] = int64(i + 1)
	}
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	strategies := []partition.Strategy{partition.StrategyHash, partition.StrategyRange}
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			cfg := shardset.Config{
				Shards:    numShards,
				TreeOrder: treeOrder,
				Strategy:  strategy,
			}
			if strategy == partition.StrategyRange {
				cfg.SampleKeys = keys
			}
			set, err := shardset.New(cfg)
			if err != nil {
				t.Fatalf("failed to start shard set: %v", err)
			}
			defer set.Close()

			// Load in batches, the way a real ingest would.
			for start := 0; start < numKeys; start += batchSize {
				end := start + batchSize
				if end > numKeys {
					end = numKeys
				}
				batch := make([]bptree.Entry, 0, end-start)
				for _, k := range keys[start:end] {
					batch = append(batch, bptree.Entry{Key: k, Value: []byte(fmt.Sprintf("val-%d", k))})
				}
				if err := set.Insert(batch); err != nil {
					t.Fatalf("insert batch at %d: %v", start, err)
				}
			}
			if err := set.EndInserts(); err != nil {
				t.Fatalf("failed to seal inserts: %v", err)
			}

			// Every insert must have landed on exactly one shard.
			var inserted uint64
			for _, st := range set.Stats() {
				inserted += st.Ops.Inserts
			}
			if inserted != numKeys {
				t.Errorf("expected %d inserts across shards, got %d", numKeys, inserted)
			}

			// Point lookups: random present keys plus guaranteed absences.
			lookup := make([]int64, 0, 200)
			for i := 0; i < 100; i++ {
				lookup = append(lookup, rng.Int63n(numKeys)+1)
			}
			for i := 0; i < 100; i++ {
				lookup = append(lookup, numKeys+rng.Int63n(numKeys)+1)
			}
			results, err := set.Search(lookup)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			for i, r := range results {
				if r.Key != lookup[i] {
					t.Fatalf("result %d: expected key %d, got %d", i, lookup[i], r.Key)
				}
				if lookup[i] <= numKeys {
					if !r.Found {
						t.Errorf("key %d should be present", lookup[i])
					} else if string(r.Value) != fmt.Sprintf("val-%d", lookup[i]) {
						t.Errorf("key %d: wrong value %q", lookup[i], r.Value)
					}
				} else if r.Found {
					t.Errorf("key %d should be absent", lookup[i])
				}
			}

			// A full scan must return every key exactly once, in order,
			// regardless of how the keys were spread across shards.
			all, err := set.Scan(1, numKeys)
			if err != nil {
				t.Fatalf("full scan failed: %v", err)
			}
			if len(all) != numKeys {
				t.Fatalf("full scan returned %d entries, expected %d", len(all), numKeys)
			}
			for i, e := range all {
				if e.Key != int64(i+1) {
					t.Fatalf("full scan out of order at %d: got key %d", i, e.Key)
				}
			}

			// A batch of narrower scans, checked against the known contents.
			ranges := []partition.KeyRange{
				{Lo: 1, Hi: 100},
				{Lo: 9990, Hi: 10010},
				{Lo: numKeys - 50, Hi: numKeys + 500},
			}
			scans, err := set.ScanBatch(ranges)
			if err != nil {
				t.Fatalf("scan batch failed: %v", err)
			}
			for i, r := range ranges {
				lo, hi := r.Lo, r.Hi
				if hi > numKeys {
					hi = numKeys
				}
				want := int(hi - lo + 1)
				if len(scans[i]) != want {
					t.Errorf("range [%d,%d]: got %d entries, expected %d", r.Lo, r.Hi, len(scans[i]), want)
					continue
				}
				for j, e := range scans[i] {
					if e.Key != lo+int64(j) {
						t.Errorf("range [%d,%d]: entry %d has key %d", r.Lo, r.Hi, j, e.Key)
						break
					}
				}
			}

			if err := set.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}
			if err := set.Close(); err != shardset.ErrClosed {
				t.Errorf("second close: expected ErrClosed, got %v", err)
			}
		})
	}
}
