// Command shardbench loads a synthetic dataset into a single B+ tree and
// into a sharded set of trees, runs the same query mix against both, and
// logs the timings side by side.
//
// Configuration is taken from the environment:
//
//	BENCH_KEYS           dataset size                     (default 1000000)
//	BENCH_SHARDS         number of shard workers          (default 8)
//	BENCH_ORDER          B+ tree order                    (default 64)
//	BENCH_STRATEGY       "hash" or "range"                (default "range")
//	BENCH_POINT_QUERIES  point lookups per run            (default 10000)
//	BENCH_RANGE_QUERIES  range scans per run              (default 100)
//	BENCH_RANGE_SPAN     width of each scanned range      (default 1000)
//	BENCH_CACHE_ENTRIES  lookup cache size, 0 disables it (default 0)
//	BENCH_SEED           RNG seed                         (default 1)
package main

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/azavalny/system-design/internal/bptree"
	"github.com/azavalny/system-design/internal/partition"
	"github.com/azavalny/system-design/internal/shardset"
)

type config struct {
	keys         int
	shards       int
	order        int
	strategy     partition.Strategy
	pointQueries int
	rangeQueries int
	rangeSpan    int64
	cacheEntries int64
	seed         int64
}

func loadConfig() (config, error) {
	cfg := config{strategy: partition.Strategy(getenv("BENCH_STRATEGY", "range"))}

	var err error
	if cfg.keys, err = getenvInt("BENCH_KEYS", 1000000); err != nil {
		return cfg, err
	}
	if cfg.shards, err = getenvInt("BENCH_SHARDS", 8); err != nil {
		return cfg, err
	}
	if cfg.order, err = getenvInt("BENCH_ORDER", 64); err != nil {
		return cfg, err
	}
	if cfg.pointQueries, err = getenvInt("BENCH_POINT_QUERIES", 10000); err != nil {
		return cfg, err
	}
	if cfg.rangeQueries, err = getenvInt("BENCH_RANGE_QUERIES", 100); err != nil {
		return cfg, err
	}
	span, err := getenvInt("BENCH_RANGE_SPAN", 1000)
	if err != nil {
		return cfg, err
	}
	cfg.rangeSpan = int64(span)
	entries, err := getenvInt("BENCH_CACHE_ENTRIES", 0)
	if err != nil {
		return cfg, err
	}
	cfg.cacheEntries = int64(entries)
	seed, err := getenvInt("BENCH_SEED", 1)
	if err != nil {
		return cfg, err
	}
	cfg.seed = int64(seed)
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("dataset: %d keys, order %d; shards: %d (%s partitioning)",
		cfg.keys, cfg.order, cfg.shards, cfg.strategy)

	rng := rand.New(rand.NewSource(cfg.seed))
	dataset := makeDataset(cfg.keys, rng)

	baseline(cfg, dataset, rng)
	sharded(cfg, dataset, rng)
}

// makeDataset produces the keys 1..n in shuffled insertion order so neither
// run benefits from presorted input.
func makeDataset(n int, rng *rand.Rand) []bptree.Entry {
	out := make([]bptree.Entry, n)
	for i := range out {
		k := int64(i + 1)
		out[i] = bptree.Entry{Key: k, Value: strconv.AppendInt(nil, k, 10)}
	}
	rng.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// baseline runs the whole workload against one tree on one goroutine.
func baseline(cfg config, dataset []bptree.Entry, rng *rand.Rand) {
	tree, err := bptree.New(cfg.order)
	if err != nil {
		log.Fatalf("baseline: %v", err)
	}

	start := time.Now()
	for _, e := range dataset {
		tree.Insert(e.Key, e.Value)
	}
	log.Printf("baseline: loaded %d keys in %v (height %d)", tree.Len(), time.Since(start), tree.Height())

	start = time.Now()
	misses := 0
	for i := 0; i < cfg.pointQueries; i++ {
		if _, ok := tree.Search(rng.Int63n(int64(cfg.keys)) + 1); !ok {
			misses++
		}
	}
	log.Printf("baseline: %d point lookups in %v (%d misses)", cfg.pointQueries, time.Since(start), misses)

	start = time.Now()
	var scanned int
	for i := 0; i < cfg.rangeQueries; i++ {
		lo := rng.Int63n(int64(cfg.keys)) + 1
		scanned += len(tree.RangeScan(lo, lo+cfg.rangeSpan-1))
	}
	log.Printf("baseline: %d range scans in %v (%d entries)", cfg.rangeQueries, time.Since(start), scanned)
}

// sharded runs the same workload through the shard runtime.
func sharded(cfg config, dataset []bptree.Entry, rng *rand.Rand) {
	scfg := shardset.Config{
		Shards:       cfg.shards,
		TreeOrder:    cfg.order,
		Strategy:     cfg.strategy,
		CacheEntries: cfg.cacheEntries,
	}
	if cfg.strategy == partition.StrategyRange {
		// Sample every key: exact equal-count boundaries.
		samples := make([]int64, len(dataset))
		for i, e := range dataset {
			samples[i] = e.Key
		}
		scfg.SampleKeys = samples
	}

	set, err := shardset.New(scfg)
	if err != nil {
		log.Fatalf("sharded: %v", err)
	}
	defer set.Close()

	if rp, ok := set.Partitioner().(*partition.RangePartitioner); ok {
		for i, iv := range rp.Intervals() {
			log.Printf("sharded: shard %d owns [%d, %d]", i, iv.Lo, iv.Hi)
		}
	}

	start := time.Now()
	if err := set.Insert(dataset); err != nil {
		log.Fatalf("sharded: insert: %v", err)
	}
	if err := set.EndInserts(); err != nil {
		log.Fatalf("sharded: seal: %v", err)
	}
	log.Printf("sharded: loaded %d keys in %v", len(dataset), time.Since(start))

	keys := make([]int64, cfg.pointQueries)
	for i := range keys {
		keys[i] = rng.Int63n(int64(cfg.keys)) + 1
	}
	start = time.Now()
	results, err := set.Search(keys)
	if err != nil {
		log.Fatalf("sharded: search: %v", err)
	}
	misses := 0
	for _, r := range results {
		if !r.Found {
			misses++
		}
	}
	log.Printf("sharded: %d point lookups in %v (%d misses)", len(keys), time.Since(start), misses)

	ranges := make([]partition.KeyRange, cfg.rangeQueries)
	for i := range ranges {
		lo := rng.Int63n(int64(cfg.keys)) + 1
		ranges[i] = partition.KeyRange{Lo: lo, Hi: lo + cfg.rangeSpan - 1}
	}
	start = time.Now()
	scans, err := set.ScanBatch(ranges)
	if err != nil {
		log.Fatalf("sharded: scan: %v", err)
	}
	var scanned int
	for _, s := range scans {
		scanned += len(s)
	}
	log.Printf("sharded: %d range scans in %v (%d entries)", len(ranges), time.Since(start), scanned)

	for _, st := range set.Stats() {
		log.Printf("sharded: shard %d: %d inserts, %d searches, %d scans",
			st.Shard, st.Ops.Inserts, st.Ops.Searches, st.Ops.Scans)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
