package partition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfigValidation verifies that malformed configuration is rejected
// at construction rather than clamped.
func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "hash ok", cfg: Config{NumShards: 3, Strategy: StrategyHash}},
		{name: "single shard ok", cfg: Config{NumShards: 1, Strategy: StrategyHash}},
		{name: "range ok", cfg: Config{NumShards: 3, Strategy: StrategyRange, SampleKeys: []int64{1, 2, 3, 4, 5, 6}}},
		{name: "zero shards", cfg: Config{NumShards: 0, Strategy: StrategyHash}, wantErr: true},
		{name: "negative shards", cfg: Config{NumShards: -2, Strategy: StrategyRange}, wantErr: true},
		{name: "unknown strategy", cfg: Config{NumShards: 3, Strategy: "modulo"}, wantErr: true},
		{name: "range without samples", cfg: Config{NumShards: 3, Strategy: StrategyRange}, wantErr: true},
		{name: "range with too few samples", cfg: Config{NumShards: 4, Strategy: StrategyRange, SampleKeys: []int64{1, 2, 3}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.NumShards, p.NumShards())
		})
	}
}

// TestHashShardForKey verifies the key mod NumShards assignment, including
// the canonical 3-shard layout for keys 1..9.
func TestHashShardForKey(t *testing.T) {
	p, err := NewHash(3)
	require.NoError(t, err)

	want := map[int][]int64{
		0: {3, 6, 9},
		1: {1, 4, 7},
		2: {2, 5, 8},
	}
	for shard, keys := range want {
		for _, k := range keys {
			assert.Equal(t, shard, p.ShardForKey(k), "key %d", k)
		}
	}

	// Deterministic: the same key always maps to the same shard.
	for i := 0; i < 10; i++ {
		assert.Equal(t, p.ShardForKey(12345), p.ShardForKey(12345))
	}

	// Negative keys still land in [0, NumShards).
	assert.Equal(t, 2, p.ShardForKey(-1))
	assert.Equal(t, 1, p.ShardForKey(-2))
	assert.Equal(t, 0, p.ShardForKey(-3))
}

// TestHashShardsForRange verifies the conservative all-shards fan-out.
func TestHashShardsForRange(t *testing.T) {
	p, err := NewHash(4)
	require.NoError(t, err)

	got := p.ShardsForRange(10, 60)
	require.Len(t, got, 4)
	for i, sr := range got {
		assert.Equal(t, i, sr.Shard)
		assert.Equal(t, int64(10), sr.Lo, "hash routing must not clip")
		assert.Equal(t, int64(60), sr.Hi)
	}

	assert.Empty(t, p.ShardsForRange(60, 10), "inverted range is empty")
	assert.False(t, p.Ordered())
}

// TestRangeBoundaries verifies cut placement from an equal-count sample and
// lookups inside and outside the sampled key space.
func TestRangeBoundaries(t *testing.T) {
	samples := []int64{9, 2, 7, 4, 5, 6, 3, 8, 1} // unsorted on purpose
	p, err := NewRange(3, samples)
	require.NoError(t, err)

	for k := int64(1); k <= 3; k++ {
		assert.Equal(t, 0, p.ShardForKey(k), "key %d", k)
	}
	for k := int64(4); k <= 6; k++ {
		assert.Equal(t, 1, p.ShardForKey(k), "key %d", k)
	}
	for k := int64(7); k <= 9; k++ {
		assert.Equal(t, 2, p.ShardForKey(k), "key %d", k)
	}

	// Keys outside the sampled distribution fall into the end intervals.
	assert.Equal(t, 0, p.ShardForKey(-1000))
	assert.Equal(t, 2, p.ShardForKey(1000))

	assert.True(t, p.Ordered())
}

// TestRangeShardsForRange verifies overlap detection and clipping.
func TestRangeShardsForRange(t *testing.T) {
	p, err := NewRange(3, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	t.Run("spanning all shards is clipped per shard", func(t *testing.T) {
		got := p.ShardsForRange(2, 8)
		require.Len(t, got, 3)
		assert.Equal(t, ShardRange{Shard: 0, KeyRange: KeyRange{Lo: 2, Hi: 3}}, got[0])
		assert.Equal(t, ShardRange{Shard: 1, KeyRange: KeyRange{Lo: 4, Hi: 6}}, got[1])
		assert.Equal(t, ShardRange{Shard: 2, KeyRange: KeyRange{Lo: 7, Hi: 8}}, got[2])
	})

	t.Run("range inside one shard touches only it", func(t *testing.T) {
		got := p.ShardsForRange(5, 5)
		require.Len(t, got, 1)
		assert.Equal(t, ShardRange{Shard: 1, KeyRange: KeyRange{Lo: 5, Hi: 5}}, got[0])
	})

	t.Run("range outside the sample stays in an end shard", func(t *testing.T) {
		got := p.ShardsForRange(100, 200)
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].Shard)
		assert.Equal(t, KeyRange{Lo: 100, Hi: 200}, got[0].KeyRange)
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		assert.Empty(t, p.ShardsForRange(8, 2))
	})
}

// TestRangeIntervalsCoverDomain verifies the boundary table is contiguous
// and spans the whole int64 key space.
func TestRangeIntervalsCoverDomain(t *testing.T) {
	p, err := NewRange(4, []int64{10, 20, 30, 40, 50, 60, 70, 80})
	require.NoError(t, err)

	intervals := p.Intervals()
	require.Len(t, intervals, 4)
	assert.Equal(t, int64(math.MinInt64), intervals[0].Lo)
	assert.Equal(t, int64(math.MaxInt64), intervals[len(intervals)-1].Hi)
	for i := 1; i < len(intervals); i++ {
		assert.Equal(t, intervals[i-1].Hi+1, intervals[i].Lo, "intervals must be contiguous")
	}
}

// TestPartitionCompleteness verifies that under both strategies every key
// maps to exactly one shard, consistent with interval containment for the
// range strategy.
func TestPartitionCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := make([]int64, 500)
	for i := range samples {
		samples[i] = int64(rng.Intn(100000) - 50000)
	}

	partitioners := map[string]Partitioner{}
	hp, err := NewHash(7)
	require.NoError(t, err)
	partitioners["hash"] = hp
	rp, err := NewRange(7, samples)
	require.NoError(t, err)
	partitioners["range"] = rp

	for name, p := range partitioners {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				k := int64(rng.Intn(200000) - 100000)
				s := p.ShardForKey(k)
				require.GreaterOrEqual(t, s, 0)
				require.Less(t, s, p.NumShards())
			}
		})
	}

	t.Run("range interval containment", func(t *testing.T) {
		intervals := rp.Intervals()
		for i := 0; i < 2000; i++ {
			k := int64(rng.Intn(200000) - 100000)
			s := rp.ShardForKey(k)
			assert.LessOrEqual(t, intervals[s].Lo, k)
			assert.GreaterOrEqual(t, intervals[s].Hi, k)
		}
	})
}

// TestRangeDuplicateCuts verifies a heavily skewed sample still yields a
// valid partition: some shards end up empty but every key has one owner.
func TestRangeDuplicateCuts(t *testing.T) {
	p, err := NewRange(3, []int64{5, 5, 5, 5, 5, 5})
	require.NoError(t, err)

	for _, k := range []int64{-10, 0, 4, 5, 6, 100} {
		s := p.ShardForKey(k)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 3)
	}

	// Sub-ranges remain disjoint and ordered; emptied intervals are skipped.
	got := p.ShardsForRange(0, 10)
	var prevHi int64 = math.MinInt64
	for _, sr := range got {
		assert.LessOrEqual(t, sr.Lo, sr.Hi)
		if prevHi != math.MinInt64 {
			assert.Greater(t, sr.Lo, prevHi)
		}
		prevHi = sr.Hi
	}
}
