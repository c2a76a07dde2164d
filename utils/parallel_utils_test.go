package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Test PartitionMap
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				kMin, kMax := pm.GetBucketRange(np)
				maxK := kMax - kMin
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Partitions tile [0, MaxIndex) in order
		for maxIndex := 10; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			next := 0
			for bn := 0; bn < pm.ParallelDegree; bn++ {
				kMin, kMax := pm.GetBucketRange(bn)
				assert.Equal(t, next, kMin)
				next = kMax
			}
			assert.Equal(t, maxIndex, next)
		}
	}
	{ // Degenerate degree is clamped to a single partition
		pm := NewPartitionMap(0, 7)
		assert.Equal(t, 1, pm.ParallelDegree)
		assert.Equal(t, [2]int{0, 7}, pm.Partitions[0])
	}
}

func TestForEachBucket(t *testing.T) {
	for _, np := range []int{1, 3, 8, 20} {
		var (
			pm    = NewPartitionMap(np, 17)
			hits  = make([]int32, 17)
			calls int32
		)
		pm.ForEachBucket(func(bn, kMin, kMax int) {
			atomic.AddInt32(&calls, 1)
			for k := kMin; k < kMax; k++ {
				atomic.AddInt32(&hits[k], 1)
			}
		})
		for k := range hits {
			assert.Equal(t, int32(1), hits[k])
		}
		if np > 17 {
			assert.Equal(t, int32(17), calls)
		}
	}
}

func TestParallelCollect(t *testing.T) {
	even := func(k int) (int, bool) { return k, k%2 == 0 }
	serial := ParallelCollect(1, 100, even)
	for _, np := range []int{2, 7, 64} {
		assert.Equal(t, serial, ParallelCollect(np, 100, even))
	}
	assert.Len(t, serial, 50)
	assert.Equal(t, 98, serial[49])
	assert.Nil(t, ParallelCollect(4, 0, even))
}

func TestPOW(t *testing.T) {
	for p := -10; p <= 10; p++ {
		assert.InDelta(t, math.Pow(1.7, float64(p)), POW(1.7, p), 1.e-9)
	}
}

func TestIsNan(t *testing.T) {
	assert.False(t, IsNan([3]float64{1, 2, 3}))
	assert.True(t, IsNan([][3]float64{{0, 0, 0}, {0, math.NaN(), 0}}))
	assert.True(t, IsNan(math.NaN()))
	assert.False(t, IsNan("x"))
}
