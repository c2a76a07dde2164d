package utils

import (
	"sync"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ForEachBucket runs fn once per partition, each on its own goroutine, and
// waits for all of them. Empty partitions are skipped.
func (pm *PartitionMap) ForEachBucket(fn func(bn, kMin, kMax int)) {
	if pm.ParallelDegree == 1 {
		fn(0, 0, pm.MaxIndex)
		return
	}
	var wg sync.WaitGroup
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		if kMax <= kMin {
			continue
		}
		wg.Add(1)
		go func(bn, kMin, kMax int) {
			defer wg.Done()
			fn(bn, kMin, kMax)
		}(bn, kMin, kMax)
	}
	wg.Wait()
}

// ParallelCollect partitions [0, n) over np workers and concatenates the
// per-bucket results in bucket order, so the output does not depend on np.
func ParallelCollect[T any](np, n int, fn func(k int) (T, bool)) (out []T) {
	if n == 0 {
		return
	}
	var (
		pm      = NewPartitionMap(np, n)
		buckets = make([][]T, pm.ParallelDegree)
	)
	pm.ForEachBucket(func(bn, kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			if v, ok := fn(k); ok {
				buckets[bn] = append(buckets[bn], v)
			}
		}
	})
	for _, b := range buckets {
		out = append(out, b...)
	}
	return
}
