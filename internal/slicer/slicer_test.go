package slicer

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randSeq builds a sorted index sequence of n distinct indices below vlen,
// stored at offset base in a shared backing array.
func randSeq(rng *rand.Rand, n, vlen, base int64) Seq {
	perm := rng.Perm(int(vlen))[:n]
	sort.Ints(perm)
	idx := make([]int64, base+n)
	for q, v := range perm {
		idx[base+int64(q)] = int64(v)
	}
	return Seq{I: idx, Start: base, End: base + n}
}

func checkBoundary(t *testing.T, s Seq, p, i int64) {
	t.Helper()
	if s.Len() == 0 {
		assert.Equal(t, Empty, p)
		return
	}
	require.GreaterOrEqual(t, p, s.Start)
	require.LessOrEqual(t, p, s.End)
	if p > s.Start {
		assert.Less(t, s.I[p-1], i, "entry before boundary must have index < i")
	}
	if p < s.End {
		assert.GreaterOrEqual(t, s.I[p], i, "entry at boundary must have index >= i")
	}
}

func TestSliceVectorPartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const vlen = 1000

	for trial := 0; trial < 50; trial++ {
		a := randSeq(rng, int64(rng.Intn(vlen)), vlen, 7)
		b := randSeq(rng, int64(rng.Intn(vlen)), vlen, 3)
		target := float64(a.Len()+b.Len()) / 2

		s := SliceVector(a, b, Seq{}, vlen, target, Tolerance{})
		require.GreaterOrEqual(t, s.I, int64(0))
		require.LessOrEqual(t, s.I, int64(vlen))
		checkBoundary(t, a, s.PA, s.I)
		checkBoundary(t, b, s.PB, s.I)
		assert.Equal(t, Empty, s.PM)
	}
}

func TestSliceVectorWorkBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const vlen = 100000

	a := randSeq(rng, 60000, vlen, 0)
	b := randSeq(rng, 40000, vlen, 0)
	target := float64(a.Len()+b.Len()) / 2

	s := SliceVector(a, b, Seq{}, vlen, target, Tolerance{})
	if s.I > 0 && s.I < vlen {
		work := float64(a.End-s.PA) + float64(b.End-s.PB)
		assert.GreaterOrEqual(t, work, 0.9999*target)
		assert.LessOrEqual(t, work, 1.0001*target)
	}
}

func TestSliceVectorDenseFastPath(t *testing.T) {
	const vlen = 64
	idx := make([]int64, vlen)
	for q := range idx {
		idx[q] = int64(q)
	}
	a := Seq{I: idx, Start: 0, End: vlen}
	b := Seq{I: idx, Start: 0, End: vlen}

	s := SliceVector(a, b, Seq{}, vlen, float64(vlen), Tolerance{})
	// Both sequences dense: offsets follow the split index directly.
	assert.Equal(t, s.I, s.PA)
	assert.Equal(t, s.I, s.PB)
	work := float64(a.End-s.PA) + float64(b.End-s.PB)
	assert.InDelta(t, float64(vlen), work, 2)
}

func TestSliceVectorEmptySequences(t *testing.T) {
	// Partitioning two empty vectors of length 50 must return a
	// determinate split with empty sentinels, for any target.
	for _, target := range []float64{0, 1, 25, 1e9} {
		s := SliceVector(Seq{}, Seq{}, Seq{}, 50, target, Tolerance{})
		assert.GreaterOrEqual(t, s.I, int64(0))
		assert.LessOrEqual(t, s.I, int64(50))
		assert.Equal(t, Empty, s.PA)
		assert.Equal(t, Empty, s.PB)
		assert.Equal(t, Empty, s.PM)
	}
}

func TestSliceVectorTrivialVlen(t *testing.T) {
	idx := []int64{0}
	a := Seq{I: idx, Start: 0, End: 1}
	s := SliceVector(a, Seq{}, Seq{}, 1, 10, Tolerance{})
	assert.Equal(t, int64(0), s.I)
	assert.Equal(t, int64(0), s.PA)
	assert.Equal(t, Empty, s.PB)
}

func TestSliceVectorMaskResolved(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const vlen = 500
	a := randSeq(rng, 300, vlen, 0)
	b := randSeq(rng, 200, vlen, 0)
	m := randSeq(rng, 100, vlen, 0)

	s := SliceVector(a, b, m, vlen, float64(a.Len()+b.Len())/3, Tolerance{})
	checkBoundary(t, m, s.PM, s.I)
}

func TestDecomposeCoversExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	const vlen = 2000

	for _, ntasks := range []int{1, 2, 3, 7, 16} {
		a := randSeq(rng, 1500, vlen, 0)
		b := randSeq(rng, 400, vlen, 0)

		bounds := Decompose(a, b, Seq{}, vlen, ntasks, Tolerance{})
		require.Len(t, bounds, ntasks+1)
		assert.Equal(t, int64(0), bounds[0].I)
		assert.Equal(t, int64(vlen), bounds[ntasks].I)
		assert.Equal(t, a.Start, bounds[0].PA)
		assert.Equal(t, a.End, bounds[ntasks].PA)
		assert.Equal(t, b.Start, bounds[0].PB)
		assert.Equal(t, b.End, bounds[ntasks].PB)

		for k := 1; k <= ntasks; k++ {
			// Abutting, non-overlapping ranges in index space and in
			// each sequence's storage.
			assert.GreaterOrEqual(t, bounds[k].I, bounds[k-1].I)
			assert.GreaterOrEqual(t, bounds[k].PA, bounds[k-1].PA)
			assert.GreaterOrEqual(t, bounds[k].PB, bounds[k-1].PB)
			checkBoundary(t, a, bounds[k].PA, bounds[k].I)
			checkBoundary(t, b, bounds[k].PB, bounds[k].I)
		}
	}
}

func TestDecomposeEmpty(t *testing.T) {
	bounds := Decompose(Seq{}, Seq{}, Seq{}, 100, 4, Tolerance{})
	require.Len(t, bounds, 5)
	for _, s := range bounds {
		assert.Equal(t, Empty, s.PA)
		assert.Equal(t, Empty, s.PB)
	}
}
