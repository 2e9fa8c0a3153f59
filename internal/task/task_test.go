package task

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjnolet/GraphBLAS/internal/slicer"
)

func sortedUnique(r *rand.Rand, vlen int64, density float64) []int64 {
	var out []int64
	for i := int64(0); i < vlen; i++ {
		if r.Float64() < density {
			out = append(out, i)
		}
	}
	return out
}

func TestPlanCoversEveryEntryOnce(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	const vdim, vlen = 4, 10000

	type vec struct{ a, b []int64 }
	vecs := make([]vec, vdim)
	for j := range vecs {
		vecs[j] = vec{a: sortedUnique(r, vlen, 0.4), b: sortedUnique(r, vlen, 0.2)}
	}

	pieces := Plan(vdim, func(j int64) VecSeqs {
		v := vecs[j]
		return VecSeqs{
			A:    slicer.Seq{I: v.a, End: int64(len(v.a))},
			B:    slicer.Seq{I: v.b, End: int64(len(v.b))},
			Vlen: vlen,
		}
	}, 1000, slicer.Tolerance{})

	require.NotEmpty(t, pieces)

	// Pieces of one vector must abut exactly and cover each sequence once.
	covered := make(map[int64][2]int64)
	for _, p := range pieces {
		got, seen := covered[p.J]
		if seen {
			assert.Equal(t, got[0], p.Lo.PA, "piece boundaries must abut in A")
			assert.Equal(t, got[1], p.Lo.PB, "piece boundaries must abut in B")
		} else {
			lo := p.Lo
			if len(vecs[p.J].a) > 0 {
				assert.Equal(t, int64(0), lo.PA)
			}
			if len(vecs[p.J].b) > 0 {
				assert.Equal(t, int64(0), lo.PB)
			}
		}
		covered[p.J] = [2]int64{p.Hi.PA, p.Hi.PB}
	}
	for j := int64(0); j < vdim; j++ {
		end := covered[j]
		if n := int64(len(vecs[j].a)); n > 0 {
			assert.Equal(t, n, end[0])
		}
		if n := int64(len(vecs[j].b)); n > 0 {
			assert.Equal(t, n, end[1])
		}
	}
}

func TestPlanEmptyVectorYieldsOnePiece(t *testing.T) {
	pieces := Plan(3, func(int64) VecSeqs {
		return VecSeqs{Vlen: 100}
	}, 0, slicer.Tolerance{})
	require.Len(t, pieces, 3)
	for j, p := range pieces {
		assert.Equal(t, int64(j), p.J)
		assert.Equal(t, slicer.Empty, p.Lo.PA)
		assert.Equal(t, slicer.Empty, p.Hi.PA)
	}
}

func TestChunkVectors(t *testing.T) {
	weights := []int64{10, 10, 10, 500, 1, 1, 1}
	chunks := ChunkVectors(int64(len(weights)), func(j int64) int64 { return weights[j] }, 100)

	// Exact cover, in order.
	next := int64(0)
	for _, c := range chunks {
		require.Equal(t, next, c.Start)
		require.Less(t, c.Start, c.End)
		next = c.End
	}
	require.Equal(t, int64(len(weights)), next)
	assert.Greater(t, len(chunks), 1)
}

func TestChunkVectorsSingleChunkWhenLight(t *testing.T) {
	chunks := ChunkVectors(5, func(int64) int64 { return 1 }, 1000)
	require.Equal(t, []Chunk{{Start: 0, End: 5}}, chunks)
}

func TestRunnerRunsEveryTaskAndJoins(t *testing.T) {
	const n = 64
	var done [n]atomic.Bool
	var inFlight, peak atomic.Int32

	r := Runner{Workers: 4}
	err := r.Run(context.Background(), n, func(t int) error {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		done[t].Store(true)
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	for i := range done {
		assert.True(t, done[i].Load(), "task %d never ran", i)
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRunnerPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran sync.Map

	r := Runner{Workers: 2}
	err := r.Run(context.Background(), 8, func(t int) error {
		ran.Store(t, true)
		if t == 3 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	_, ok := ran.Load(3)
	assert.True(t, ok)
}

func TestRunnerZeroAndOneTasks(t *testing.T) {
	r := Runner{}
	require.NoError(t, r.Run(context.Background(), 0, func(int) error { return nil }))

	calls := 0
	require.NoError(t, r.Run(context.Background(), 1, func(int) error { calls++; return nil }))
	assert.Equal(t, 1, calls)
}
