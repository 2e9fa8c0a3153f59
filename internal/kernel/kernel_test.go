package kernel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/internal/workspace"
	"github.com/cjnolet/GraphBLAS/semiring"
)

func buildSparse[T comparable](t *testing.T, vlen, vdim int64, rows, cols []int64, vals []T) *matrix.Matrix[T] {
	t.Helper()
	m := matrix.New[T](vlen, vdim)
	require.NoError(t, m.Build(alloc.Default, rows, cols, vals, nil))
	return m
}

func view[T comparable](t *testing.T, m *matrix.Matrix[T]) matrix.CSView[T] {
	t.Helper()
	v, ok := m.SparseView()
	require.True(t, ok)
	return v
}

// randCOO fills every cell independently with probability density.
func randCOO(r *rand.Rand, vlen, vdim int64, density float64) (rows, cols []int64, vals []float64) {
	for j := int64(0); j < vdim; j++ {
		for i := int64(0); i < vlen; i++ {
			if r.Float64() < density {
				rows = append(rows, i)
				cols = append(cols, j)
				vals = append(vals, r.Float64()*10-5)
			}
		}
	}
	return rows, cols, vals
}

func tuples[T comparable](t *testing.T, m *matrix.Matrix[T]) ([]int64, []int64, []T) {
	t.Helper()
	rows, cols, vals, err := m.ExtractTuples(alloc.Default)
	require.NoError(t, err)
	return rows, cols, vals
}

func TestMultiplyKernelEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const m, k, n = 37, 29, 23

	ar, ac, av := randCOO(r, m, k, 0.15)
	br, bc, bv := randCOO(r, k, n, 0.2)

	a := buildSparse(t, m, k, ar, ac, av)
	at := buildSparse(t, k, m, ac, ar, av) // transpose, for the dot kernel
	b := buildSparse(t, k, n, br, bc, bv)

	s := semiring.PlusTimesFP64()
	opsAB := Operands[float64, float64]{A: view(t, a), B: view(t, b)}
	opsAtB := Operands[float64, float64]{A: view(t, at), B: view(t, b)}

	cg := matrix.New[float64](m, n)
	var pool workspace.Pool[float64]
	require.NoError(t, Gustavson(cg, opsAB, nil, s, &pool, alloc.Default))

	cd := matrix.New[float64](m, n)
	require.NoError(t, Dot(cd, opsAtB, nil, s, alloc.Default))

	ch := matrix.New[float64](m, n)
	require.NoError(t, Heap(ch, opsAB, nil, s, alloc.Default))

	gr, gc, gv := tuples(t, cg)
	dr, dc, dv := tuples(t, cd)
	hr, hc, hv := tuples(t, ch)

	require.Equal(t, gr, dr)
	require.Equal(t, gc, dc)
	require.Equal(t, gv, dv, "dot must match gustavson bit for bit")
	require.Equal(t, gr, hr)
	require.Equal(t, gc, hc)
	require.Equal(t, gv, hv, "heap must match gustavson bit for bit")

	// Cross-check the stored values against a dense product.
	ad := mat.NewDense(m, k, nil)
	for q := range ar {
		ad.Set(int(ar[q]), int(ac[q]), av[q])
	}
	bd := mat.NewDense(k, n, nil)
	for q := range br {
		bd.Set(int(br[q]), int(bc[q]), bv[q])
	}
	var want mat.Dense
	want.Mul(ad, bd)
	for q := range gr {
		assert.InDelta(t, want.At(int(gr[q]), int(gc[q])), gv[q], 1e-12)
	}
}

func TestGustavsonOutputLargerThanOperands(t *testing.T) {
	// Outer product: 8 + 8 stored entries produce 64 output entries, so
	// the output cannot be sized from the operand entry counts alone.
	const n = 8
	rows := make([]int64, n)
	cols := make([]int64, n)
	vals := make([]float64, n)
	for i := int64(0); i < n; i++ {
		rows[i] = i
		vals[i] = float64(i + 1)
	}
	a := buildSparse(t, n, 1, rows, cols, vals)
	b := buildSparse(t, 1, n, cols, rows, vals)

	s := semiring.PlusTimesFP64()
	ops := Operands[float64, float64]{A: view(t, a), B: view(t, b)}

	cg := matrix.New[float64](n, n)
	var pool workspace.Pool[float64]
	require.NoError(t, Gustavson(cg, ops, nil, s, &pool, alloc.Default))

	gr, gc, gv := tuples(t, cg)
	require.Len(t, gv, n*n)
	for q := range gv {
		assert.Equal(t, float64((gr[q]+1)*(gc[q]+1)), gv[q])
	}

	ch := matrix.New[float64](n, n)
	require.NoError(t, Heap(ch, ops, nil, s, alloc.Default))
	hr, hc, hv := tuples(t, ch)
	require.Equal(t, gr, hr)
	require.Equal(t, gc, hc)
	require.Equal(t, gv, hv)
}

func TestMultiplyKernelEquivalenceHypersparse(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	const m, k, n = 500, 400, 12

	// Only a handful of columns are populated, so the hypersparse form has
	// far fewer vectors than vdim.
	var ar, ac []int64
	var av []float64
	for _, j := range []int64{3, 190, 388} {
		for i := int64(0); i < m; i += 17 {
			ar = append(ar, i)
			ac = append(ac, j)
			av = append(av, r.Float64())
		}
	}
	br, bc, bv := randCOO(r, k, n, 0.1)

	a := buildSparse(t, m, k, ar, ac, av)
	require.NoError(t, a.ToHyper(alloc.Default))
	require.Equal(t, format.Hypersparse, a.Format())
	b := buildSparse(t, k, n, br, bc, bv)

	s := semiring.PlusTimesFP64()
	ops := Operands[float64, float64]{A: view(t, a), B: view(t, b)}

	cg := matrix.New[float64](m, n)
	var pool workspace.Pool[float64]
	require.NoError(t, Gustavson(cg, ops, nil, s, &pool, alloc.Default))
	ch := matrix.New[float64](m, n)
	require.NoError(t, Heap(ch, ops, nil, s, alloc.Default))

	gr, gc, gv := tuples(t, cg)
	hr, hc, hv := tuples(t, ch)
	require.Equal(t, gr, hr)
	require.Equal(t, gc, hc)
	require.Equal(t, gv, hv)
}

func TestDotTerminalShortCircuit(t *testing.T) {
	const vlen = 100

	// One output dot product with vlen shared indices. The first product
	// saturates the max monoid, so co-iteration must stop after a single
	// multiply.
	var ir, ic []int64
	var iv []float64
	for q := int64(0); q < vlen; q++ {
		ir = append(ir, q)
		ic = append(ic, 0)
		iv = append(iv, 1.0)
	}
	iv[0] = math.Inf(1)

	at := buildSparse(t, vlen, 1, ir, ic, iv)
	b := buildSparse(t, vlen, 1, ir, ic, iv)

	s := semiring.MaxPlus()
	mults := 0
	inner := s.Mult
	s.Mult = func(x, y float64) float64 {
		mults++
		return inner(x, y)
	}

	c := matrix.New[float64](1, 1)
	ops := Operands[float64, float64]{A: view(t, at), B: view(t, b)}
	require.NoError(t, Dot(c, ops, nil, s, alloc.Default))

	got, ok := c.At(0, 0)
	require.True(t, ok)
	assert.True(t, math.IsInf(got, 1))
	assert.Equal(t, 1, mults, "terminal accumulator must end co-iteration")
}

func TestDotEntryRequiresMatch(t *testing.T) {
	// A'(0,:) and B(:,0) have disjoint patterns; A'(1,:) shares one index.
	at := buildSparse(t, 4, 2,
		[]int64{0, 2, 1}, []int64{0, 0, 1}, []float64{5, 5, 3})
	b := buildSparse(t, 4, 1,
		[]int64{1, 3}, []int64{0, 0}, []float64{2, 2})

	c := matrix.New[float64](2, 1)
	ops := Operands[float64, float64]{A: view(t, at), B: view(t, b)}
	require.NoError(t, Dot(c, ops, nil, semiring.PlusTimesFP64(), alloc.Default))

	_, ok := c.At(0, 0)
	assert.False(t, ok, "no shared index means no entry, not an explicit identity")
	got, ok := c.At(1, 0)
	require.True(t, ok)
	assert.Equal(t, 6.0, got)
}

func TestGustavsonMask(t *testing.T) {
	a := buildSparse(t, 3, 3,
		[]int64{0, 1, 2}, []int64{0, 1, 2}, []float64{1, 1, 1})
	b := buildSparse(t, 3, 2,
		[]int64{0, 1, 2, 0}, []int64{0, 0, 0, 1}, []float64{4, 5, 6, 7})

	// Valued mask: row 1 stored false, row 2 absent.
	mm := buildSparse(t, 3, 2,
		[]int64{0, 1, 0}, []int64{0, 0, 1}, []bool{true, false, true})
	mask := &Mask{V: view(t, mm)}

	s := semiring.PlusTimesFP64()
	ops := Operands[float64, float64]{A: view(t, a), B: view(t, b)}
	var pool workspace.Pool[float64]

	c := matrix.New[float64](3, 2)
	require.NoError(t, Gustavson(c, ops, mask, s, &pool, alloc.Default))
	rows, cols, vals := tuples(t, c)
	assert.Equal(t, []int64{0, 0}, rows)
	assert.Equal(t, []int64{0, 1}, cols)
	assert.Equal(t, []float64{4, 7}, vals)

	// Structural treats the stored false as present.
	mask = &Mask{V: view(t, mm), Structural: true}
	c = matrix.New[float64](3, 2)
	require.NoError(t, Gustavson(c, ops, mask, s, &pool, alloc.Default))
	rows, _, _ = tuples(t, c)
	assert.Equal(t, []int64{0, 1, 0}, rows)

	// Complemented keeps only the positions the mask does not admit.
	mask = &Mask{V: view(t, mm), Comp: true}
	c = matrix.New[float64](3, 2)
	require.NoError(t, Gustavson(c, ops, mask, s, &pool, alloc.Default))
	rows, cols, vals = tuples(t, c)
	assert.Equal(t, []int64{1, 2}, rows)
	assert.Equal(t, []int64{0, 0}, cols)
	assert.Equal(t, []float64{5, 6}, vals)
}

func TestMaskAppliesToAllKernels(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	const m, k, n = 20, 20, 20
	ar, ac, av := randCOO(r, m, k, 0.25)
	br, bc, bv := randCOO(r, k, n, 0.25)
	mr, mc, _ := randCOO(r, m, n, 0.3)
	mvals := make([]bool, len(mr))
	for q := range mvals {
		mvals[q] = true
	}

	a := buildSparse(t, m, k, ar, ac, av)
	at := buildSparse(t, k, m, ac, ar, av)
	b := buildSparse(t, k, n, br, bc, bv)
	mm := buildSparse(t, m, n, mr, mc, mvals)
	mask := &Mask{V: view(t, mm), Structural: true}

	s := semiring.PlusTimesFP64()
	opsAB := Operands[float64, float64]{A: view(t, a), B: view(t, b)}
	opsAtB := Operands[float64, float64]{A: view(t, at), B: view(t, b)}
	var pool workspace.Pool[float64]

	cg := matrix.New[float64](m, n)
	require.NoError(t, Gustavson(cg, opsAB, mask, s, &pool, alloc.Default))
	cd := matrix.New[float64](m, n)
	require.NoError(t, Dot(cd, opsAtB, mask, s, alloc.Default))
	ch := matrix.New[float64](m, n)
	require.NoError(t, Heap(ch, opsAB, mask, s, alloc.Default))

	gr, gc, gv := tuples(t, cg)
	dr, dc, dv := tuples(t, cd)
	hr, hc, hv := tuples(t, ch)
	require.Equal(t, gr, dr)
	require.Equal(t, gc, dc)
	require.Equal(t, gv, dv)
	require.Equal(t, gr, hr)
	require.Equal(t, gc, hc)
	require.Equal(t, gv, hv)

	// Every surviving entry must be admitted by the mask.
	for q := range gr {
		_, ok := mm.At(gr[q], gc[q])
		assert.True(t, ok)
	}
}

func TestPatternOnlyMultiply(t *testing.T) {
	// Structural reachability: boolean or-and over patterns, values unread.
	a := buildSparse(t, 3, 3,
		[]int64{0, 1, 1, 2}, []int64{0, 0, 1, 2}, []bool{false, false, false, false})
	b := buildSparse(t, 3, 2,
		[]int64{0, 2}, []int64{0, 1}, []bool{false, false})

	ops := Operands[bool, bool]{
		A: view(t, a), APattern: true, AOne: true,
		B: view(t, b), BPattern: true, BOne: true,
	}
	c := matrix.New[bool](3, 2)
	var pool workspace.Pool[bool]
	require.NoError(t, Gustavson(c, ops, nil, semiring.OrAnd(), &pool, alloc.Default))

	rows, cols, vals := tuples(t, c)
	assert.Equal(t, []int64{0, 1, 2}, rows)
	assert.Equal(t, []int64{0, 0, 1}, cols)
	assert.Equal(t, []bool{true, true, true}, vals, "stored false values must not leak through")
}

func TestEWiseAdd(t *testing.T) {
	a := buildSparse(t, 4, 2,
		[]int64{0, 2, 1}, []int64{0, 0, 1}, []float64{1, 3, 9})
	b := buildSparse(t, 4, 2,
		[]int64{2, 3, 1}, []int64{0, 0, 1}, []float64{10, 20, 1})

	c := matrix.New[float64](4, 2)
	plus := func(x, y float64) float64 { return x + y }
	require.NoError(t, EWiseAdd(c, view(t, a), view(t, b), plus, nil, alloc.Default))

	rows, cols, vals := tuples(t, c)
	assert.Equal(t, []int64{0, 2, 3, 1}, rows)
	assert.Equal(t, []int64{0, 0, 0, 1}, cols)
	assert.Equal(t, []float64{1, 13, 20, 10}, vals)
}

func TestEWiseAddComplementMask(t *testing.T) {
	a := buildSparse(t, 3, 1, []int64{0, 1}, []int64{0, 0}, []float64{1, 2})
	b := buildSparse(t, 3, 1, []int64{1, 2}, []int64{0, 0}, []float64{5, 6})
	mm := buildSparse(t, 3, 1, []int64{1}, []int64{0}, []bool{true})

	c := matrix.New[float64](3, 1)
	plus := func(x, y float64) float64 { return x + y }
	mask := &Mask{V: view(t, mm), Comp: true}
	require.NoError(t, EWiseAdd(c, view(t, a), view(t, b), plus, mask, alloc.Default))

	rows, _, vals := tuples(t, c)
	assert.Equal(t, []int64{0, 2}, rows)
	assert.Equal(t, []float64{1, 6}, vals)
}

func TestEWiseMult(t *testing.T) {
	a := buildSparse(t, 4, 2,
		[]int64{0, 2, 1}, []int64{0, 0, 1}, []float64{2, 3, 4})
	b := buildSparse(t, 4, 2,
		[]int64{2, 3, 1}, []int64{0, 0, 1}, []float64{10, 20, 5})

	c := matrix.New[float64](4, 2)
	times := func(x, y float64) float64 { return x * y }
	require.NoError(t, EWiseMult(c, view(t, a), view(t, b), times, nil, alloc.Default))

	rows, cols, vals := tuples(t, c)
	assert.Equal(t, []int64{2, 1}, rows)
	assert.Equal(t, []int64{0, 1}, cols)
	assert.Equal(t, []float64{30, 20}, vals)
}

func TestEWiseRangePhasesAgree(t *testing.T) {
	r := rand.New(rand.NewSource(19))
	ar, _, av := randCOO(r, 200, 1, 0.3)
	br, _, bv := randCOO(r, 200, 1, 0.3)

	a := Range[float64]{I: ar, X: av, Lo: 0, Hi: int64(len(ar))}
	b := Range[float64]{I: br, X: bv, Lo: 0, Hi: int64(len(br))}

	n := CountUnion(a, b, maskVec{})
	ci := make([]int64, n)
	cx := make([]float64, n)
	plus := func(x, y float64) float64 { return x + y }
	end := FillUnion(ci, cx, 0, a, b, plus, maskVec{})
	require.Equal(t, n, end, "count and fill must walk the same merge")

	ni := CountIntersect(a, b, maskVec{})
	di := make([]int64, ni)
	dx := make([]float64, ni)
	end = FillIntersect(di, dx, 0, a, b, plus, maskVec{})
	require.Equal(t, ni, end)
}

func TestColScale(t *testing.T) {
	a := buildSparse(t, 3, 3,
		[]int64{0, 1, 2, 0}, []int64{0, 0, 1, 2}, []float64{1, 2, 3, 4})
	d := Diagonal[float64]{D: []float64{10, 100, 1000}}

	c := matrix.New[float64](3, 3)
	times := func(x, y float64) float64 { return x * y }
	require.NoError(t, ColScale(c, view(t, a), false, 0.0, d, times, alloc.Default))

	rows, cols, vals := tuples(t, c)
	assert.Equal(t, []int64{0, 1, 2, 0}, rows)
	assert.Equal(t, []int64{0, 0, 1, 2}, cols)
	assert.Equal(t, []float64{10, 20, 300, 4000}, vals)
}

func TestRowScale(t *testing.T) {
	b := buildSparse(t, 3, 2,
		[]int64{0, 2, 1}, []int64{0, 0, 1}, []float64{1, 2, 3})
	d := Diagonal[float64]{D: []float64{10, 100, 1000}}

	c := matrix.New[float64](3, 2)
	times := func(x, y float64) float64 { return x * y }
	require.NoError(t, RowScale(c, d, view(t, b), false, 0.0, times, alloc.Default))

	_, _, vals := tuples(t, c)
	assert.Equal(t, []float64{10, 2000, 300}, vals)
}

func TestRowScalePatternDiagonal(t *testing.T) {
	b := buildSparse(t, 2, 1, []int64{0, 1}, []int64{0, 0}, []float64{3, 4})
	d := Diagonal[float64]{Pattern: true, One: 1}

	c := matrix.New[float64](2, 1)
	times := func(x, y float64) float64 { return x * y }
	require.NoError(t, RowScale(c, d, view(t, b), false, 0.0, times, alloc.Default))

	_, _, vals := tuples(t, c)
	assert.Equal(t, []float64{3, 4}, vals)
}

func TestDenseMul(t *testing.T) {
	// 2x3 times 3x2, values stored vector-major.
	a := matrix.NewFull(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := matrix.NewFull(3, 2, []float64{1, 0, 1, 0, 1, 1})

	c := matrix.New[float64](2, 2)
	require.NoError(t, DenseMul(c, a, b, alloc.Default))
	require.Equal(t, format.Full, c.Format())

	var want mat.Dense
	ad := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}) // Aᵗ row-major
	bd := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 1}) // Bᵗ row-major
	want.Mul(ad.T(), bd.T())
	for i := int64(0); i < 2; i++ {
		for j := int64(0); j < 2; j++ {
			got, ok := c.At(i, j)
			require.True(t, ok)
			assert.InDelta(t, want.At(int(i), int(j)), got, 1e-12)
		}
	}
}

func TestDenseMulRejectsSparseOperand(t *testing.T) {
	a := buildSparse(t, 2, 2, []int64{0}, []int64{0}, []float64{1})
	b := matrix.NewFull(2, 2, []float64{1, 2, 3, 4})
	c := matrix.New[float64](2, 2)
	require.ErrorIs(t, DenseMul(c, a, b, alloc.Default), matrix.ErrNotFull)
}

func TestKernelAllocationFailure(t *testing.T) {
	a := buildSparse(t, 3, 3, []int64{0}, []int64{0}, []float64{1})
	b := buildSparse(t, 3, 3, []int64{0}, []int64{0}, []float64{1})
	ops := Operands[float64, float64]{A: view(t, a), B: view(t, b)}

	la := &alloc.LimitAllocator{Budget: 1}
	c := matrix.New[float64](3, 3)
	var pool workspace.Pool[float64]
	require.ErrorIs(t, Gustavson(c, ops, nil, semiring.PlusTimesFP64(), &pool, la),
		alloc.ErrOutOfMemory)
}
