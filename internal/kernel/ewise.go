package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// Elementwise range kernels. Each operates on one index-aligned sub-range
// of two sorted vectors, produced by the vector partitioner, so parallel
// tasks can count and fill disjoint slices of the output with no
// synchronization. The count phase and the fill phase must agree exactly;
// both walk the same merge.

// Range is one partitioned piece of a vector's entries: storage offsets
// [Lo, Hi) within the shared index/value arrays.
type Range[T comparable] struct {
	I      []int64
	X      []T
	Lo, Hi int64
}

func (r Range[T]) empty() bool { return r.Lo < 0 || r.Lo >= r.Hi }

// CountUnion returns the number of output entries an eWiseAdd of the two
// ranges produces under the mask.
func CountUnion[T comparable](a, b Range[T], mv maskVec) int64 {
	var n int64
	unionWalk(a, b, func(i int64, _, _ bool) {
		if mv.allows(i) {
			n++
		}
	})
	return n
}

// FillUnion writes the eWiseAdd of the two ranges into ci/cx starting at
// offset out, applying op where both ranges hold the index and copying the
// single value elsewhere. It returns the offset one past the last entry
// written.
func FillUnion[T comparable](ci []int64, cx []T, out int64, a, b Range[T], op func(T, T) T, mv maskVec) int64 {
	pa, pb := a.Lo, b.Lo
	unionWalk(a, b, func(i int64, inA, inB bool) {
		var v T
		switch {
		case inA && inB:
			v = op(a.X[pa], b.X[pb])
			pa++
			pb++
		case inA:
			v = a.X[pa]
			pa++
		default:
			v = b.X[pb]
			pb++
		}
		if mv.allows(i) {
			ci[out] = i
			cx[out] = v
			out++
		}
	})
	return out
}

// unionWalk merges the two sorted ranges, reporting each distinct index
// once with presence flags.
func unionWalk[T comparable](a, b Range[T], visit func(i int64, inA, inB bool)) {
	pa, pb := a.Lo, b.Lo
	aOk := !a.empty()
	bOk := !b.empty()
	for {
		aLive := aOk && pa < a.Hi
		bLive := bOk && pb < b.Hi
		if !aLive && !bLive {
			return
		}
		switch {
		case aLive && bLive && a.I[pa] == b.I[pb]:
			visit(a.I[pa], true, true)
			pa++
			pb++
		case aLive && (!bLive || a.I[pa] < b.I[pb]):
			visit(a.I[pa], true, false)
			pa++
		default:
			visit(b.I[pb], false, true)
			pb++
		}
	}
}

// CountIntersect returns the number of output entries an eWiseMult of the
// two ranges produces under the mask.
func CountIntersect[A, B comparable](a Range[A], b Range[B], mv maskVec) int64 {
	var n int64
	intersectWalk(a, b, func(i int64, _, _ int64) {
		if mv.allows(i) {
			n++
		}
	})
	return n
}

// FillIntersect writes the eWiseMult of the two ranges into ci/cx starting
// at out, applying op at every shared index. It returns the next offset.
func FillIntersect[A, B, C comparable](ci []int64, cx []C, out int64, a Range[A], b Range[B], op func(A, B) C, mv maskVec) int64 {
	intersectWalk(a, b, func(i int64, pa, pb int64) {
		if mv.allows(i) {
			ci[out] = i
			cx[out] = op(a.X[pa], b.X[pb])
			out++
		}
	})
	return out
}

func intersectWalk[A, B comparable](a Range[A], b Range[B], visit func(i, pa, pb int64)) {
	if a.empty() || b.empty() {
		return
	}
	pa, pb := a.Lo, b.Lo
	for pa < a.Hi && pb < b.Hi {
		switch {
		case a.I[pa] < b.I[pb]:
			pa++
		case b.I[pb] < a.I[pa]:
			pb++
		default:
			visit(a.I[pa], pa, pb)
			pa++
			pb++
		}
	}
}

func vecRange[T comparable](v matrix.CSView[T], j int64) Range[T] {
	if k, ok := v.FindVec(j); ok {
		return Range[T]{I: v.I, X: v.X, Lo: v.P[k], Hi: v.P[k+1]}
	}
	return Range[T]{Lo: -1}
}

// EWiseAdd computes C = A (+) B, the set union of the two patterns. Where
// both inputs hold an entry the operator combines them; a lone entry is
// copied unchanged.
func EWiseAdd[T comparable](c *matrix.Matrix[T], av, bv matrix.CSView[T], op func(T, T) T, mask *Mask, al alloc.Allocator) error {
	kernelRuns.WithLabelValues("ewise_add").Inc()
	vdim := c.Vdim()

	cpBuf, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	cp := cpBuf
	cp[0] = 0
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		cp[j+1] = cp[j] + CountUnion(vecRange(av, j), vecRange(bv, j), mv)
	}

	cnz := cp[vdim]
	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cpBuf)
		return err
	}
	cx, err := alloc.Slice[T](al, int(cnz))
	if err != nil {
		alloc.Release(al, cpBuf)
		alloc.Release(al, ci)
		return err
	}
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		FillUnion(ci, cx, cp[j], vecRange(av, j), vecRange(bv, j), op, mv)
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}

// EWiseMult computes C = A (*) B, the set intersection of the two patterns.
func EWiseMult[A, B, C comparable](c *matrix.Matrix[C], av matrix.CSView[A], bv matrix.CSView[B], op func(A, B) C, mask *Mask, al alloc.Allocator) error {
	kernelRuns.WithLabelValues("ewise_mult").Inc()
	vdim := c.Vdim()

	cpBuf, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	cp := cpBuf
	cp[0] = 0
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		cp[j+1] = cp[j] + CountIntersect(vecRange(av, j), vecRange(bv, j), mv)
	}

	cnz := cp[vdim]
	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cpBuf)
		return err
	}
	cx, err := alloc.Slice[C](al, int(cnz))
	if err != nil {
		alloc.Release(al, cpBuf)
		alloc.Release(al, ci)
		return err
	}
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		FillIntersect(ci, cx, cp[j], vecRange(av, j), vecRange(bv, j), op, mv)
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}
