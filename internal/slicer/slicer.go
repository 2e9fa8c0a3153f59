// Package slicer splits the work of combining two (or, with a mask, three)
// sorted index sequences into balanced, index-aligned sub-ranges. It is the
// ahead-of-execution partitioner: every task boundary is known before any
// kernel runs, so tasks write disjoint ranges with no synchronization.
package slicer

// Empty is the offset sentinel returned for a sequence with no entries in
// the vector being sliced.
const Empty = int64(-1)

// Tolerance is the relative band around the work target inside which a
// split is accepted. The band exists to stop the outer binary search from
// oscillating on integer rounding; the optimal width depends on typical
// vector sizes, so it is a parameter rather than a constant.
type Tolerance struct {
	Lo, Hi float64
}

// DefaultTolerance accepts work within ±0.01% of the target.
var DefaultTolerance = Tolerance{Lo: 0.9999, Hi: 1.0001}

func (t Tolerance) orDefault() Tolerance {
	if t.Lo == 0 && t.Hi == 0 {
		return DefaultTolerance
	}
	return t
}

// Seq describes one sorted index sequence: the index array it lives in and
// the half-open storage range [Start, End) holding this vector's entries.
type Seq struct {
	I          []int64
	Start, End int64
}

// Len returns the number of entries of the sequence.
func (s Seq) Len() int64 { return s.End - s.Start }

// Split is a task partition boundary: all entries of each sequence at
// offsets below the boundary have index < I; entries at or after have
// index >= I. Offsets are Empty for sequences with no entries.
type Split struct {
	I          int64
	PA, PB, PM int64
}

// locate finds the storage offset of the first entry with index >= i,
// using the dense fast path when the sequence fills the whole vector.
func locate(s Seq, i, vlen int64) int64 {
	n := s.Len()
	if n == 0 {
		return Empty
	}
	if n == vlen {
		// Fully dense for this vector: entry q sits at Start+q.
		return s.Start + i
	}
	lo, hi := s.Start, s.End
	for lo < hi {
		mid := (lo + hi) / 2
		if s.I[mid] < i {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// SliceVector finds a split index i in [0, vlen] such that the work
// remaining from i to the end of A and B is approximately targetWork,
// where work counts one unit per remaining entry. The mask sequence m does
// not contribute work; its offset is resolved once i has converged.
//
// Each outer binary-search step performs one inner search per sequence, so
// the total cost is O(log(vlen) * (log|A| + log|B|)).
func SliceVector(a, b, m Seq, vlen int64, targetWork float64, tol Tolerance) Split {
	tol = tol.orDefault()

	ileft, iright := int64(0), vlen-1
	var i int64

	aEmpty := a.Len() == 0
	bEmpty := b.Len() == 0

	pA, pB := Empty, Empty
	if !aEmpty {
		pA = a.Start
	}
	if !bEmpty {
		pB = b.Start
	}

	for ileft < iright {
		i = (ileft + iright) / 2

		pA = locate(a, i, vlen)
		pB = locate(b, i, vlen)

		var work float64
		if !aEmpty {
			work += float64(a.End - pA)
		}
		if !bEmpty {
			work += float64(b.End - pB)
		}

		switch {
		case work < tol.Lo*targetWork:
			// Too little work remains, so i is too far right.
			iright = i
		case work > tol.Hi*targetWork:
			ileft = i + 1
		default:
			return Split{I: i, PA: pA, PB: pB, PM: locate(m, i, vlen)}
		}
	}

	return Split{I: i, PA: pA, PB: pB, PM: locate(m, i, vlen)}
}
