package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/semiring"
)

// heapSource is one contributing (A-column, scalar-from-B) pair: a cursor
// over A(:,k) plus the B(k,j) scalar every popped entry is multiplied with.
// Sources are ordered by current row index, ties broken by column so that
// equal-index contributions merge in ascending-k order, matching the
// accumulation order of the other multiply kernels.
type heapSource[B comparable] struct {
	i     int64 // row index at the cursor
	k     int64 // contributing column, tie break
	pa    int64
	paEnd int64
	bkj   B
}

type srcHeap[B comparable] []heapSource[B]

func (h srcHeap[B]) less(s, t int) bool {
	if h[s].i != h[t].i {
		return h[s].i < h[t].i
	}
	return h[s].k < h[t].k
}

func (h srcHeap[B]) siftDown(s int) {
	for {
		l, r := 2*s+1, 2*s+2
		min := s
		if l < len(h) && h.less(l, min) {
			min = l
		}
		if r < len(h) && h.less(r, min) {
			min = r
		}
		if min == s {
			return
		}
		h[s], h[min] = h[min], h[s]
		s = min
	}
}

func (h srcHeap[B]) siftUp(s int) {
	for s > 0 {
		parent := (s - 1) / 2
		if !h.less(s, parent) {
			return
		}
		h[s], h[parent] = h[parent], h[s]
		s = parent
	}
}

// Heap computes C = A ⊕.⊗ B by merging each output vector's contributing
// columns through a min-heap keyed on row index. It avoids a vlen-sized
// workspace scan, which pays off when a vector is assembled from very many
// small contributions.
func Heap[A, B, C comparable](
	c *matrix.Matrix[C],
	ops Operands[A, B],
	mask *Mask,
	s semiring.Semiring[A, B, C],
	a alloc.Allocator,
) error {
	kernelRuns.WithLabelValues("heap").Inc()
	burble.Log().Str("kernel", "heap").Str("semiring", s.Name).Msg("mxm")

	cvdim := ops.B.Vdim

	cp, err := alloc.Slice[int64](a, int(cvdim+1))
	if err != nil {
		return err
	}
	capHint := int(int64(len(ops.A.I)) + int64(len(ops.B.I)))
	ciBuf, err := alloc.Slice[int64](a, capHint)
	if err != nil {
		return err
	}
	cxBuf, err := alloc.Slice[C](a, capHint)
	if err != nil {
		return err
	}
	ci := ciBuf[:0]
	cx := cxBuf[:0]

	var h srcHeap[B]

	for j := int64(0); j < cvdim; j++ {
		cp[j] = int64(len(ci))

		bk, ok := ops.B.FindVec(j)
		if !ok {
			continue
		}

		// Seed the heap with one source per non-empty contributing column.
		h = h[:0]
		for q := ops.B.P[bk]; q < ops.B.P[bk+1]; q++ {
			k := ops.B.I[q]
			ak, ok := ops.A.FindVec(k)
			if !ok {
				continue
			}
			pa, paEnd := ops.A.P[ak], ops.A.P[ak+1]
			if pa == paEnd {
				continue
			}
			h = append(h, heapSource[B]{i: ops.A.I[pa], k: k, pa: pa, paEnd: paEnd, bkj: ops.bVal(q)})
			h.siftUp(len(h) - 1)
		}

		mv := mask.forVector(j)

		curI := int64(-1)
		var cij C
		flush := func() {
			if curI >= 0 && mv.allows(curI) {
				ci = append(ci, curI)
				cx = append(cx, cij)
			}
			curI = -1
		}

		for len(h) > 0 {
			top := h[0]
			z := s.Mult(ops.aVal(top.pa), top.bkj)
			if top.i != curI {
				flush()
				curI = top.i
				cij = z
			} else {
				cij = s.Add.Op(cij, z)
			}

			// Advance the popped source and restore heap order.
			top.pa++
			if top.pa < top.paEnd {
				top.i = ops.A.I[top.pa]
				h[0] = top
				h.siftDown(0)
			} else {
				h[0] = h[len(h)-1]
				h = h[:len(h)-1]
				if len(h) > 0 {
					h.siftDown(0)
				}
			}
		}
		flush()
	}
	cp[cvdim] = int64(len(ci))

	c.AdoptSparse(cp, ci, cx)
	return nil
}
