package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// Assign computes C<M> = A over the whole matrix: where the mask admits an
// index, C takes A's entry there (or loses its own if A has none); where
// the mask does not, C keeps its existing entry. C must be sparse-like
// with no pending work.
func Assign[T comparable](c *matrix.Matrix[T], av matrix.CSView[T], mask *Mask, al alloc.Allocator) error {
	kernelRuns.WithLabelValues("assign").Inc()

	cv, ok := c.SparseView()
	if !ok {
		panic("kernel: Assign target is not a settled sparse-like matrix")
	}
	vdim := c.Vdim()

	cp, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	cp[0] = 0
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		var n int64
		assignWalk(vecRange(cv, j), vecRange(av, j), mv, func(int64, T) {
			n++
		})
		cp[j+1] = cp[j] + n
	}

	cnz := cp[vdim]
	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[T](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}
	out := int64(0)
	for j := int64(0); j < vdim; j++ {
		mv := mask.forVector(j)
		assignWalk(vecRange(cv, j), vecRange(av, j), mv, func(i int64, v T) {
			ci[out] = i
			cx[out] = v
			out++
		})
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}

// assignWalk merges the current contents with the assigned operand,
// emitting the surviving entry per index: the operand's inside the mask,
// the original's outside it.
func assignWalk[T comparable](cur, asg Range[T], mv maskVec, emit func(i int64, v T)) {
	pc, pa := cur.Lo, asg.Lo
	unionWalk(cur, asg, func(i int64, inC, inA bool) {
		var cv, av T
		if inC {
			cv = cur.X[pc]
			pc++
		}
		if inA {
			av = asg.X[pa]
			pa++
		}
		if mv.allows(i) {
			if inA {
				emit(i, av)
			}
		} else if inC {
			emit(i, cv)
		}
	})
}
