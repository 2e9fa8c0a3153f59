package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/internal/workspace"
	"github.com/cjnolet/GraphBLAS/semiring"
)

// Gustavson computes C = A ⊕.⊗ B by gather/scatter accumulation: for each
// output vector, A's contributing columns are scattered into a dense
// workspace and the marked slots are gathered back out in ascending index
// order. A symbolic pass sizes every output vector first, so the index and
// value arrays are allocated exactly and never regrow outside the
// allocator. Best when output vectors are moderately dense relative to
// vlen.
func Gustavson[A, B, C comparable](
	c *matrix.Matrix[C],
	ops Operands[A, B],
	mask *Mask,
	s semiring.Semiring[A, B, C],
	pool *workspace.Pool[C],
	a alloc.Allocator,
) error {
	kernelRuns.WithLabelValues("gustavson").Inc()
	burble.Log().Str("kernel", "gustavson").Str("semiring", s.Name).Msg("mxm")

	cvlen := ops.A.Vlen
	cvdim := ops.B.Vdim

	cp, err := alloc.Slice[int64](a, int(cvdim+1))
	if err != nil {
		return err
	}

	w, err := pool.Get(a, cvlen)
	if err != nil {
		return err
	}
	defer pool.Put(w)

	cp[0] = 0
	for j := int64(0); j < cvdim; j++ {
		cp[j+1] = cp[j] + symbolicVector(ops, mask, w, j)
	}

	nvals := cp[cvdim]
	ci, err := alloc.Slice[int64](a, int(nvals))
	if err != nil {
		return err
	}
	cx, err := alloc.Slice[C](a, int(nvals))
	if err != nil {
		return err
	}

	var pattern []int64
	for j := int64(0); j < cvdim; j++ {
		pattern = numericVector(ops, mask, s, w, j, ci[cp[j]:cp[j+1]], cx[cp[j]:cp[j+1]], pattern)
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}
