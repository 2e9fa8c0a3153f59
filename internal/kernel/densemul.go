package kernel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// DenseMul computes C = A·B over the conventional plus-times float64
// semiring when both inputs are full, delegating to the BLAS-backed dense
// routines. Values are stored vector-major, which is the row-major layout
// of the transpose, so the product is formed as Cᵗ = Bᵗ·Aᵗ.
func DenseMul(c, a, b *matrix.Matrix[float64], al alloc.Allocator) error {
	ax, ok := a.FullValues()
	if !ok {
		return matrix.ErrNotFull
	}
	bx, ok := b.FullValues()
	if !ok {
		return matrix.ErrNotFull
	}
	kernelRuns.WithLabelValues("dense").Inc()
	burble.Log().Str("kernel", "dense").Msg("mxm")

	m := int(a.Vlen())
	k := int(a.Vdim())
	n := int(b.Vdim())

	cx, err := alloc.Slice[float64](al, m*n)
	if err != nil {
		return err
	}
	aT := mat.NewDense(k, m, ax)
	bT := mat.NewDense(n, k, bx)
	cT := mat.NewDense(n, m, cx)
	cT.Mul(bT, aT)

	c.AdoptFull(cx)
	return nil
}
