package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// Diagonal is the diagonal operand of a scale kernel. A pattern-only
// diagonal contributes One for every coefficient.
type Diagonal[T comparable] struct {
	D       []T
	Pattern bool
	One     T
}

func (d Diagonal[T]) at(j int64) T {
	if d.Pattern {
		return d.One
	}
	return d.D[j]
}

// ColScale computes C = A*D where D is diagonal: column j of A is scaled
// by D(j,j). The output pattern is exactly A's pattern, so the index plane
// is copied and only values are computed.
func ColScale[A, D, C comparable](c *matrix.Matrix[C], av matrix.CSView[A], aPat bool, aOne A, d Diagonal[D], op func(A, D) C, al alloc.Allocator) error {
	kernelRuns.WithLabelValues("colscale").Inc()
	vdim := c.Vdim()

	anz := int64(len(av.I))
	cp, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	ci, err := alloc.Slice[int64](al, int(anz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[C](al, int(anz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}
	copy(ci, av.I)

	out := int64(0)
	for j := int64(0); j < vdim; j++ {
		cp[j] = out
		k, ok := av.FindVec(j)
		if !ok {
			continue
		}
		djj := d.at(j)
		for q := av.P[k]; q < av.P[k+1]; q++ {
			aij := aOne
			if !aPat {
				aij = av.X[q]
			}
			cx[out] = op(aij, djj)
			out++
		}
	}
	cp[vdim] = out

	c.AdoptSparse(cp, ci[:out], cx[:out])
	return nil
}

// RowScale computes C = D*B where D is diagonal: row i of B is scaled by
// D(i,i). Like ColScale the pattern is unchanged; each stored B(i,j) maps
// to op(D(i,i), B(i,j)).
func RowScale[D, B, C comparable](c *matrix.Matrix[C], d Diagonal[D], bv matrix.CSView[B], bPat bool, bOne B, op func(D, B) C, al alloc.Allocator) error {
	kernelRuns.WithLabelValues("rowscale").Inc()
	vdim := c.Vdim()

	bnz := int64(len(bv.I))
	cp, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	ci, err := alloc.Slice[int64](al, int(bnz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[C](al, int(bnz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}
	copy(ci, bv.I)

	out := int64(0)
	for j := int64(0); j < vdim; j++ {
		cp[j] = out
		k, ok := bv.FindVec(j)
		if !ok {
			continue
		}
		for q := bv.P[k]; q < bv.P[k+1]; q++ {
			i := bv.I[q]
			bij := bOne
			if !bPat {
				bij = bv.X[q]
			}
			cx[out] = op(d.at(i), bij)
			out++
		}
	}
	cp[vdim] = out

	c.AdoptSparse(cp, ci[:out], cx[:out])
	return nil
}
