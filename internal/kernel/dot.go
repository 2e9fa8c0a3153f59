package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/semiring"
)

// Dot computes C = A' ⊕.⊗ B by merge-intersecting A's and B's sorted
// vectors in lock-step: C(i,j) accumulates the semiring product over the
// indices A(:,i) and B(:,j) share. An entry is produced only when at least
// one index matches. Once the accumulator reaches the monoid's terminal
// value, co-iteration stops immediately.
func Dot[A, B, C comparable](
	c *matrix.Matrix[C],
	ops Operands[A, B],
	mask *Mask,
	s semiring.Semiring[A, B, C],
	a alloc.Allocator,
) error {
	kernelRuns.WithLabelValues("dot").Inc()
	burble.Log().Str("kernel", "dot").Str("semiring", s.Name).Msg("mxm")

	// C is cvlen x cvdim where cvlen counts A's vectors (A is consumed as
	// its transpose).
	cvlen := ops.A.Vdim
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

	for j := int64(0); j < cvdim; j++ {
		cp[j] = int64(len(ci))

		bk, ok := ops.B.FindVec(j)
		if !ok {
			continue
		}
		bLo, bHi := ops.B.P[bk], ops.B.P[bk+1]
		if bLo == bHi {
			continue
		}
		mv := mask.forVector(j)

		for i := int64(0); i < cvlen; i++ {
			if !mv.allows(i) {
				continue
			}
			ak, ok := ops.A.FindVec(i)
			if !ok {
				continue
			}
			pa, paEnd := ops.A.P[ak], ops.A.P[ak+1]
			pb := bLo

			cij := s.Add.Identity
			exists := false
			for pa < paEnd && pb < bHi {
				ia, ib := ops.A.I[pa], ops.B.I[pb]
				switch {
				case ia < ib:
					pa++
				case ib < ia:
					pb++
				default:
					z := s.Mult(ops.aVal(pa), ops.bVal(pb))
					if !exists {
						cij = z
						exists = true
					} else {
						cij = s.Add.Op(cij, z)
					}
					if s.Add.IsTerminal(cij) {
						pa, pb = paEnd, bHi
						continue
					}
					pa++
					pb++
				}
			}
			if exists {
				ci = append(ci, i)
				cx = append(cx, cij)
			}
		}
	}
	cp[cvdim] = int64(len(ci))

	c.AdoptSparse(cp, ci, cx)
	return nil
}
