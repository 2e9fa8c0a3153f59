// Package kernel implements the specialized multiply and elementwise
// algorithms: gather/scatter accumulation (Gustavson), sorted dot-product
// with terminal short-circuit, heap-merge, and the elementwise
// union/intersect/scale family. All kernels are generic over a semiring or
// binary operator and consume matrices through compressed views prepared by
// the conformance engine.
package kernel

import (
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// Operands carries the two multiply inputs. A pattern-only operand
// contributes its One value in place of every stored value, so structural
// multiplies never read the value array.
type Operands[A, B comparable] struct {
	A        matrix.CSView[A]
	APattern bool
	AOne     A

	B        matrix.CSView[B]
	BPattern bool
	BOne     B
}

func (o Operands[A, B]) aVal(q int64) A {
	if o.APattern {
		return o.AOne
	}
	return o.A.X[q]
}

func (o Operands[A, B]) bVal(q int64) B {
	if o.BPattern {
		return o.BOne
	}
	return o.B.X[q]
}

// Mask restricts which output positions a kernel computes. Structural masks
// consider presence only; valued masks require a true stored value. Comp
// complements the mask.
type Mask struct {
	V          matrix.CSView[bool]
	Comp       bool
	Structural bool
}

// maskVec is a Mask narrowed to one output vector.
type maskVec struct {
	i          []int64
	x          []bool
	lo, hi     int64
	comp       bool
	structural bool
	present    bool
}

// forVector resolves the mask for output vector j. A nil mask allows
// everything.
func (m *Mask) forVector(j int64) maskVec {
	if m == nil {
		return maskVec{}
	}
	mv := maskVec{comp: m.Comp, structural: m.Structural, present: true}
	if k, ok := m.V.FindVec(j); ok {
		mv.i = m.V.I
		mv.x = m.V.X
		mv.lo, mv.hi = m.V.P[k], m.V.P[k+1]
	}
	return mv
}

// allows reports whether the mask admits output index i.
func (m maskVec) allows(i int64) bool {
	if !m.present {
		return true
	}
	in := false
	lo, hi := m.lo, m.hi
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case m.i[mid] == i:
			in = m.structural || m.x[mid]
			lo = hi
		case m.i[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	if m.comp {
		return !in
	}
	return in
}
