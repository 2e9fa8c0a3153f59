// Package conform settles a matrix into a physical format permitted by its
// sparsity control and consistent with its density. Conforming is the only
// place format policy lives; the conversion toolkit itself is policy-free.
//
// A failed conversion clears the matrix of all entries before the error is
// returned, so no partially converted state ever escapes.
package conform

import (
	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// Apply conforms m in place. The permitted-format bitmask selects one of
// fifteen resolution policies; the density predicates carry hysteresis, so
// a matrix between the two switch thresholds keeps whichever format it
// already has and Apply is idempotent.
func Apply[T any](m *matrix.Matrix[T], a alloc.Allocator) error {
	before := m.Format()
	if err := resolve(m, a); err != nil {
		m.Clear()
		conformFailures.Inc()
		return err
	}
	if after := m.Format(); after != before {
		burble.Log().
			Stringer("from", before).
			Stringer("to", after).
			Stringer("control", m.Control()).
			Msg("conform")
	}
	return nil
}

func resolve[T any](m *matrix.Matrix[T], a alloc.Allocator) error {
	f := m.Format()
	isHyper := f == format.Hypersparse
	isSparse := f == format.Sparse
	isBitmap := f == format.Bitmap
	isFull := f == format.Full

	zombies, jumbled, pending := m.PendingWork()
	denseNoPending := isFull ||
		(m.IsDense() && zombies == 0 && !jumbled && pending == 0)

	const (
		h = format.HypersparseBit
		s = format.SparseBit
		b = format.BitmapBit
		d = format.FullBit
	)

	switch m.Control().Effective() {
	case h:
		return m.ToHyper(a)

	case s:
		return m.ToSparse(a)

	case h | s:
		if isFull || isBitmap {
			if err := m.ToSparse(a); err != nil {
				return err
			}
		}
		return conformHyper(m, a)

	case b:
		return m.ToBitmap(a)

	case h | b:
		return hyperOrBitmap(m, a, isHyper, isSparse, isBitmap, isFull)

	case s | b:
		return sparseOrBitmap(m, a, isHyper, isSparse, isBitmap, isFull)

	case h | s | b:
		return hyperSparseOrBitmap(m, a, isBitmap, isFull)

	case d, d | b:
		if denseNoPending {
			return m.ToFull(a)
		}
		return m.ToBitmap(a)

	case h | d:
		if denseNoPending {
			return m.ToFull(a)
		}
		return m.ToHyper(a)

	case s | d:
		if denseNoPending {
			return m.ToFull(a)
		}
		return m.ToSparse(a)

	case h | s | d:
		if denseNoPending {
			return m.ToFull(a)
		}
		if isBitmap {
			if err := m.ToSparse(a); err != nil {
				return err
			}
		}
		return conformHyper(m, a)

	case h | b | d:
		if denseNoPending {
			return m.ToFull(a)
		}
		return hyperOrBitmap(m, a, isHyper, isSparse, isBitmap, isFull)

	case s | b | d:
		if denseNoPending {
			return m.ToFull(a)
		}
		return sparseOrBitmap(m, a, isHyper, isSparse, isBitmap, isFull)

	default: // all four formats permitted
		if denseNoPending {
			return m.ToFull(a)
		}
		return hyperSparseOrBitmap(m, a, isBitmap, isFull)
	}
}

// hyperOrBitmap settles m into hypersparse or bitmap.
func hyperOrBitmap[T any](m *matrix.Matrix[T], a alloc.Allocator, isHyper, isSparse, isBitmap, isFull bool) error {
	if isFull || ((isHyper || isSparse) && format.SparseToBitmapTest(
		m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim())) {
		return m.ToBitmap(a)
	}
	if isSparse || (isBitmap && format.BitmapToSparseTest(
		m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim())) {
		return m.ToHyper(a)
	}
	return nil
}

// sparseOrBitmap settles m into sparse or bitmap.
func sparseOrBitmap[T any](m *matrix.Matrix[T], a alloc.Allocator, isHyper, isSparse, isBitmap, isFull bool) error {
	if isFull || ((isHyper || isSparse) && format.SparseToBitmapTest(
		m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim())) {
		return m.ToBitmap(a)
	}
	if isHyper || (isBitmap && format.BitmapToSparseTest(
		m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim())) {
		return m.ToSparse(a)
	}
	return nil
}

// hyperSparseOrBitmap settles m into hypersparse, sparse, or bitmap.
func hyperSparseOrBitmap[T any](m *matrix.Matrix[T], a alloc.Allocator, isBitmap, isFull bool) error {
	if isFull || (!isBitmap && format.SparseToBitmapTest(
		m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim())) {
		return m.ToBitmap(a)
	}
	if isBitmap {
		if format.BitmapToSparseTest(
			m.BitmapSwitch(), m.NVals(), m.Vlen(), m.Vdim()) {
			if err := m.ToSparse(a); err != nil {
				return err
			}
			return conformHyper(m, a)
		}
		return nil
	}
	return conformHyper(m, a)
}

// conformHyper settles a sparse-like matrix between sparse and hypersparse
// by the ratio of populated vectors to total vectors.
func conformHyper[T any](m *matrix.Matrix[T], a alloc.Allocator) error {
	switch m.Format() {
	case format.Sparse:
		if format.SparseToHyperTest(m.HyperSwitch(), m.NVecNonEmpty(), m.Vdim()) {
			return m.ToHyper(a)
		}
	case format.Hypersparse:
		if format.HyperToSparseTest(m.HyperSwitch(), m.NVecNonEmpty(), m.Vdim()) {
			return m.ToSparse(a)
		}
	}
	return nil
}
