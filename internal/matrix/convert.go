package matrix

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
)

// The conversion toolkit. Every conversion builds a complete replacement
// payload and installs it with one assignment; allocation failure is the
// only error any of them can produce. Callers (the conformance engine) are
// responsible for clearing the matrix when a conversion fails.

func (m *Matrix[T]) convertLog(to format.Format) {
	from := m.pay.fmtKind()
	if from == to {
		return
	}
	conversions.WithLabelValues(from.String(), to.String()).Inc()
	burble.Log().
		Str("conv", from.String()+"_to_"+to.String()).
		Int64("nvals", m.NVals()).
		Msg("convert")
}

// ToSparse converts the matrix to sparse, keeping any pending work a
// sparse-like payload already carries.
func (m *Matrix[T]) ToSparse(a alloc.Allocator) error {
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		return nil
	case *hyperPayload[T]:
		m.convertLog(format.Sparse)
		np, err := alloc.Slice[int64](a, int(m.vdim+1))
		if err != nil {
			return err
		}
		// Expand the compact vector list into one slot per vector.
		var kk int
		var off int64
		for j := int64(0); j < m.vdim; j++ {
			np[j] = off
			if kk < len(p.h) && p.h[kk] == j {
				off += p.p[kk+1] - p.p[kk]
				kk++
			}
		}
		np[m.vdim] = off
		m.pay = &sparsePayload[T]{
			p: np, i: p.i, x: p.x,
			zombies: p.zombies, jumbled: p.jumbled, pending: p.pending,
		}
		return nil
	case *bitmapPayload[T]:
		m.convertLog(format.Sparse)
		ni, err := alloc.Slice[int64](a, int(p.n))
		if err != nil {
			return err
		}
		nx, err := alloc.Slice[T](a, int(p.n))
		if err != nil {
			return err
		}
		np, err := alloc.Slice[int64](a, int(m.vdim+1))
		if err != nil {
			return err
		}
		var out int64
		for k := int64(0); k < m.vdim; k++ {
			np[k] = out
			base := k * m.vlen
			for i := int64(0); i < m.vlen; i++ {
				if p.b.Test(uint(base + i)) {
					ni[out] = i
					nx[out] = p.x[base+i]
					out++
				}
			}
		}
		np[m.vdim] = out
		m.pay = &sparsePayload[T]{p: np, i: ni[:out], x: nx[:out]}
		return nil
	case *fullPayload[T]:
		m.convertLog(format.Sparse)
		n := m.vlen * m.vdim
		ni, err := alloc.Slice[int64](a, int(n))
		if err != nil {
			return err
		}
		np, err := alloc.Slice[int64](a, int(m.vdim+1))
		if err != nil {
			return err
		}
		for k := int64(0); k <= m.vdim; k++ {
			np[k] = k * m.vlen
		}
		for q := int64(0); q < n; q++ {
			ni[q] = q % m.vlen
		}
		m.pay = &sparsePayload[T]{p: np, i: ni, x: p.x}
		return nil
	}
	return nil
}

// ToHyper converts the matrix to hypersparse, keeping pending work.
func (m *Matrix[T]) ToHyper(a alloc.Allocator) error {
	if _, ok := m.pay.(*hyperPayload[T]); ok {
		return nil
	}
	if err := m.ToSparse(a); err != nil {
		return err
	}
	p := m.pay.(*sparsePayload[T])
	m.convertLog(format.Hypersparse)

	var nvec int64
	for k := int64(0); k < m.vdim; k++ {
		if p.p[k+1] > p.p[k] {
			nvec++
		}
	}
	nh, err := alloc.Slice[int64](a, int(nvec))
	if err != nil {
		return err
	}
	np, err := alloc.Slice[int64](a, int(nvec+1))
	if err != nil {
		return err
	}
	var kk int64
	for k := int64(0); k < m.vdim; k++ {
		if p.p[k+1] > p.p[k] {
			nh[kk] = k
			np[kk] = p.p[k]
			kk++
		}
	}
	np[nvec] = p.p[m.vdim]
	m.pay = &hyperPayload[T]{
		h: nh, p: np, i: p.i, x: p.x,
		zombies: p.zombies, jumbled: p.jumbled, pending: p.pending,
	}
	return nil
}

// ToBitmap converts the matrix to bitmap. Pending work is assembled first;
// bitmap payloads never carry any.
func (m *Matrix[T]) ToBitmap(a alloc.Allocator) error {
	if _, ok := m.pay.(*bitmapPayload[T]); ok {
		return nil
	}
	if err := m.Wait(a); err != nil {
		return err
	}
	m.convertLog(format.Bitmap)

	n := m.vlen * m.vdim
	nx, err := alloc.Slice[T](a, int(n))
	if err != nil {
		return err
	}
	b := bitset.New(uint(n))

	switch p := m.pay.(type) {
	case *fullPayload[T]:
		copy(nx, p.x)
		for q := int64(0); q < n; q++ {
			b.Set(uint(q))
		}
		m.pay = &bitmapPayload[T]{b: b, x: nx, n: n}
		return nil
	case *sparsePayload[T]:
		var count int64
		for k := int64(0); k < m.vdim; k++ {
			base := k * m.vlen
			for q := p.p[k]; q < p.p[k+1]; q++ {
				b.Set(uint(base + p.i[q]))
				nx[base+p.i[q]] = p.x[q]
				count++
			}
		}
		m.pay = &bitmapPayload[T]{b: b, x: nx, n: count}
		return nil
	case *hyperPayload[T]:
		var count int64
		for kk := 0; kk < len(p.h); kk++ {
			base := p.h[kk] * m.vlen
			for q := p.p[kk]; q < p.p[kk+1]; q++ {
				b.Set(uint(base + p.i[q]))
				nx[base+p.i[q]] = p.x[q]
				count++
			}
		}
		m.pay = &bitmapPayload[T]{b: b, x: nx, n: count}
		return nil
	}
	return nil
}

// ToFull converts a fully dense matrix with no pending work to full. The
// caller (the conformance engine) guarantees density; ToFull panics
// otherwise, since losing implicit entries silently would corrupt results.
func (m *Matrix[T]) ToFull(a alloc.Allocator) error {
	if _, ok := m.pay.(*fullPayload[T]); ok {
		return nil
	}
	if m.hasPendingWork() || !m.IsDense() {
		panic("matrix: ToFull on a matrix that is not all-present")
	}
	m.convertLog(format.Full)

	switch p := m.pay.(type) {
	case *bitmapPayload[T]:
		// Every bit is set; the dense value array is already laid out.
		m.pay = &fullPayload[T]{x: p.x}
		return nil
	default:
		n := m.vlen * m.vdim
		nx, err := alloc.Slice[T](a, int(n))
		if err != nil {
			return err
		}
		v, _ := m.SparseView()
		for k := int64(0); k < v.NVec(); k++ {
			base := v.VecID(k) * m.vlen
			for q := v.P[k]; q < v.P[k+1]; q++ {
				nx[base+v.I[q]] = v.X[q]
			}
		}
		m.pay = &fullPayload[T]{x: nx}
		return nil
	}
}
