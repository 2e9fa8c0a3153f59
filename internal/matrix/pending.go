package matrix

import (
	"fmt"
	"sort"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
)

// SetElement stores v at index i of vector k. Bitmap and full payloads are
// updated in place; sparse-like payloads buffer the insertion as a pending
// tuple to be merged by Wait.
func (m *Matrix[T]) SetElement(i, k int64, v T) {
	if i < 0 || i >= m.vlen || k < 0 || k >= m.vdim {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", i, k, m.vlen, m.vdim))
	}
	switch p := m.pay.(type) {
	case *fullPayload[T]:
		p.x[m.slot(i, k)] = v
	case *bitmapPayload[T]:
		s := m.slot(i, k)
		if !p.b.Test(uint(s)) {
			p.b.Set(uint(s))
			p.n++
		}
		p.x[s] = v
	case *sparsePayload[T]:
		p.pending = append(p.pending, tuple[T]{i: i, j: k, x: v})
	case *hyperPayload[T]:
		p.pending = append(p.pending, tuple[T]{i: i, j: k, x: v})
	}
}

// RemoveElement deletes the entry at index i of vector k if present. Sparse
// deletions leave a zombie behind; bitmap deletions clear the presence bit;
// a full matrix is first demoted to bitmap since it cannot represent a hole.
func (m *Matrix[T]) RemoveElement(a alloc.Allocator, i, k int64) error {
	if i < 0 || i >= m.vlen || k < 0 || k >= m.vdim {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", i, k, m.vlen, m.vdim))
	}
	switch p := m.pay.(type) {
	case *fullPayload[T]:
		if err := m.ToBitmap(a); err != nil {
			return err
		}
		return m.RemoveElement(a, i, k)
	case *bitmapPayload[T]:
		s := m.slot(i, k)
		if p.b.Test(uint(s)) {
			p.b.Clear(uint(s))
			p.n--
		}
		return nil
	case *sparsePayload[T]:
		if len(p.pending) > 0 {
			if err := m.Wait(a); err != nil {
				return err
			}
			return m.RemoveElement(a, i, k)
		}
		if p.jumbled {
			if err := m.Wait(a); err != nil {
				return err
			}
			return m.RemoveElement(a, i, k)
		}
		if q, ok := findPos(p.i, p.p[k], p.p[k+1], i); ok {
			p.i[q] = flip(p.i[q])
			p.zombies++
		}
		return nil
	case *hyperPayload[T]:
		if len(p.pending) > 0 || p.jumbled {
			if err := m.Wait(a); err != nil {
				return err
			}
			return m.RemoveElement(a, i, k)
		}
		kk, ok := findVec(p.h, k)
		if !ok {
			return nil
		}
		if q, ok := findPos(p.i, p.p[kk], p.p[kk+1], i); ok {
			p.i[q] = flip(p.i[q])
			p.zombies++
		}
		return nil
	}
	return nil
}

func findPos(idx []int64, lo, hi, i int64) (int64, bool) {
	for lo < hi {
		mid := (lo + hi) / 2
		v := idx[mid]
		if isZombie(v) {
			v = flip(v)
		}
		switch {
		case v == i:
			if isZombie(idx[mid]) {
				return 0, false
			}
			return mid, true
		case v < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// Wait finishes all pending work: zombies are compacted out, jumbled
// vectors are sorted, and pending tuples are merged into the compressed
// storage, resolving duplicates with the dup operator (last write wins when
// none is set). Bitmap and full matrices never have pending work, so Wait
// is a no-op for them.
func (m *Matrix[T]) Wait(a alloc.Allocator) error {
	if !m.hasPendingWork() {
		return nil
	}
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		np, err := assemble(p.p, p.i, p.x, nil, m.vdim, p.zombies, p.jumbled, p.pending, m.dup, a)
		if err != nil {
			return err
		}
		m.pay = np
		return nil
	case *hyperPayload[T]:
		// Assemble through an expanded sparse pointer array, then rebuild
		// the compact vector list.
		np, err := assemble(p.p, p.i, p.x, p.h, m.vdim, p.zombies, p.jumbled, p.pending, m.dup, a)
		if err != nil {
			return err
		}
		m.pay = np
		return m.ToHyper(a)
	}
	return nil
}

// assemble rebuilds a clean sparse payload from possibly zombied, jumbled,
// pending-laden storage. h is the hypersparse vector list, nil for sparse.
func assemble[T any](p, idx []int64, x []T, h []int64, vdim, zombies int64, jumbled bool, pending []tuple[T], dup func(T, T) T, a alloc.Allocator) (*sparsePayload[T], error) {
	if dup == nil {
		dup = func(_, b T) T { return b }
	}

	// Live entry count after zombie removal plus an upper bound for the
	// pending tuples.
	nvec := int64(len(p)) - 1
	live := p[nvec] - zombies
	capHint := live + int64(len(pending))

	ni, err := alloc.Slice[int64](a, int(capHint))
	if err != nil {
		return nil, err
	}
	nx, err := alloc.Slice[T](a, int(capHint))
	if err != nil {
		return nil, err
	}
	np, err := alloc.Slice[int64](a, int(vdim+1))
	if err != nil {
		return nil, err
	}

	// Pending tuples, sorted by (vector, index); later duplicates stay
	// adjacent so the merge can fold them.
	pend := append([]tuple[T](nil), pending...)
	sort.SliceStable(pend, func(s, t int) bool {
		if pend[s].j != pend[t].j {
			return pend[s].j < pend[t].j
		}
		return pend[s].i < pend[t].i
	})

	var out int64
	pp := 0 // cursor into pend
	for j := int64(0); j < vdim; j++ {
		np[j] = out

		// Locate vector j in the old storage.
		var lo, hi int64
		if h == nil {
			lo, hi = p[j], p[j+1]
		} else if kk, ok := findVec(h, j); ok {
			lo, hi = p[kk], p[kk+1]
		}

		// Collect live old entries, sorting if jumbled.
		vec := make([]tuple[T], 0, hi-lo)
		for q := lo; q < hi; q++ {
			if isZombie(idx[q]) {
				continue
			}
			vec = append(vec, tuple[T]{i: idx[q], x: x[q]})
		}
		if jumbled {
			sort.SliceStable(vec, func(s, t int) bool { return vec[s].i < vec[t].i })
		}

		// Merge old entries with pending tuples for this vector.
		vp := 0
		for vp < len(vec) || (pp < len(pend) && pend[pp].j == j) {
			takePending := pp < len(pend) && pend[pp].j == j &&
				(vp >= len(vec) || pend[pp].i <= vec[vp].i)
			if !takePending {
				ni[out] = vec[vp].i
				nx[out] = vec[vp].x
				out++
				vp++
				continue
			}
			ti, tx := pend[pp].i, pend[pp].x
			pp++
			// Fold pending duplicates on the same slot.
			for pp < len(pend) && pend[pp].j == j && pend[pp].i == ti {
				tx = dup(tx, pend[pp].x)
				pp++
			}
			if vp < len(vec) && vec[vp].i == ti {
				tx = dup(vec[vp].x, tx)
				vp++
			}
			if out > np[j] && ni[out-1] == ti {
				nx[out-1] = dup(nx[out-1], tx)
				continue
			}
			ni[out] = ti
			nx[out] = tx
			out++
		}
	}
	np[vdim] = out

	return &sparsePayload[T]{p: np, i: ni[:out], x: nx[:out]}, nil
}
