package matrix

import (
	"fmt"
	"sort"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
)

// Build bulk-loads the matrix from COO triples (rows[q], cols[q], vals[q]),
// replacing any existing contents. Duplicate coordinates are folded with
// dup; when dup is nil the matrix's duplicate operator applies, defaulting
// to last write wins.
func (m *Matrix[T]) Build(a alloc.Allocator, rows, cols []int64, vals []T, dup func(T, T) T) error {
	if len(rows) != len(cols) || len(rows) != len(vals) {
		panic(fmt.Sprintf("matrix: Build with mismatched slices %d/%d/%d", len(rows), len(cols), len(vals)))
	}
	if dup == nil {
		dup = m.dup
	}
	if dup == nil {
		dup = func(_, b T) T { return b }
	}

	n := len(rows)
	order := make([]int, n)
	for q := range order {
		order[q] = q
	}
	sort.SliceStable(order, func(s, t int) bool {
		qs, qt := order[s], order[t]
		if cols[qs] != cols[qt] {
			return cols[qs] < cols[qt]
		}
		return rows[qs] < rows[qt]
	})

	ni, err := alloc.Slice[int64](a, n)
	if err != nil {
		return err
	}
	nx, err := alloc.Slice[T](a, n)
	if err != nil {
		return err
	}
	np, err := alloc.Slice[int64](a, int(m.vdim+1))
	if err != nil {
		return err
	}

	var out int64
	var cur int64 // current vector being filled
	for _, q := range order {
		i, j, v := rows[q], cols[q], vals[q]
		if i < 0 || i >= m.vlen || j < 0 || j >= m.vdim {
			panic(fmt.Sprintf("matrix: tuple (%d,%d) out of range %dx%d", i, j, m.vlen, m.vdim))
		}
		if out > 0 && j == cur && ni[out-1] == i {
			nx[out-1] = dup(nx[out-1], v)
			continue
		}
		for cur < j {
			cur++
			np[cur] = out
		}
		ni[out] = i
		nx[out] = v
		out++
	}
	for cur < m.vdim {
		cur++
		np[cur] = out
	}
	m.pay = &sparsePayload[T]{p: np, i: ni[:out], x: nx[:out]}
	return nil
}

// ExtractTuples returns the matrix entries as COO triples in ascending
// (vector, index) order. Pending work is assembled first.
func (m *Matrix[T]) ExtractTuples(a alloc.Allocator) (rows, cols []int64, vals []T, err error) {
	if err := m.Wait(a); err != nil {
		return nil, nil, nil, err
	}
	n := m.NVals()
	rows = make([]int64, 0, n)
	cols = make([]int64, 0, n)
	vals = make([]T, 0, n)

	switch p := m.pay.(type) {
	case *fullPayload[T]:
		for k := int64(0); k < m.vdim; k++ {
			for i := int64(0); i < m.vlen; i++ {
				rows = append(rows, i)
				cols = append(cols, k)
				vals = append(vals, p.x[m.slot(i, k)])
			}
		}
	case *bitmapPayload[T]:
		for k := int64(0); k < m.vdim; k++ {
			for i := int64(0); i < m.vlen; i++ {
				if s := m.slot(i, k); p.b.Test(uint(s)) {
					rows = append(rows, i)
					cols = append(cols, k)
					vals = append(vals, p.x[s])
				}
			}
		}
	default:
		v, ok := m.SparseView()
		if !ok {
			panic("matrix: ExtractTuples on unassembled matrix")
		}
		for k := int64(0); k < v.NVec(); k++ {
			j := v.VecID(k)
			for q := v.P[k]; q < v.P[k+1]; q++ {
				rows = append(rows, v.I[q])
				cols = append(cols, j)
				vals = append(vals, v.X[q])
			}
		}
	}
	return rows, cols, vals, nil
}
