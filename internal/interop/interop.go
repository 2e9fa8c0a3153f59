// Package interop converts matrices to and from external dense and
// columnar representations: gonum's mat.Dense and Arrow record batches of
// COO triples. Layout metadata is honored in both directions; the Arrow
// schema is row index, column index, value.
package interop

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"gonum.org/v1/gonum/mat"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

// COOSchema describes a serialized coordinate batch: one row per stored
// entry.
var COOSchema = arrow.NewSchema([]arrow.Field{
	{Name: "row", Type: arrow.PrimitiveTypes.Int64},
	{Name: "col", Type: arrow.PrimitiveTypes.Int64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// ToRecord extracts m's settled entries into an Arrow record batch. The
// caller owns the returned record and must Release it.
func ToRecord(m *matrix.Matrix[float64], mem memory.Allocator, a alloc.Allocator) (arrow.Record, error) {
	rows, cols, vals, err := m.ExtractTuples(a)
	if err != nil {
		return nil, err
	}

	rb := array.NewInt64Builder(mem)
	defer rb.Release()
	cb := array.NewInt64Builder(mem)
	defer cb.Release()
	vb := array.NewFloat64Builder(mem)
	defer vb.Release()

	rb.AppendValues(rows, nil)
	cb.AppendValues(cols, nil)
	vb.AppendValues(vals, nil)

	arrs := []arrow.Array{rb.NewArray(), cb.NewArray(), vb.NewArray()}
	defer func() {
		for _, arr := range arrs {
			arr.Release()
		}
	}()

	return array.NewRecord(COOSchema, arrs, int64(len(rows))), nil
}

// FromRecord builds a vlen x vdim matrix from a COO record batch. Duplicate
// coordinates fold with last write wins.
func FromRecord(rec arrow.Record, vlen, vdim int64, a alloc.Allocator) (*matrix.Matrix[float64], error) {
	if !rec.Schema().Equal(COOSchema) {
		return nil, fmt.Errorf("interop: record schema %v is not a COO batch", rec.Schema())
	}
	rows, ok := rec.Column(0).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("interop: row column has type %T", rec.Column(0))
	}
	cols, ok := rec.Column(1).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("interop: col column has type %T", rec.Column(1))
	}
	vals, ok := rec.Column(2).(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("interop: value column has type %T", rec.Column(2))
	}

	rv, cv := rows.Int64Values(), cols.Int64Values()
	for q := range rv {
		if rv[q] < 0 || rv[q] >= vlen || cv[q] < 0 || cv[q] >= vdim {
			return nil, fmt.Errorf("interop: entry %d at (%d, %d) outside %dx%d",
				q, rv[q], cv[q], vlen, vdim)
		}
	}

	m := matrix.New[float64](vlen, vdim)
	if err := m.Build(a, rv, cv, vals.Float64Values(), nil); err != nil {
		return nil, err
	}
	return m, nil
}

// ToDense renders m as a gonum dense matrix, with implicit zeros filled in.
// The by-row layout interprets stored vectors as rows.
func ToDense(m *matrix.Matrix[float64], a alloc.Allocator) (*mat.Dense, error) {
	rows, cols, vals, err := m.ExtractTuples(a)
	if err != nil {
		return nil, err
	}
	nr, nc := int(m.Vlen()), int(m.Vdim())
	if m.Layout() == format.ByRow {
		nr, nc = nc, nr
	}
	d := mat.NewDense(nr, nc, nil)
	for q := range rows {
		i, j := int(rows[q]), int(cols[q])
		if m.Layout() == format.ByRow {
			i, j = j, i
		}
		d.Set(i, j, vals[q])
	}
	return d, nil
}

// FromDense builds a full-format matrix from a gonum dense matrix, stored
// by column.
func FromDense(d *mat.Dense, a alloc.Allocator) (*matrix.Matrix[float64], error) {
	nr, nc := d.Dims()
	x, err := alloc.Slice[float64](a, nr*nc)
	if err != nil {
		return nil, err
	}
	for j := 0; j < nc; j++ {
		base := j * nr
		for i := 0; i < nr; i++ {
			x[base+i] = d.At(i, j)
		}
	}
	m := matrix.New[float64](int64(nr), int64(nc))
	m.AdoptFull(x)
	return m, nil
}
