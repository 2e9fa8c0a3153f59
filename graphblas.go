// Package graphblas is a sparse linear-algebra engine over arbitrary
// semirings. A matrix lives in one of four physical formats (hypersparse,
// sparse, bitmap, full) and is re-conformed automatically as operations
// change its density; multiply and elementwise kernels are generic over a
// caller-supplied semiring or binary operator.
//
// The package is a thin facade: storage, conversion, partitioning, and the
// kernel family live in internal packages and are reached through an
// Engine, which carries the allocator, the parallel runner, and the
// partitioner tolerance.
package graphblas

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/conform"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/internal/serialize"
	"github.com/cjnolet/GraphBLAS/internal/slicer"
	"github.com/cjnolet/GraphBLAS/internal/task"
)

// Sentinel errors returned by the facade. Internal errors are translated
// to these before they reach callers.
var (
	ErrOutOfMemory       = errors.New("graphblas: out of memory")
	ErrDimensionMismatch = errors.New("graphblas: dimension mismatch")
	ErrInvalidValue      = errors.New("graphblas: invalid value")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, alloc.ErrOutOfMemory) {
		return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return err
}

// Engine carries the resources shared by operations: the allocator every
// storage array is obtained from, the bounded parallel runner, and the
// partitioner's work-balance tolerance.
type Engine struct {
	alloc  alloc.Allocator
	runner task.Runner
	tol    slicer.Tolerance
}

// Option configures an Engine.
type Option func(*Engine)

// WithAllocator routes all storage allocation through a.
func WithAllocator(a alloc.Allocator) Option {
	return func(e *Engine) { e.alloc = a }
}

// WithArrowAllocator routes all storage allocation through an Arrow
// allocator.
func WithArrowAllocator(mem memory.Allocator) Option {
	return func(e *Engine) { e.alloc = alloc.NewArrowAllocator(mem) }
}

// WithWorkers caps the number of concurrent kernel tasks.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.runner = task.Runner{Workers: n} }
}

// WithTolerance sets the partitioner's work-balance band.
func WithTolerance(lo, hi float64) Option {
	return func(e *Engine) { e.tol = slicer.Tolerance{Lo: lo, Hi: hi} }
}

// NewEngine builds an Engine; the zero configuration uses the Go heap, one
// task per CPU, and the default tolerance band.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{alloc: alloc.Default}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Burble toggles the structured decision trace. It is a pure observability
// hook with no effect on results.
func Burble(enable bool) { burble.Enable(enable) }

// BurbleLogger routes the burble trace to l.
func BurbleLogger(l zerolog.Logger) { burble.SetLogger(l) }

// Matrix is an nrows x ncols sparse matrix of element type T. The zero
// value is not usable; construct with New.
type Matrix[T any] struct {
	m *matrix.Matrix[T]
}

// New creates an empty matrix with automatic sparsity control, stored by
// column.
func New[T any](nrows, ncols int64) *Matrix[T] {
	if nrows < 0 || ncols < 0 {
		panic(fmt.Sprintf("graphblas: invalid dimensions %dx%d", nrows, ncols))
	}
	return &Matrix[T]{m: matrix.New[T](nrows, ncols)}
}

// NewFull creates a full matrix over the column-major value slice x, which
// is taken over.
func NewFull[T any](nrows, ncols int64, x []T) *Matrix[T] {
	return &Matrix[T]{m: matrix.NewFull(nrows, ncols, x)}
}

// NRows returns the number of rows.
func (a *Matrix[T]) NRows() int64 { return a.m.Vlen() }

// NCols returns the number of columns.
func (a *Matrix[T]) NCols() int64 { return a.m.Vdim() }

// NVals returns the number of stored entries, excluding pending deletions.
func (a *Matrix[T]) NVals() int64 { return a.m.NVals() }

// Density returns stored entries over total slots.
func (a *Matrix[T]) Density() float64 { return a.m.Density() }

// Format returns the current physical format.
func (a *Matrix[T]) Format() format.Format { return a.m.Format() }

// Layout returns the row/column interpretation of stored vectors.
func (a *Matrix[T]) Layout() format.Layout { return a.m.Layout() }

// SetLayout sets the row/column interpretation; pure metadata.
func (a *Matrix[T]) SetLayout(l format.Layout) { a.m.SetLayout(l) }

// SparsityControl returns the permitted-format bitmask.
func (a *Matrix[T]) SparsityControl() format.Control { return a.m.Control() }

// SetSparsityControl restricts the formats the matrix may settle into. It
// takes effect at the next Conform.
func (a *Matrix[T]) SetSparsityControl(c format.Control) { a.m.SetControl(c) }

// SetBitmapSwitch sets the density threshold for the sparse/bitmap
// decision.
func (a *Matrix[T]) SetBitmapSwitch(s float64) { a.m.SetBitmapSwitch(s) }

// SetHyperSwitch sets the populated-vector ratio for the sparse/hyper
// decision.
func (a *Matrix[T]) SetHyperSwitch(s float64) { a.m.SetHyperSwitch(s) }

// SetElement stores v at (i, j). Sparse-like formats queue the insertion
// as pending work.
func (a *Matrix[T]) SetElement(i, j int64, v T) { a.m.SetElement(i, j, v) }

// RemoveElement deletes the entry at (i, j) if present.
func (a *Matrix[T]) RemoveElement(e *Engine, i, j int64) error {
	return translateError(a.m.RemoveElement(e.alloc, i, j))
}

// At returns the stored value at (i, j). Pending work must be assembled
// first for sparse-like formats.
func (a *Matrix[T]) At(i, j int64) (T, bool) { return a.m.At(i, j) }

// Build bulk-loads the matrix from COO triples, folding duplicates with
// dup (last write wins when nil).
func (a *Matrix[T]) Build(e *Engine, rows, cols []int64, vals []T, dup func(T, T) T) error {
	return translateError(a.m.Build(e.alloc, rows, cols, vals, dup))
}

// ExtractTuples returns all stored entries in ascending (column, row)
// order, assembling pending work first.
func (a *Matrix[T]) ExtractTuples(e *Engine) (rows, cols []int64, vals []T, err error) {
	rows, cols, vals, err = a.m.ExtractTuples(e.alloc)
	return rows, cols, vals, translateError(err)
}

// Wait assembles all pending work: deletions compacted, vectors sorted,
// insertions merged.
func (a *Matrix[T]) Wait(e *Engine) error {
	return translateError(a.m.Wait(e.alloc))
}

// Conform settles the matrix into a format permitted by its sparsity
// control and consistent with its density. On failure the matrix is
// cleared of all entries.
func (a *Matrix[T]) Conform(e *Engine) error {
	return translateError(conform.Apply(a.m, e.alloc))
}

// Clear drops every entry, keeping dimensions and control.
func (a *Matrix[T]) Clear() { a.m.Clear() }

// Serialize writes the matrix to w as a compressed envelope.
func (a *Matrix[T]) Serialize(e *Engine, w io.Writer) error {
	return translateError(serialize.Write(w, a.m, e.alloc))
}

// Deserialize reads a matrix written by Serialize.
func Deserialize[T any](e *Engine, r io.Reader) (*Matrix[T], error) {
	m, err := serialize.Read[T](r, e.alloc)
	if err != nil {
		return nil, translateError(err)
	}
	return &Matrix[T]{m: m}, nil
}
