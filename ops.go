package graphblas

import (
	"context"
	"fmt"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/conform"
	"github.com/cjnolet/GraphBLAS/internal/kernel"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/internal/workspace"
	"github.com/cjnolet/GraphBLAS/semiring"
)

// Variant selects a multiply algorithm. The caller chooses; the engine
// never second-guesses an explicit selection.
type Variant uint8

const (
	// VariantAuto picks by operand shape: heap-merge for outputs built
	// from few small contributions, gather/scatter otherwise.
	VariantAuto Variant = iota
	// VariantGustavson scatters into a dense per-vector workspace.
	VariantGustavson
	// VariantDot merge-intersects sorted vectors; the first operand is
	// consumed as its transpose.
	VariantDot
	// VariantHeap merges contributing columns through a min-heap.
	VariantHeap
)

type opConfig struct {
	mask       *Matrix[bool]
	comp       bool
	structural bool
	variant    Variant
}

// OpOption configures one operation invocation.
type OpOption func(*opConfig)

// WithMask restricts which output positions the operation computes. A
// stored true admits a position; see WithStructuralMask.
func WithMask(m *Matrix[bool]) OpOption {
	return func(c *opConfig) { c.mask = m }
}

// WithComplement inverts the mask.
func WithComplement() OpOption {
	return func(c *opConfig) { c.comp = true }
}

// WithStructuralMask makes presence alone admit a position, ignoring the
// stored values.
func WithStructuralMask() OpOption {
	return func(c *opConfig) { c.structural = true }
}

// WithVariant forces a multiply algorithm.
func WithVariant(v Variant) OpOption {
	return func(c *opConfig) { c.variant = v }
}

// kernelView settles a matrix into a compressed sparse-like view for the
// kernels: pending work assembled, bitmap/full re-expressed as sparse.
func kernelView[T any](e *Engine, m *matrix.Matrix[T]) (matrix.CSView[T], error) {
	if err := m.Wait(e.alloc); err != nil {
		return matrix.CSView[T]{}, err
	}
	switch m.Format() {
	case format.Bitmap, format.Full:
		if err := m.ToSparse(e.alloc); err != nil {
			return matrix.CSView[T]{}, err
		}
	}
	v, ok := m.SparseView()
	if !ok {
		panic("graphblas: settled matrix has no sparse view")
	}
	return v, nil
}

func (cfg *opConfig) kernelMask(e *Engine) (*kernel.Mask, error) {
	if cfg.mask == nil {
		return nil, nil
	}
	mv, err := kernelView(e, cfg.mask.m)
	if err != nil {
		return nil, err
	}
	return &kernel.Mask{V: mv, Comp: cfg.comp, Structural: cfg.structural}, nil
}

// parallelCutoff is the combined entry count past which an operation is
// worth scheduling across tasks.
const parallelCutoff = 1 << 16

// MxM computes C = A ⊕.⊗ B over semiring s, overwriting C's contents. C
// must be shaped nrows(A) x ncols(B); with VariantDot, A is consumed as
// its transpose and C must be ncols(A) x ncols(B). When both operands are
// full and s is the conventional float64 plus-times semiring, the multiply
// delegates to dense BLAS.
func MxM[A, B, C comparable](ctx context.Context, e *Engine, c *Matrix[C], a *Matrix[A], b *Matrix[B], s semiring.Semiring[A, B, C], opts ...OpOption) error {
	var cfg opConfig
	for _, o := range opts {
		o(&cfg)
	}

	inner := a.NRows()
	if cfg.variant == VariantDot {
		inner = a.NCols()
	}
	switch {
	case cfg.variant == VariantDot && (a.NRows() != b.NRows() || c.NRows() != inner || c.NCols() != b.NCols()):
		return fmt.Errorf("%w: (%dx%d)' x (%dx%d) -> %dx%d",
			ErrDimensionMismatch, a.NRows(), a.NCols(), b.NRows(), b.NCols(), c.NRows(), c.NCols())
	case cfg.variant != VariantDot && (a.NCols() != b.NRows() || c.NRows() != a.NRows() || c.NCols() != b.NCols()):
		return fmt.Errorf("%w: (%dx%d) x (%dx%d) -> %dx%d",
			ErrDimensionMismatch, a.NRows(), a.NCols(), b.NRows(), b.NCols(), c.NRows(), c.NCols())
	}

	// Dense fast path.
	if cfg.mask == nil && cfg.variant == VariantAuto &&
		s.Name == semiring.NamePlusTimesFP64 &&
		a.m.Format() == format.Full && b.m.Format() == format.Full {
		cf, okC := any(c.m).(*matrix.Matrix[float64])
		af, okA := any(a.m).(*matrix.Matrix[float64])
		bf, okB := any(b.m).(*matrix.Matrix[float64])
		if okC && okA && okB {
			if err := kernel.DenseMul(cf, af, bf, e.alloc); err != nil {
				return translateError(err)
			}
			return translateError(conform.Apply(c.m, e.alloc))
		}
	}

	av, err := kernelView(e, a.m)
	if err != nil {
		return translateError(err)
	}
	bv, err := kernelView(e, b.m)
	if err != nil {
		return translateError(err)
	}
	mask, err := cfg.kernelMask(e)
	if err != nil {
		return translateError(err)
	}
	ops := kernel.Operands[A, B]{A: av, B: bv}

	variant := cfg.variant
	if variant == VariantAuto {
		// Few entries per contributing column favor the heap merge.
		if nvec := bv.NVec(); nvec > 0 && int64(len(bv.I))/nvec <= 2 {
			variant = VariantHeap
		} else {
			variant = VariantGustavson
		}
	}

	switch variant {
	case VariantGustavson:
		var pool workspace.Pool[C]
		if int64(len(av.I))+int64(len(bv.I)) >= parallelCutoff {
			err = kernel.GustavsonParallel(ctx, c.m, ops, mask, s, &pool, e.alloc, e.runner)
		} else {
			err = kernel.Gustavson(c.m, ops, mask, s, &pool, e.alloc)
		}
	case VariantDot:
		err = kernel.Dot(c.m, ops, mask, s, e.alloc)
	case VariantHeap:
		err = kernel.Heap(c.m, ops, mask, s, e.alloc)
	default:
		return fmt.Errorf("%w: unknown multiply variant %d", ErrInvalidValue, variant)
	}
	if err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}

// EWiseAdd computes C = A (+) B over the union of the operand patterns,
// overwriting C. Entries present in only one operand are copied unchanged.
func EWiseAdd[T comparable](ctx context.Context, e *Engine, c, a, b *Matrix[T], op func(T, T) T, opts ...OpOption) error {
	var cfg opConfig
	for _, o := range opts {
		o(&cfg)
	}
	if a.NRows() != b.NRows() || a.NCols() != b.NCols() ||
		c.NRows() != a.NRows() || c.NCols() != a.NCols() {
		return fmt.Errorf("%w: (%dx%d) (+) (%dx%d) -> %dx%d",
			ErrDimensionMismatch, a.NRows(), a.NCols(), b.NRows(), b.NCols(), c.NRows(), c.NCols())
	}

	av, err := kernelView(e, a.m)
	if err != nil {
		return translateError(err)
	}
	bv, err := kernelView(e, b.m)
	if err != nil {
		return translateError(err)
	}
	mask, err := cfg.kernelMask(e)
	if err != nil {
		return translateError(err)
	}

	if int64(len(av.I))+int64(len(bv.I)) >= parallelCutoff {
		err = kernel.EWiseAddParallel(ctx, c.m, av, bv, op, mask, e.alloc, e.runner, e.tol)
	} else {
		err = kernel.EWiseAdd(c.m, av, bv, op, mask, e.alloc)
	}
	if err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}

// EWiseMult computes C = A (*) B over the intersection of the operand
// patterns, overwriting C.
func EWiseMult[A, B, C comparable](ctx context.Context, e *Engine, c *Matrix[C], a *Matrix[A], b *Matrix[B], op func(A, B) C, opts ...OpOption) error {
	var cfg opConfig
	for _, o := range opts {
		o(&cfg)
	}
	if a.NRows() != b.NRows() || a.NCols() != b.NCols() ||
		c.NRows() != a.NRows() || c.NCols() != a.NCols() {
		return fmt.Errorf("%w: (%dx%d) (*) (%dx%d) -> %dx%d",
			ErrDimensionMismatch, a.NRows(), a.NCols(), b.NRows(), b.NCols(), c.NRows(), c.NCols())
	}

	av, err := kernelView(e, a.m)
	if err != nil {
		return translateError(err)
	}
	bv, err := kernelView(e, b.m)
	if err != nil {
		return translateError(err)
	}
	mask, err := cfg.kernelMask(e)
	if err != nil {
		return translateError(err)
	}

	if int64(len(av.I))+int64(len(bv.I)) >= parallelCutoff {
		err = kernel.EWiseMultParallel(ctx, c.m, av, bv, op, mask, e.alloc, e.runner, e.tol)
	} else {
		err = kernel.EWiseMult(c.m, av, bv, op, mask, e.alloc)
	}
	if err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}

// Assign computes C<M> = A: inside the mask C takes A's pattern and
// values; outside it C keeps its own. A nil mask replaces C entirely.
func Assign[T comparable](ctx context.Context, e *Engine, c, a *Matrix[T], opts ...OpOption) error {
	var cfg opConfig
	for _, o := range opts {
		o(&cfg)
	}
	if a.NRows() != c.NRows() || a.NCols() != c.NCols() {
		return fmt.Errorf("%w: assign (%dx%d) into %dx%d",
			ErrDimensionMismatch, a.NRows(), a.NCols(), c.NRows(), c.NCols())
	}

	av, err := kernelView(e, a.m)
	if err != nil {
		return translateError(err)
	}
	if _, err := kernelView(e, c.m); err != nil {
		return translateError(err)
	}
	mask, err := cfg.kernelMask(e)
	if err != nil {
		return translateError(err)
	}

	if err := kernel.Assign(c.m, av, mask, e.alloc); err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}

// ColScale computes C = A*D, scaling column j of A by the j'th diagonal
// coefficient.
func ColScale[T comparable](e *Engine, c, a *Matrix[T], diag []T, op func(T, T) T) error {
	if int64(len(diag)) != a.NCols() || c.NRows() != a.NRows() || c.NCols() != a.NCols() {
		return fmt.Errorf("%w: colscale (%dx%d) by %d coefficients",
			ErrDimensionMismatch, a.NRows(), a.NCols(), len(diag))
	}
	av, err := kernelView(e, a.m)
	if err != nil {
		return translateError(err)
	}
	var zero T
	if err := kernel.ColScale(c.m, av, false, zero, kernel.Diagonal[T]{D: diag}, op, e.alloc); err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}

// RowScale computes C = D*B, scaling row i of B by the i'th diagonal
// coefficient.
func RowScale[T comparable](e *Engine, c, b *Matrix[T], diag []T, op func(T, T) T) error {
	if int64(len(diag)) != b.NRows() || c.NRows() != b.NRows() || c.NCols() != b.NCols() {
		return fmt.Errorf("%w: rowscale (%dx%d) by %d coefficients",
			ErrDimensionMismatch, b.NRows(), b.NCols(), len(diag))
	}
	bv, err := kernelView(e, b.m)
	if err != nil {
		return translateError(err)
	}
	var zero T
	if err := kernel.RowScale(c.m, kernel.Diagonal[T]{D: diag}, bv, false, zero, op, e.alloc); err != nil {
		return translateError(err)
	}
	return translateError(conform.Apply(c.m, e.alloc))
}
