// Package matrix holds the central Matrix type: a vlen-by-vdim collection of
// vectors stored in one of four physical formats, plus the conversion
// toolkit that moves a matrix between formats.
//
// The payload is a tagged variant with one concrete type per format. Each
// conversion builds a complete new payload and installs it with a single
// assignment, so a failed conversion never leaves mixed state behind.
package matrix

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/cjnolet/GraphBLAS/format"
)

// ErrNotFull is returned by operations that require a full operand.
var ErrNotFull = errors.New("matrix: operand is not in full format")

// Matrix is a vlen x vdim sparse matrix: vdim vectors of vlen entries each.
// Whether a vector is a row or a column is the layout's business, not the
// storage's.
type Matrix[T any] struct {
	vlen, vdim int64

	layout  format.Layout
	control format.Control

	bitmapSwitch float64
	hyperSwitch  float64

	// dup resolves duplicate insertions (pending tuples landing on an
	// existing entry). nil means last write wins.
	dup func(T, T) T

	pay payload[T]
}

type tuple[T any] struct {
	i, j int64
	x    T
}

// payload is the four-way tagged variant. Pending-work fields exist only on
// the sparse-like payloads; bitmap and full never carry pending work.
type payload[T any] interface {
	fmtKind() format.Format
	storedVals() int64
}

type sparsePayload[T any] struct {
	p []int64 // vector start offsets, len vdim+1
	i []int64 // entry indices; zombies are stored flipped
	x []T

	zombies int64
	jumbled bool
	pending []tuple[T]
}

type hyperPayload[T any] struct {
	h []int64 // ids of the non-empty vectors, ascending
	p []int64 // len(h)+1
	i []int64
	x []T

	zombies int64
	jumbled bool
	pending []tuple[T]
}

type bitmapPayload[T any] struct {
	b *bitset.BitSet // presence, one bit per slot
	x []T            // dense values, vlen*vdim
	n int64          // live entry count
}

type fullPayload[T any] struct {
	x []T // dense values, vlen*vdim
}

func (*sparsePayload[T]) fmtKind() format.Format { return format.Sparse }
func (*hyperPayload[T]) fmtKind() format.Format  { return format.Hypersparse }
func (*bitmapPayload[T]) fmtKind() format.Format { return format.Bitmap }
func (*fullPayload[T]) fmtKind() format.Format   { return format.Full }

func (s *sparsePayload[T]) storedVals() int64 { return s.p[len(s.p)-1] - s.zombies }
func (h *hyperPayload[T]) storedVals() int64  { return h.p[len(h.p)-1] - h.zombies }
func (b *bitmapPayload[T]) storedVals() int64 { return b.n }
func (f *fullPayload[T]) storedVals() int64   { return int64(len(f.x)) }

// zombie indices are stored flipped so the live index can be recovered.
func flip(i int64) int64    { return -i - 2 }
func isZombie(i int64) bool { return i < 0 }

// New creates an empty sparse matrix with automatic sparsity control.
func New[T any](vlen, vdim int64) *Matrix[T] {
	if vlen < 0 || vdim < 0 {
		panic(fmt.Sprintf("matrix: invalid dimensions %dx%d", vlen, vdim))
	}
	return &Matrix[T]{
		vlen:         vlen,
		vdim:         vdim,
		control:      format.Auto,
		bitmapSwitch: format.DefaultBitmapSwitch,
		hyperSwitch:  format.DefaultHyperSwitch,
		pay:          emptySparse[T](vdim),
	}
}

func emptySparse[T any](vdim int64) *sparsePayload[T] {
	return &sparsePayload[T]{p: make([]int64, vdim+1)}
}

// NewFull creates a full matrix from a dense, vector-major value slice. The
// slice is taken over, not copied.
func NewFull[T any](vlen, vdim int64, x []T) *Matrix[T] {
	if int64(len(x)) != vlen*vdim {
		panic(fmt.Sprintf("matrix: full payload has %d values, want %d", len(x), vlen*vdim))
	}
	m := New[T](vlen, vdim)
	m.pay = &fullPayload[T]{x: x}
	return m
}

// Vlen returns the number of entries per vector.
func (m *Matrix[T]) Vlen() int64 { return m.vlen }

// Vdim returns the number of vectors.
func (m *Matrix[T]) Vdim() int64 { return m.vdim }

// Format returns the current physical format.
func (m *Matrix[T]) Format() format.Format { return m.pay.fmtKind() }

// Layout returns the row/column interpretation of the stored vectors.
func (m *Matrix[T]) Layout() format.Layout { return m.layout }

// SetLayout records the row/column interpretation.
func (m *Matrix[T]) SetLayout(l format.Layout) { m.layout = l }

// Control returns the permitted-format bitmask.
func (m *Matrix[T]) Control() format.Control { return m.control }

// SetControl declares the formats the matrix may settle into. It does not
// convert; call conform for that.
func (m *Matrix[T]) SetControl(c format.Control) { m.control = c }

// BitmapSwitch returns the sparse/bitmap density switch.
func (m *Matrix[T]) BitmapSwitch() float64 { return m.bitmapSwitch }

// SetBitmapSwitch sets the sparse/bitmap density switch.
func (m *Matrix[T]) SetBitmapSwitch(s float64) { m.bitmapSwitch = s }

// HyperSwitch returns the sparse/hypersparse vector-ratio switch.
func (m *Matrix[T]) HyperSwitch() float64 { return m.hyperSwitch }

// SetHyperSwitch sets the sparse/hypersparse vector-ratio switch.
func (m *Matrix[T]) SetHyperSwitch(s float64) { m.hyperSwitch = s }

// SetDup installs the duplicate-resolution operator for pending tuples.
func (m *Matrix[T]) SetDup(dup func(T, T) T) { m.dup = dup }

// NVals returns the number of live entries, not counting pending tuples and
// excluding zombies.
func (m *Matrix[T]) NVals() int64 { return m.pay.storedVals() }

// Density is nvals / (vlen*vdim), the sole quantity driving format-switch
// decisions.
func (m *Matrix[T]) Density() float64 {
	size := float64(m.vlen) * float64(m.vdim)
	if size == 0 {
		return 0
	}
	return float64(m.NVals()) / size
}

// PendingWork reports zombies, the jumbled flag and buffered tuples. All
// three are zero/false for bitmap and full matrices.
func (m *Matrix[T]) PendingWork() (zombies int64, jumbled bool, pending int64) {
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		return p.zombies, p.jumbled, int64(len(p.pending))
	case *hyperPayload[T]:
		return p.zombies, p.jumbled, int64(len(p.pending))
	}
	return 0, false, 0
}

func (m *Matrix[T]) hasPendingWork() bool {
	z, j, p := m.PendingWork()
	return z > 0 || j || p > 0
}

// IsDense reports whether every slot holds a live entry.
func (m *Matrix[T]) IsDense() bool {
	return m.NVals() == m.vlen*m.vdim
}

// Clear drops every entry and resets the matrix to an empty sparse payload.
// The conformance engine calls this when a conversion fails partway, so no
// partial state survives.
func (m *Matrix[T]) Clear() {
	m.pay = emptySparse[T](m.vdim)
}

// NVecNonEmpty counts vectors holding at least one live entry.
func (m *Matrix[T]) NVecNonEmpty() int64 {
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		return nonEmptyVecs(p.p, p.i)
	case *hyperPayload[T]:
		return nonEmptyVecs(p.p, p.i)
	case *bitmapPayload[T]:
		var n int64
		for k := int64(0); k < m.vdim; k++ {
			for i := int64(0); i < m.vlen; i++ {
				if p.b.Test(uint(k*m.vlen + i)) {
					n++
					break
				}
			}
		}
		return n
	case *fullPayload[T]:
		if m.vlen == 0 {
			return 0
		}
		return m.vdim
	}
	return 0
}

func nonEmptyVecs(p, idx []int64) int64 {
	var n int64
	for k := 0; k+1 < len(p); k++ {
		for q := p[k]; q < p[k+1]; q++ {
			if !isZombie(idx[q]) {
				n++
				break
			}
		}
	}
	return n
}

// slot maps (index i, vector k) to the dense position used by bitmap and
// full payloads.
func (m *Matrix[T]) slot(i, k int64) int64 { return k*m.vlen + i }

// At returns the entry at index i of vector k, if present. Pending work must
// be assembled first for sparse-like formats; At panics on a matrix with
// pending tuples or zombies since lookups there are a caller bug.
func (m *Matrix[T]) At(i, k int64) (T, bool) {
	var zero T
	if i < 0 || i >= m.vlen || k < 0 || k >= m.vdim {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", i, k, m.vlen, m.vdim))
	}
	switch p := m.pay.(type) {
	case *fullPayload[T]:
		return p.x[m.slot(i, k)], true
	case *bitmapPayload[T]:
		s := m.slot(i, k)
		if p.b.Test(uint(s)) {
			return p.x[s], true
		}
		return zero, false
	case *sparsePayload[T]:
		if m.hasPendingWork() {
			panic("matrix: At on matrix with pending work")
		}
		return findEntry(p.i, p.x, p.p[k], p.p[k+1], i)
	case *hyperPayload[T]:
		if m.hasPendingWork() {
			panic("matrix: At on matrix with pending work")
		}
		kk, ok := findVec(p.h, k)
		if !ok {
			return zero, false
		}
		return findEntry(p.i, p.x, p.p[kk], p.p[kk+1], i)
	}
	return zero, false
}

// findEntry binary-searches a sorted vector range for index i.
func findEntry[T any](idx []int64, x []T, lo, hi, i int64) (T, bool) {
	var zero T
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case idx[mid] == i:
			return x[mid], true
		case idx[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return zero, false
}

// findVec binary-searches the hypersparse vector list for id k.
func findVec(h []int64, k int64) (int64, bool) {
	lo, hi := int64(0), int64(len(h))
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case h[mid] == k:
			return mid, true
		case h[mid] < k:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// CSView is a read-only compressed view over a sparse or hypersparse matrix
// with no pending work; the kernels consume matrices through it. H is nil
// for sparse, where vector k has id k.
type CSView[T any] struct {
	Vlen, Vdim int64
	H          []int64
	P          []int64
	I          []int64
	X          []T
}

// NVec returns the number of stored vectors in the view.
func (v CSView[T]) NVec() int64 { return int64(len(v.P)) - 1 }

// VecID returns the vector id of stored vector k.
func (v CSView[T]) VecID(k int64) int64 {
	if v.H != nil {
		return v.H[k]
	}
	return k
}

// FindVec locates vector id j in the view, returning its stored position.
func (v CSView[T]) FindVec(j int64) (int64, bool) {
	if v.H == nil {
		if j < 0 || j >= v.NVec() {
			return 0, false
		}
		return j, true
	}
	return findVec(v.H, j)
}

// SparseView returns the compressed view of a conformed sparse-like matrix.
// ok is false for bitmap/full matrices or when pending work remains.
func (m *Matrix[T]) SparseView() (CSView[T], bool) {
	if m.hasPendingWork() {
		return CSView[T]{}, false
	}
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		return CSView[T]{Vlen: m.vlen, Vdim: m.vdim, P: p.p, I: p.i, X: p.x}, true
	case *hyperPayload[T]:
		return CSView[T]{Vlen: m.vlen, Vdim: m.vdim, H: p.h, P: p.p, I: p.i, X: p.x}, true
	}
	return CSView[T]{}, false
}

// FullValues returns the dense value slice of a full matrix.
func (m *Matrix[T]) FullValues() ([]T, bool) {
	if p, ok := m.pay.(*fullPayload[T]); ok {
		return p.x, true
	}
	return nil, false
}

// BitmapView returns the presence set and dense values of a bitmap matrix.
func (m *Matrix[T]) BitmapView() (*bitset.BitSet, []T, bool) {
	if p, ok := m.pay.(*bitmapPayload[T]); ok {
		return p.b, p.x, true
	}
	return nil, nil, false
}

// AdoptSparse installs a fully formed sparse payload (used by kernels and
// builders writing compressed output directly). The slices are taken over.
func (m *Matrix[T]) AdoptSparse(p []int64, idx []int64, x []T) {
	if int64(len(p)) != m.vdim+1 {
		panic(fmt.Sprintf("matrix: sparse pointer array has %d slots, want %d", len(p), m.vdim+1))
	}
	m.pay = &sparsePayload[T]{p: p, i: idx, x: x}
}

// MarkJumbled flags a sparse-like matrix as having unsorted vectors, e.g.
// after adopting kernel output that was produced out of index order.
func (m *Matrix[T]) MarkJumbled() {
	switch p := m.pay.(type) {
	case *sparsePayload[T]:
		p.jumbled = true
	case *hyperPayload[T]:
		p.jumbled = true
	default:
		panic("matrix: MarkJumbled on a dense-formatted matrix")
	}
}

// AdoptBitmap installs a bitmap payload. The arguments are taken over.
func (m *Matrix[T]) AdoptBitmap(b *bitset.BitSet, x []T, n int64) {
	m.pay = &bitmapPayload[T]{b: b, x: x, n: n}
}

// AdoptFull installs a full payload. The slice must hold vlen*vdim values
// in vector-major order and is taken over.
func (m *Matrix[T]) AdoptFull(x []T) {
	if int64(len(x)) != m.vlen*m.vdim {
		panic(fmt.Sprintf("matrix: full value array has %d slots, want %d", len(x), m.vlen*m.vdim))
	}
	m.pay = &fullPayload[T]{x: x}
}
