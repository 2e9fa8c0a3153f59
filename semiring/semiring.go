// Package semiring defines the operator tuples the kernels compute with: a
// multiply operator, an accumulate monoid with its identity, and an optional
// terminal value that lets idempotent accumulators short-circuit.
//
// The engine never selects operators itself; callers pass a Semiring per
// invocation and the kernels are instantiated generically over it.
package semiring

// Number covers the built-in numeric element types.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// BinaryOp combines one element of type A and one of type B into a C.
type BinaryOp[A, B, C any] func(A, B) C

// Monoid is an accumulate operator with its identity. Terminal, when
// non-nil, is a value the accumulator can never leave; kernels that process
// entries in ascending index order may stop as soon as it is reached.
type Monoid[C comparable] struct {
	Op       func(C, C) C
	Identity C
	Terminal *C
}

// IsTerminal reports whether v has reached the terminal value.
func (m Monoid[C]) IsTerminal(v C) bool {
	return m.Terminal != nil && v == *m.Terminal
}

// Semiring pairs a multiply operator with an accumulate monoid for
// generalized matrix multiply C = A ⊕.⊗ B.
type Semiring[A, B, C comparable] struct {
	// Name identifies the semiring for diagnostics and fast-path
	// selection; built-in constructors fill it in.
	Name string

	Mult BinaryOp[A, B, C]
	Add  Monoid[C]
}

func terminal[C comparable](v C) *C { return &v }
