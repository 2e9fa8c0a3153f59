package semiring

import "math"

// PlusTimes is the conventional arithmetic semiring.
func PlusTimes[T Number]() Semiring[T, T, T] {
	return Semiring[T, T, T]{
		Name: "plus_times",
		Mult: func(a, b T) T { return a * b },
		Add: Monoid[T]{
			Op:       func(x, y T) T { return x + y },
			Identity: 0,
		},
	}
}

// PlusTimesFP64 is the float64 arithmetic semiring; its name is what the
// dense fast path keys on.
func PlusTimesFP64() Semiring[float64, float64, float64] {
	s := PlusTimes[float64]()
	s.Name = NamePlusTimesFP64
	return s
}

// NamePlusTimesFP64 identifies the semiring eligible for the dense BLAS
// fast path.
const NamePlusTimesFP64 = "plus_times_fp64"

// MinPlus is the tropical shortest-path semiring over float64, with
// identity +inf and terminal -inf.
func MinPlus() Semiring[float64, float64, float64] {
	return Semiring[float64, float64, float64]{
		Name: "min_plus_fp64",
		Mult: func(a, b float64) float64 { return a + b },
		Add: Monoid[float64]{
			Op:       math.Min,
			Identity: math.Inf(1),
			Terminal: terminal(math.Inf(-1)),
		},
	}
}

// MaxPlus is the tropical longest-path semiring over float64, with identity
// -inf and terminal +inf.
func MaxPlus() Semiring[float64, float64, float64] {
	return Semiring[float64, float64, float64]{
		Name: "max_plus_fp64",
		Mult: func(a, b float64) float64 { return a + b },
		Add: Monoid[float64]{
			Op:       math.Max,
			Identity: math.Inf(-1),
			Terminal: terminal(math.Inf(1)),
		},
	}
}

// MaxRMinusInt64 pairs the max monoid with reverse-minus multiply over
// int64: z = y - x, cij = max(cij, z). Identity is MinInt64 and the
// accumulator saturates at MaxInt64.
func MaxRMinusInt64() Semiring[int64, int64, int64] {
	return Semiring[int64, int64, int64]{
		Name: "max_rminus_int64",
		Mult: func(x, y int64) int64 { return y - x },
		Add: Monoid[int64]{
			Op:       func(x, y int64) int64 { return max(x, y) },
			Identity: math.MinInt64,
			Terminal: terminal(int64(math.MaxInt64)),
		},
	}
}

// OrAnd is the boolean semiring for structural (pattern) multiply; true is
// terminal for the or monoid.
func OrAnd() Semiring[bool, bool, bool] {
	return Semiring[bool, bool, bool]{
		Name: "lor_land_bool",
		Mult: func(a, b bool) bool { return a && b },
		Add: Monoid[bool]{
			Op:       func(x, y bool) bool { return x || y },
			Identity: false,
			Terminal: terminal(true),
		},
	}
}

// Plus returns the additive monoid alone, for elementwise union and
// duplicate assembly.
func Plus[T Number]() Monoid[T] {
	return Monoid[T]{
		Op:       func(x, y T) T { return x + y },
		Identity: 0,
	}
}

// Second returns its second argument; the default duplicate policy for
// pending tuples (last write wins).
func Second[T any](a, b T) T { return b }

// ISLE compares a <= b and renders the result in the operand type (1 or 0).
func ISLE[T Number]() func(T, T) T {
	return func(a, b T) T {
		if a <= b {
			return 1
		}
		return 0
	}
}
