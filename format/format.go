// Package format defines the four physical matrix formats, the
// sparsity-control bitmask that restricts which formats a matrix may settle
// into, and the density predicates that drive format-switch decisions.
package format

import (
	"fmt"
	"strings"
)

// Format identifies the current physical layout of a matrix.
type Format uint8

const (
	// Hypersparse stores compressed vectors plus an explicit list of the
	// non-empty vector indices; empty vectors occupy no storage at all.
	Hypersparse Format = iota
	// Sparse stores compressed vectors with one slot per vector, whether
	// the vector is empty or not.
	Sparse
	// Bitmap stores a dense value array plus a per-slot presence bit.
	Bitmap
	// Full stores a dense value array with every slot implicitly present.
	Full
)

func (f Format) String() string {
	switch f {
	case Hypersparse:
		return "hypersparse"
	case Sparse:
		return "sparse"
	case Bitmap:
		return "bitmap"
	case Full:
		return "full"
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// Bit returns the sparsity-control bit for this format.
func (f Format) Bit() Control { return Control(1) << f }

// Control is a bitmask of formats a matrix is permitted to settle into.
// Any non-empty combination of the four format bits is valid; the zero value
// Auto permits all four.
type Control uint8

const (
	HypersparseBit Control = 1 << Hypersparse
	SparseBit      Control = 1 << Sparse
	BitmapBit      Control = 1 << Bitmap
	FullBit        Control = 1 << Full

	// Auto lets the conformance engine pick freely among all four formats.
	Auto Control = 0

	anyBits = HypersparseBit | SparseBit | BitmapBit | FullBit
)

// Effective resolves Auto to the all-formats mask.
func (c Control) Effective() Control {
	if c == Auto {
		return anyBits
	}
	return c & anyBits
}

// Allows reports whether format f is in the permitted set.
func (c Control) Allows(f Format) bool {
	return c.Effective()&f.Bit() != 0
}

func (c Control) String() string {
	if c == Auto {
		return "auto"
	}
	var parts []string
	for _, f := range []Format{Hypersparse, Sparse, Bitmap, Full} {
		if c&f.Bit() != 0 {
			parts = append(parts, f.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Layout selects whether the stored vectors are interpreted as rows or as
// columns. It is pure metadata, orthogonal to the physical format.
type Layout uint8

const (
	ByCol Layout = iota
	ByRow
)

func (l Layout) String() string {
	if l == ByRow {
		return "by row"
	}
	return "by col"
}

// ParseLayout parses "by row" or "by col".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "by row":
		return ByRow, nil
	case "by col":
		return ByCol, nil
	}
	return ByCol, fmt.Errorf("unknown layout %q", s)
}

// ParseFormat parses a single format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hypersparse", "hyper":
		return Hypersparse, nil
	case "sparse":
		return Sparse, nil
	case "bitmap":
		return Bitmap, nil
	case "full":
		return Full, nil
	}
	return Sparse, fmt.Errorf("unknown format %q", s)
}
