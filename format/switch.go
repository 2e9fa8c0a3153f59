package format

// Default density switches. A matrix denser than the bitmap switch is a
// candidate for bitmap storage; a matrix whose populated-vector ratio falls
// below the hyper switch is a candidate for hypersparse storage.
const (
	DefaultBitmapSwitch = 0.10
	DefaultHyperSwitch  = 0.0625
)

// SparseToBitmapTest reports whether a sparse or hypersparse matrix with
// nvals entries is dense enough to convert to bitmap. The comparison is
// strict so that a matrix sitting exactly on the switch keeps its format.
func SparseToBitmapTest(bitmapSwitch float64, nvals, vlen, vdim int64) bool {
	size := float64(vlen) * float64(vdim)
	if size <= 0 {
		return false
	}
	return float64(nvals) > bitmapSwitch*size
}

// BitmapToSparseTest reports whether a bitmap matrix with nvals entries is
// sparse enough to convert back to sparse storage. The threshold is half the
// bitmap switch, so a matrix between the two thresholds keeps whichever
// format it already has (hysteresis).
func BitmapToSparseTest(bitmapSwitch float64, nvals, vlen, vdim int64) bool {
	size := float64(vlen) * float64(vdim)
	if size <= 0 {
		return true
	}
	return float64(nvals) <= (bitmapSwitch/2)*size
}

// SparseToHyperTest reports whether a sparse matrix with nvecNonEmpty
// populated vectors out of vdim should convert to hypersparse.
func SparseToHyperTest(hyperSwitch float64, nvecNonEmpty, vdim int64) bool {
	return float64(nvecNonEmpty) < hyperSwitch*float64(vdim)
}

// HyperToSparseTest reports whether a hypersparse matrix should convert back
// to sparse. The threshold is twice the hyper switch, mirroring the bitmap
// hysteresis band.
func HyperToSparseTest(hyperSwitch float64, nvecNonEmpty, vdim int64) bool {
	return float64(nvecNonEmpty) > 2*hyperSwitch*float64(vdim)
}
