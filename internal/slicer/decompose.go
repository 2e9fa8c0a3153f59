package slicer

// Decompose fully splits the co-iteration of A, B and M over one vector
// into ntasks contiguous ranges of roughly equal work. The result holds
// ntasks+1 boundaries: boundary k and boundary k+1 delimit task k, task
// boundaries abut exactly, and the union of all ranges covers every entry
// of each sequence exactly once.
func Decompose(a, b, m Seq, vlen int64, ntasks int, tol Tolerance) []Split {
	if ntasks < 1 {
		ntasks = 1
	}
	total := float64(a.Len() + b.Len())

	bounds := make([]Split, ntasks+1)
	bounds[0] = Split{I: 0, PA: startOf(a), PB: startOf(b), PM: startOf(m)}
	bounds[ntasks] = Split{I: vlen, PA: endOf(a), PB: endOf(b), PM: endOf(m)}

	for k := 1; k < ntasks; k++ {
		// Target the work remaining to the right of boundary k.
		target := total * float64(ntasks-k) / float64(ntasks)
		s := SliceVector(a, b, m, vlen, target, tol)

		// Boundaries must be non-decreasing; re-resolve offsets at the
		// clamped index so every boundary stays self-consistent.
		if s.I < bounds[k-1].I {
			s.I = bounds[k-1].I
			s = Split{I: s.I, PA: locate(a, s.I, vlen), PB: locate(b, s.I, vlen), PM: locate(m, s.I, vlen)}
		}
		bounds[k] = s
	}
	return bounds
}

func startOf(s Seq) int64 {
	if s.Len() == 0 {
		return Empty
	}
	return s.Start
}

func endOf(s Seq) int64 {
	if s.Len() == 0 {
		return Empty
	}
	return s.End
}
