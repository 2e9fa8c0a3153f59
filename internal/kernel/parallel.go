package kernel

import (
	"context"
	"sort"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/burble"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
	"github.com/cjnolet/GraphBLAS/internal/slicer"
	"github.com/cjnolet/GraphBLAS/internal/task"
	"github.com/cjnolet/GraphBLAS/internal/workspace"
	"github.com/cjnolet/GraphBLAS/semiring"
)

func seqOf[T comparable](v matrix.CSView[T], j int64) slicer.Seq {
	if k, ok := v.FindVec(j); ok {
		return slicer.Seq{I: v.I, Start: v.P[k], End: v.P[k+1]}
	}
	return slicer.Seq{}
}

func maskSeq(m *Mask, j int64) slicer.Seq {
	if m == nil {
		return slicer.Seq{}
	}
	return seqOf(m.V, j)
}

func pieceRange[T comparable](i []int64, x []T, lo, hi int64) Range[T] {
	if lo == slicer.Empty {
		return Range[T]{Lo: -1}
	}
	return Range[T]{I: i, X: x, Lo: lo, Hi: hi}
}

// pieceMask narrows a mask to one piece's pre-resolved offsets, so the
// inner search stays within the piece's band.
func pieceMask(m *Mask, lo, hi int64) maskVec {
	if m == nil {
		return maskVec{}
	}
	mv := maskVec{comp: m.Comp, structural: m.Structural, present: true}
	if lo != slicer.Empty {
		mv.i, mv.x = m.V.I, m.V.X
		mv.lo, mv.hi = lo, hi
	}
	return mv
}

// EWiseAddParallel is EWiseAdd with the work pre-partitioned into pieces
// and run on r. The count phase sizes every piece's output before the fill
// phase starts, so pieces write disjoint ranges of one shared output.
func EWiseAddParallel[T comparable](ctx context.Context, c *matrix.Matrix[T], av, bv matrix.CSView[T], op func(T, T) T, mask *Mask, al alloc.Allocator, r task.Runner, tol slicer.Tolerance) error {
	kernelRuns.WithLabelValues("ewise_add_parallel").Inc()
	vdim := c.Vdim()

	pieces := task.Plan(vdim, func(j int64) task.VecSeqs {
		return task.VecSeqs{A: seqOf(av, j), B: seqOf(bv, j), M: maskSeq(mask, j), Vlen: av.Vlen}
	}, task.DefaultGrain, tol)
	burble.Log().Int("pieces", len(pieces)).Msg("ewise_add plan")

	counts := make([]int64, len(pieces))
	err := r.Run(ctx, len(pieces), func(t int) error {
		p := pieces[t]
		ra := pieceRange(av.I, av.X, p.Lo.PA, p.Hi.PA)
		rb := pieceRange(bv.I, bv.X, p.Lo.PB, p.Hi.PB)
		counts[t] = CountUnion(ra, rb, pieceMask(mask, p.Lo.PM, p.Hi.PM))
		return nil
	})
	if err != nil {
		return err
	}

	offs := make([]int64, len(pieces)+1)
	for t, n := range counts {
		offs[t+1] = offs[t] + n
	}

	cp, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	for t, p := range pieces {
		if t == 0 || pieces[t-1].J != p.J {
			cp[p.J] = offs[t]
		}
	}
	cnz := offs[len(pieces)]
	cp[vdim] = cnz

	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[T](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}

	err = r.Run(ctx, len(pieces), func(t int) error {
		p := pieces[t]
		ra := pieceRange(av.I, av.X, p.Lo.PA, p.Hi.PA)
		rb := pieceRange(bv.I, bv.X, p.Lo.PB, p.Hi.PB)
		end := FillUnion(ci, cx, offs[t], ra, rb, op, pieceMask(mask, p.Lo.PM, p.Hi.PM))
		if end != offs[t+1] {
			panic("kernel: fill phase disagrees with count phase")
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}

// EWiseMultParallel is EWiseMult on pre-partitioned pieces.
func EWiseMultParallel[A, B, C comparable](ctx context.Context, c *matrix.Matrix[C], av matrix.CSView[A], bv matrix.CSView[B], op func(A, B) C, mask *Mask, al alloc.Allocator, r task.Runner, tol slicer.Tolerance) error {
	kernelRuns.WithLabelValues("ewise_mult_parallel").Inc()
	vdim := c.Vdim()

	pieces := task.Plan(vdim, func(j int64) task.VecSeqs {
		return task.VecSeqs{A: seqOf(av, j), B: seqOf(bv, j), M: maskSeq(mask, j), Vlen: av.Vlen}
	}, task.DefaultGrain, tol)
	burble.Log().Int("pieces", len(pieces)).Msg("ewise_mult plan")

	counts := make([]int64, len(pieces))
	err := r.Run(ctx, len(pieces), func(t int) error {
		p := pieces[t]
		ra := pieceRange(av.I, av.X, p.Lo.PA, p.Hi.PA)
		rb := pieceRange(bv.I, bv.X, p.Lo.PB, p.Hi.PB)
		counts[t] = CountIntersect(ra, rb, pieceMask(mask, p.Lo.PM, p.Hi.PM))
		return nil
	})
	if err != nil {
		return err
	}

	offs := make([]int64, len(pieces)+1)
	for t, n := range counts {
		offs[t+1] = offs[t] + n
	}

	cp, err := alloc.Slice[int64](al, int(vdim)+1)
	if err != nil {
		return err
	}
	for t, p := range pieces {
		if t == 0 || pieces[t-1].J != p.J {
			cp[p.J] = offs[t]
		}
	}
	cnz := offs[len(pieces)]
	cp[vdim] = cnz

	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[C](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}

	err = r.Run(ctx, len(pieces), func(t int) error {
		p := pieces[t]
		ra := pieceRange(av.I, av.X, p.Lo.PA, p.Hi.PA)
		rb := pieceRange(bv.I, bv.X, p.Lo.PB, p.Hi.PB)
		FillIntersect(ci, cx, offs[t], ra, rb, op, pieceMask(mask, p.Lo.PM, p.Hi.PM))
		return nil
	})
	if err != nil {
		return err
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}

// GustavsonParallel runs the gather/scatter multiply over contiguous chunks
// of output vectors. A symbolic pass sizes each vector's output, a serial
// prefix sum fixes every vector's range, and the numeric pass fills those
// ranges in parallel. Both passes visit contributions in the same order, so
// the result is identical to the serial kernel's.
func GustavsonParallel[A, B, C comparable](
	ctx context.Context,
	c *matrix.Matrix[C],
	ops Operands[A, B],
	mask *Mask,
	s semiring.Semiring[A, B, C],
	pool *workspace.Pool[C],
	al alloc.Allocator,
	r task.Runner,
) error {
	kernelRuns.WithLabelValues("gustavson_parallel").Inc()
	burble.Log().Str("kernel", "gustavson_parallel").Str("semiring", s.Name).Msg("mxm")

	cvlen := ops.A.Vlen
	cvdim := ops.B.Vdim

	chunks := task.ChunkVectors(cvdim, func(j int64) int64 {
		return seqOf(ops.B, j).Len() + 1
	}, task.DefaultGrain)

	cp, err := alloc.Slice[int64](al, int(cvdim)+1)
	if err != nil {
		return err
	}
	cnt := make([]int64, cvdim)

	err = r.Run(ctx, len(chunks), func(t int) error {
		w, werr := pool.Get(al, cvlen)
		if werr != nil {
			return werr
		}
		defer pool.Put(w)
		for j := chunks[t].Start; j < chunks[t].End; j++ {
			cnt[j] = symbolicVector(ops, mask, w, j)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cp[0] = 0
	for j := int64(0); j < cvdim; j++ {
		cp[j+1] = cp[j] + cnt[j]
	}
	cnz := cp[cvdim]

	ci, err := alloc.Slice[int64](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		return err
	}
	cx, err := alloc.Slice[C](al, int(cnz))
	if err != nil {
		alloc.Release(al, cp)
		alloc.Release(al, ci)
		return err
	}

	err = r.Run(ctx, len(chunks), func(t int) error {
		w, werr := pool.Get(al, cvlen)
		if werr != nil {
			return werr
		}
		defer pool.Put(w)
		var pattern []int64
		for j := chunks[t].Start; j < chunks[t].End; j++ {
			pattern = numericVector(ops, mask, s, w, j, ci[cp[j]:cp[j+1]], cx[cp[j]:cp[j+1]], pattern)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.AdoptSparse(cp, ci, cx)
	return nil
}

// symbolicVector counts the post-mask pattern of output vector j without
// touching values.
func symbolicVector[A, B, C comparable](ops Operands[A, B], mask *Mask, w *workspace.Workspace[C], j int64) int64 {
	bk, ok := ops.B.FindVec(j)
	if !ok {
		return 0
	}
	w.Reset()
	var n int64
	mv := mask.forVector(j)
	for q := ops.B.P[bk]; q < ops.B.P[bk+1]; q++ {
		ak, ok := ops.A.FindVec(ops.B.I[q])
		if !ok {
			continue
		}
		for qa := ops.A.P[ak]; qa < ops.A.P[ak+1]; qa++ {
			i := ops.A.I[qa]
			if !w.Marked(i) {
				w.Mark(i)
				if mv.allows(i) {
					n++
				}
			}
		}
	}
	return n
}

// numericVector recomputes vector j with values into its pre-sized output
// slices. The scratch pattern slice is returned for reuse across vectors.
func numericVector[A, B, C comparable](
	ops Operands[A, B],
	mask *Mask,
	s semiring.Semiring[A, B, C],
	w *workspace.Workspace[C],
	j int64,
	ci []int64,
	cx []C,
	pattern []int64,
) []int64 {
	bk, ok := ops.B.FindVec(j)
	if !ok {
		return pattern
	}
	w.Reset()
	pattern = pattern[:0]
	for q := ops.B.P[bk]; q < ops.B.P[bk+1]; q++ {
		bkj := ops.bVal(q)
		ak, ok := ops.A.FindVec(ops.B.I[q])
		if !ok {
			continue
		}
		for qa := ops.A.P[ak]; qa < ops.A.P[ak+1]; qa++ {
			i := ops.A.I[qa]
			z := s.Mult(ops.aVal(qa), bkj)
			if !w.Marked(i) {
				w.Mark(i)
				w.Vals[i] = z
				pattern = append(pattern, i)
			} else {
				w.Vals[i] = s.Add.Op(w.Vals[i], z)
			}
		}
	}
	sort.Slice(pattern, func(x, y int) bool { return pattern[x] < pattern[y] })

	mv := mask.forVector(j)
	out := 0
	for _, i := range pattern {
		if !mv.allows(i) {
			continue
		}
		ci[out] = i
		cx[out] = w.Vals[i]
		out++
	}
	if out != len(ci) {
		panic("kernel: numeric phase disagrees with symbolic phase")
	}
	return pattern
}
