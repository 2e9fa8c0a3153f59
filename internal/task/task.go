// Package task plans and runs parallel kernel work. Planning is entirely
// ahead of execution: the partitioner fixes every task boundary before any
// kernel runs, so tasks write disjoint output ranges and need no locks.
// Execution is a bounded errgroup with a join barrier, letting drivers run
// a count phase to completion before the fill phase starts.
package task

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cjnolet/GraphBLAS/internal/slicer"
)

// DefaultGrain is the target number of entries per piece. Small enough to
// balance skewed vectors, large enough that scheduling overhead stays
// negligible.
const DefaultGrain = 4096

// Piece is one pre-planned unit of elementwise work: a sub-range of vector
// J delimited by two partitioner boundaries.
type Piece struct {
	J      int64
	Lo, Hi slicer.Split
}

// VecSeqs carries the per-vector sequences handed to the partitioner.
type VecSeqs struct {
	A, B, M slicer.Seq
	Vlen    int64
}

// Plan cuts every vector into pieces of roughly grain entries. Each vector
// yields at least one piece, so a driver can recover per-vector output
// offsets from the first piece of each vector.
func Plan(vdim int64, seqs func(j int64) VecSeqs, grain int64, tol slicer.Tolerance) []Piece {
	if grain <= 0 {
		grain = DefaultGrain
	}
	var pieces []Piece
	for j := int64(0); j < vdim; j++ {
		s := seqs(j)
		work := s.A.Len() + s.B.Len()
		nt := int((work + grain - 1) / grain)
		if nt < 1 {
			nt = 1
		}
		bounds := slicer.Decompose(s.A, s.B, s.M, s.Vlen, nt, tol)
		for k := 0; k+1 < len(bounds); k++ {
			pieces = append(pieces, Piece{J: j, Lo: bounds[k], Hi: bounds[k+1]})
		}
	}
	return pieces
}

// Chunk is a contiguous run of vectors assigned to one task.
type Chunk struct {
	Start, End int64
}

// ChunkVectors groups the vectors [0, vdim) into contiguous chunks whose
// summed weight is roughly grain each. Every vector lands in exactly one
// chunk.
func ChunkVectors(vdim int64, weight func(j int64) int64, grain int64) []Chunk {
	if grain <= 0 {
		grain = DefaultGrain
	}
	var chunks []Chunk
	start := int64(0)
	acc := int64(0)
	for j := int64(0); j < vdim; j++ {
		acc += weight(j)
		if acc >= grain {
			chunks = append(chunks, Chunk{Start: start, End: j + 1})
			start = j + 1
			acc = 0
		}
	}
	if start < vdim || len(chunks) == 0 {
		chunks = append(chunks, Chunk{Start: start, End: vdim})
	}
	return chunks
}

// Runner executes planned work with bounded parallelism.
type Runner struct {
	// Workers caps concurrent tasks; zero means GOMAXPROCS.
	Workers int
}

func (r Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run invokes fn for every task index in [0, n) and joins before
// returning. The first error cancels the remaining tasks.
func (r Runner) Run(ctx context.Context, n int, fn func(t int) error) error {
	if n <= 1 {
		if n == 1 {
			return fn(0)
		}
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for t := 0; t < n; t++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(t)
		})
	}
	return g.Wait()
}
