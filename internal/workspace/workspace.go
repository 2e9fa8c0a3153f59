// Package workspace provides pooled dense accumulators for the
// gather/scatter multiply kernel. Reusing workspaces across output vectors
// avoids re-zeroing a vlen-sized array per vector: marks carry a generation
// counter, so Reset is O(1).
package workspace

import (
	"sync"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
)

// Workspace is a dense scatter target of one vector length.
type Workspace[C any] struct {
	Vals []C
	mark []int64
	gen  int64
}

// Reset invalidates all marks without touching the arrays.
func (w *Workspace[C]) Reset() { w.gen++ }

// Marked reports whether slot i holds a live accumulation.
func (w *Workspace[C]) Marked(i int64) bool { return w.mark[i] == w.gen }

// Mark flags slot i as live.
func (w *Workspace[C]) Mark(i int64) { w.mark[i] = w.gen }

// Pool hands out workspaces of at least the requested length. One pool
// serves one in-flight operation; tasks return workspaces between vectors.
type Pool[C any] struct {
	p sync.Pool
}

// Get returns a workspace with capacity for n slots, allocating through a
// when the pool is empty or too small.
func (p *Pool[C]) Get(a alloc.Allocator, n int64) (*Workspace[C], error) {
	if v := p.p.Get(); v != nil {
		w := v.(*Workspace[C])
		if int64(len(w.Vals)) >= n {
			w.Reset()
			return w, nil
		}
	}
	vals, err := alloc.Slice[C](a, int(n))
	if err != nil {
		return nil, err
	}
	mark, err := alloc.Slice[int64](a, int(n))
	if err != nil {
		return nil, err
	}
	return &Workspace[C]{Vals: vals, mark: mark, gen: 1}, nil
}

// Put returns a workspace to the pool.
func (p *Pool[C]) Put(w *Workspace[C]) {
	if w != nil {
		p.p.Put(w)
	}
}
