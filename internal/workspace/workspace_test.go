package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjnolet/GraphBLAS/internal/alloc"
)

func TestWorkspaceMarks(t *testing.T) {
	var p Pool[float64]
	w, err := p.Get(alloc.GoAllocator{}, 8)
	require.NoError(t, err)

	assert.False(t, w.Marked(3))
	w.Vals[3] = 1.5
	w.Mark(3)
	assert.True(t, w.Marked(3))

	// Reset invalidates every mark without clearing values.
	w.Reset()
	assert.False(t, w.Marked(3))
}

func TestPoolReuse(t *testing.T) {
	var p Pool[int64]
	a := &alloc.LimitAllocator{Budget: 2}

	w, err := p.Get(a, 16)
	require.NoError(t, err)
	w.Mark(5)
	p.Put(w)

	// The pooled workspace is reused with marks reset; no new allocation.
	w2, err := p.Get(a, 16)
	require.NoError(t, err)
	assert.Same(t, w, w2)
	assert.False(t, w2.Marked(5))
	assert.Equal(t, 2, a.Calls())
}

func TestPoolAllocationFailure(t *testing.T) {
	var p Pool[float64]
	a := &alloc.LimitAllocator{Budget: 1}
	_, err := p.Get(a, 4)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
}
