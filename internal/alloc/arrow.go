package alloc

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowAllocator adapts an Arrow memory.Allocator to the engine's Allocator
// interface. Arrow allocators panic on failure; the panic is translated into
// ErrOutOfMemory so it propagates as a status like every other allocation
// failure.
type ArrowAllocator struct {
	Mem memory.Allocator
}

// NewArrowAllocator wraps mem, defaulting to the Go allocator when nil.
func NewArrowAllocator(mem memory.Allocator) *ArrowAllocator {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &ArrowAllocator{Mem: mem}
}

func (a *ArrowAllocator) Allocate(size int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			ReportFailure()
			buf = nil
			err = fmt.Errorf("%w: arrow allocator: %v", ErrOutOfMemory, r)
		}
	}()
	return a.Mem.Allocate(size), nil
}

func (a *ArrowAllocator) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	a.Mem.Free(buf)
}
