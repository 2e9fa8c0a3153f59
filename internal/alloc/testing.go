package alloc

// LimitAllocator fails every Allocate after the first Budget successful
// calls. It exists so tests can drive the allocation-failure paths of format
// conversion and kernel workspace setup deterministically.
type LimitAllocator struct {
	Budget int
	calls  int
}

func (l *LimitAllocator) Allocate(size int) ([]byte, error) {
	if l.calls >= l.Budget {
		allocFailures.Inc()
		return nil, ErrOutOfMemory
	}
	l.calls++
	return make([]byte, size), nil
}

func (l *LimitAllocator) Free(buf []byte) {}

// Calls reports how many allocations succeeded.
func (l *LimitAllocator) Calls() int { return l.calls }
