// Package alloc is the allocation boundary of the engine. Every index array,
// value array, presence bitmap, and kernel workspace is obtained through an
// Allocator so that callers control memory policy and allocation failure is
// reported instead of crashing mid-operation.
package alloc

import (
	"errors"
	"reflect"
	"unsafe"
)

// ErrOutOfMemory is the single error the engine produces internally. Any
// failed Allocate fails the whole in-flight operation.
var ErrOutOfMemory = errors.New("out of memory")

// Allocator hands out raw byte buffers. Implementations must return
// ErrOutOfMemory (possibly wrapped) rather than panic when a buffer cannot
// be obtained. Free is advisory; implementations backed by the Go heap may
// ignore it.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Free(buf []byte)
}

// Slice allocates n elements of type T through a. Element types that
// contain pointers (strings, slices, pointer fields) cannot alias a raw
// byte buffer, since the collector scans those buffers as pointerless; they
// are given collector-visible storage instead, with the size still admitted
// through a so failure policy and accounting apply.
func Slice[T any](a Allocator, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	var zero T
	size := n * int(unsafe.Sizeof(zero))
	buf, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	if hasPointers[T]() {
		a.Free(buf)
		return make([]T, n), nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), n), nil
}

// Release returns a typed slice obtained from Slice to its allocator.
// Pointer-bearing slices live on the Go heap and are left to the collector.
func Release[T any](a Allocator, s []T) {
	if len(s) == 0 || hasPointers[T]() {
		return
	}
	var zero T
	size := len(s) * int(unsafe.Sizeof(zero))
	a.Free(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size))
}

func hasPointers[T any]() bool {
	var zero T
	return typeHasPointers(reflect.TypeOf(&zero).Elem())
}

func typeHasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return typeHasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.String, reflect.Slice,
		reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	default:
		return false
	}
}

// Default is the engine-wide allocator used when the caller supplies none.
var Default Allocator = GoAllocator{}

// GoAllocator allocates from the Go heap. Free is a no-op; the garbage
// collector reclaims buffers once unreferenced.
type GoAllocator struct{}

func (GoAllocator) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}
	return make([]byte, size), nil
}

func (GoAllocator) Free(buf []byte) {}
