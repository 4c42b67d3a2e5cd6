package memarena

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Typed helpers. T must not contain Go pointers: arena memory may live off
// the Go heap and is never scanned by the garbage collector.

// Allocate reserves count elements of T aligned to T's natural alignment.
// count*sizeof(T) overflowing fails with ErrAllocationTooLarge and leaves
// the pool untouched. A zero count returns an empty Ref.
func Allocate[T any](a *Allocator, count int, zeroed bool) (Ref, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	return a.pool.allocateArray(count, size, align, zeroed)
}

// Reallocate returns storage for count elements of T holding the leading
// elements of old. A nil old behaves like Allocate without zeroing.
func Reallocate[T any](a *Allocator, old Ref, count int) (Ref, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	if count < 0 {
		violation("negative element count %d", count)
	}
	if size > 0 && count > maxBlockSize/size {
		return Ref{}, errors.Wrapf(ErrAllocationTooLarge,
			"pool %q: %d elements of %d bytes", a.pool.cfg.Name, count, size)
	}
	return a.pool.reallocate(old, count*size, align)
}

// Slice views the allocation behind r as a []T. Like Allocator.Bytes, the
// view is invalidated by the next allocation from the same pool.
func Slice[T any](a *Allocator, r Ref) ([]T, error) {
	b, err := a.pool.resolve(r)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size), nil
}

// Value returns a pointer to the first T of the allocation behind r.
func Value[T any](a *Allocator, r Ref) (*T, error) {
	s, err := Slice[T](a, r)
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, errors.Newf("memarena: %s too small for %T", r, *new(T))
	}
	return &s[0], nil
}

// New allocates one zeroed T and returns its Ref with a pointer to it.
func New[T any](a *Allocator) (Ref, *T, error) {
	r, err := Allocate[T](a, 1, true)
	if err != nil {
		return Ref{}, nil, err
	}
	p, err := Value[T](a, r)
	return r, p, err
}

// KeepAlive returns v after keeping the arena reachable, for unsafe code
// that holds only derived pointers.
func KeepAlive[T any](m *MemoryArena, v T) T {
	runtime.KeepAlive(m)
	return v
}
