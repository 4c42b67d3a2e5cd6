package memarena

import "sync"

// SafeAllocator is a mutex-protected wrapper around an Allocator for pools
// shared between goroutines. Every call takes the lock, including the
// typed helpers below. Mixing SafeAllocator and direct Allocator calls on
// the same pool is a data race.
type SafeAllocator struct {
	mu sync.Mutex
	a  *Allocator
}

// NewSafeAllocator wraps a.
func NewSafeAllocator(a *Allocator) *SafeAllocator {
	return &SafeAllocator{a: a}
}

// Alloc thread-safely reserves size bytes aligned to align.
func (s *SafeAllocator) Alloc(size, align int, zeroed bool) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(size, align, zeroed)
}

// Realloc thread-safely reallocates old to size bytes.
func (s *SafeAllocator) Realloc(old Ref, size, align int) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Realloc(old, size, align)
}

// Free thread-safely frees r and everything attached to it.
func (s *SafeAllocator) Free(r Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(r)
}

// Shrink thread-safely reduces r's logical size.
func (s *SafeAllocator) Shrink(r Ref, n int) Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Shrink(r, n)
}

// Attach thread-safely ties child to parent.
func (s *SafeAllocator) Attach(child, parent Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Attach(child, parent)
}

// Reset thread-safely rewinds the pool.
func (s *SafeAllocator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Read copies the bytes behind r into dst under the lock and returns the
// number of bytes copied. A plain view would not survive a concurrent grow.
func (s *SafeAllocator) Read(r Ref, dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.a.Bytes(r)
	if err != nil {
		return 0, err
	}
	return copy(dst, b), nil
}

// Write copies src into the allocation behind r under the lock.
func (s *SafeAllocator) Write(r Ref, src []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.a.Bytes(r)
	if err != nil {
		return 0, err
	}
	return copy(b, src), nil
}

// Metrics thread-safely returns a snapshot of the pool's statistics.
func (s *SafeAllocator) Metrics() PoolMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.pool.Metrics()
}

// SafeAllocate thread-safely reserves count elements of T.
func SafeAllocate[T any](s *SafeAllocator, count int, zeroed bool) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Allocate[T](s.a, count, zeroed)
}

// SafeReallocate thread-safely reallocates old to count elements of T.
func SafeReallocate[T any](s *SafeAllocator, old Ref, count int) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reallocate[T](s.a, old, count)
}

// SafeUpdate runs fn on the []T view of r while holding the lock, so the
// view cannot be invalidated by a concurrent grow.
func SafeUpdate[T any](s *SafeAllocator, r Ref, fn func([]T)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := Slice[T](s.a, r)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}
