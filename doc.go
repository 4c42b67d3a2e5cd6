// Package memarena implements a hierarchical bump-allocating memory arena.
//
// # Overview
//
// A MemoryArena owns a set of named pools. Each pool hands out memory from
// one contiguous Block by advancing a cursor, and replaces the Block with a
// larger one (size + capacity*2) when a request does not fit. The built-in
// pools are:
//
//   - "permanent": lives for the whole run, never reset
//   - "transient": volatile, recycled with Reset between units of work
//   - an optional custom pool, growable or fixed-size
//
// # Basic Usage
//
//	m, err := memarena.NewMemoryArena(memarena.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer m.Teardown()
//
//	tmp := m.Transient()
//	r, err := memarena.Allocate[uint64](tmp, 10, true)
//	if err != nil {
//		return err // wraps ErrOutOfMemory or ErrAllocationTooLarge
//	}
//	vals, err := memarena.Slice[uint64](tmp, r)
//
//	tmp.Reset() // every Ref from tmp is now stale
//
// # Refs
//
// Allocations are identified by Ref handles rather than raw pointers. A grow
// copies the used prefix of the old Block into the new one at the same
// offsets, so a Ref is re-derived against the current Block each time it is
// dereferenced. Slices returned by Bytes and Slice are views into the current
// Block and must be re-fetched after any allocation that may grow the pool.
// After Reset, dereferencing an old Ref fails with ErrStaleRef.
//
// # Free, Shrink and Attach
//
// Pools never reclaim individual allocations; bytes come back only on Reset.
// Free exists for its attachment semantics: Attach(child, parent) ties the
// child's lifetime to the parent, and freeing the parent frees the whole
// attached subtree exactly once. Shrink records a smaller logical size on a
// Ref without moving memory.
//
// # Failures
//
// Running out of memory and oversized requests are returned as errors
// (ErrOutOfMemory, ErrAllocationTooLarge). Contract violations such as
// negative sizes, bad alignment, attach cycles or use after Teardown panic.
//
// # Thread Safety
//
// Pools are not goroutine-safe. Share a pool through SafeAllocator or give
// each goroutine its own pool via MemoryArena.AddPool.
//
// # Block Sources
//
// Blocks come from a BlockSource. HeapSource (the default) uses the Go heap
// and can enforce a byte limit; NewOSSource returns anonymous mmap regions
// on unix and VirtualAlloc regions on Windows. Memory from a pool is never
// scanned by the garbage collector, so typed allocations must be of
// pointer-free types.
package memarena
