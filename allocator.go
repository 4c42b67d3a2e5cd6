package memarena

// Flags describe properties of the memory behind an Allocator.
type Flags uint8

const (
	// FlagVolatileMemory marks memory that Reset discards wholesale.
	// Containers holding such memory must drop their storage on reset.
	FlagVolatileMemory Flags = 1 << iota
)

// Allocator is the handle through which callers allocate from a Pool. It
// does not own memory; it is valid exactly as long as its arena. Obtain one
// from MemoryArena.Permanent, Transient, Custom or Pool.
type Allocator struct {
	pool  *Pool
	flags Flags
}

// Flags returns the allocator's flags.
func (a *Allocator) Flags() Flags { return a.flags }

// Volatile reports whether Reset discards this allocator's memory.
func (a *Allocator) Volatile() bool { return a.flags&FlagVolatileMemory != 0 }

// Pool returns the pool behind the allocator.
func (a *Allocator) Pool() *Pool { return a.pool }

// Alloc reserves size bytes aligned to align, zero-filling them if zeroed
// is set. A zero size returns an empty Ref without touching the Block.
// Errors wrap ErrOutOfMemory.
func (a *Allocator) Alloc(size, align int, zeroed bool) (Ref, error) {
	return a.pool.allocate(size, align, zeroed)
}

// AllocBytes reserves n zero-filled bytes with byte alignment and returns
// both the Ref and a view of the bytes. The view is only valid until the
// next allocation from the same pool; keep the Ref.
func (a *Allocator) AllocBytes(n int) (Ref, []byte, error) {
	r, err := a.pool.allocate(n, 1, true)
	if err != nil {
		return Ref{}, nil, err
	}
	b, err := a.pool.resolve(r)
	return r, b, err
}

// Realloc returns a new allocation of size bytes holding the first
// min(old.Len(), size) bytes of old. A nil old behaves like Alloc. The old
// region is abandoned, not reclaimed, until the pool is reset.
func (a *Allocator) Realloc(old Ref, size, align int) (Ref, error) {
	return a.pool.reallocate(old, size, align)
}

// Free releases r and, transitively, every allocation attached to it.
// Bytes are not reclaimed before Reset. Freeing a nil, empty, stale or
// already freed Ref is a no-op.
func (a *Allocator) Free(r Ref) {
	a.pool.free(r)
}

// Shrink returns r with its logical size reduced to n bytes. Memory and
// the Block cursor do not move.
func (a *Allocator) Shrink(r Ref, n int) Ref {
	return a.pool.shrink(r, n)
}

// Attach ties child's lifetime to parent: freeing parent frees child.
// Attaching a Ref to itself or to one of its descendants panics.
func (a *Allocator) Attach(child, parent Ref) {
	a.pool.attach(child, parent)
}

// Reset rewinds the pool. All Refs obtained from it become stale, and for
// volatile pools the Block itself is released.
func (a *Allocator) Reset() {
	a.pool.reset()
}

// Bytes returns the bytes behind r. The slice is only valid until the next
// allocation from the same pool, since a grow relocates the Block.
func (a *Allocator) Bytes(r Ref) ([]byte, error) {
	return a.pool.resolve(r)
}

// IsFreed reports whether r was freed directly or through an attachment.
func (a *Allocator) IsFreed(r Ref) bool {
	if r.IsNil() || r.off < 0 || r.gen != a.pool.gen || a.pool.links == nil {
		return false
	}
	return a.pool.links.isFreed(r.key())
}

// Parent returns the allocation r is attached to, if any. The returned Ref
// carries no size.
func (a *Allocator) Parent(r Ref) (Ref, bool) {
	if r.IsNil() || r.gen != a.pool.gen || a.pool.links == nil {
		return Ref{}, false
	}
	k, ok := a.pool.links.parentOf(r.key())
	if !ok {
		return Ref{}, false
	}
	return Ref{pool: a.pool.id, off: k.off, gen: k.gen}, true
}
