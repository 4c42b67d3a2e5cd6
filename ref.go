package memarena

import "fmt"

// Ref is a handle to an allocation: the owning pool, the offset inside the
// pool's Block, the logical size and the pool generation it was minted in.
// Refs are dereferenced through their Allocator, which recomputes the
// address from the pool's current Block, so they stay usable across grows.
// A Ref minted before a Reset is rejected with ErrStaleRef.
//
// The zero Ref is the null handle.
type Ref struct {
	pool uint32
	off  int
	size int
	gen  uint32
}

// IsNil reports whether r is the null handle.
func (r Ref) IsNil() bool { return r.pool == 0 }

// Len returns the logical size of the allocation in bytes.
func (r Ref) Len() int { return r.size }

// Offset returns the byte offset of the allocation inside its pool.
func (r Ref) Offset() int { return r.off }

// Generation returns the pool generation the Ref was minted in.
func (r Ref) Generation() uint32 { return r.gen }

func (r Ref) String() string {
	if r.IsNil() {
		return "ref(nil)"
	}
	return fmt.Sprintf("ref(pool=%d off=%d len=%d gen=%d)", r.pool, r.off, r.size, r.gen)
}

// refKey identifies an allocation independently of its logical size, so a
// shrunk Ref still names the same allocation.
type refKey struct {
	off int
	gen uint32
}

func (r Ref) key() refKey { return refKey{off: r.off, gen: r.gen} }
