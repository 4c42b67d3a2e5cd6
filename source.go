package memarena

import (
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// MaxAlign is the largest alignment an allocation may request. Every
// BlockSource hands out regions whose base is aligned to MaxAlign, so an
// offset aligned within a Block stays aligned after the Block is replaced.
const MaxAlign = 64

// maxBlockSize caps a single Block request well below the point where
// make or mmap would abort the process instead of failing: 64 TiB on
// 64-bit platforms, 1 GiB on 32-bit ones.
const maxBlockSize = (1 << 30) << (16 * (bits.UintSize / 64))

// BlockSource reserves and releases the raw regions Blocks are built on.
// Acquire must return a slice of exactly size bytes, zero-filled, whose base
// address is MaxAlign-aligned. Release receives the same slice back.
type BlockSource interface {
	Acquire(size int) ([]byte, error)
	Release(buf []byte) error
}

// HeapSource serves Blocks from the Go heap. Limit, when positive, caps the
// number of bytes outstanding at once; requests past it fail with
// ErrOutOfMemory the way an exhausted OS reservation would.
type HeapSource struct {
	Limit       int
	outstanding int
}

// NewHeapSource returns a HeapSource with the given limit (0 = unlimited).
func NewHeapSource(limit int) *HeapSource {
	return &HeapSource{Limit: limit}
}

// Acquire allocates size bytes aligned to MaxAlign.
func (h *HeapSource) Acquire(size int) ([]byte, error) {
	if size < 0 || size > maxBlockSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "heap block of %d bytes", size)
	}
	if h.Limit > 0 && h.outstanding+size > h.Limit {
		return nil, errors.Wrapf(ErrOutOfMemory,
			"heap block of %d bytes exceeds limit (%d of %d in use)", size, h.outstanding, h.Limit)
	}
	raw := make([]byte, size+MaxAlign)
	pad := int(-uintptr(unsafe.Pointer(&raw[0])) & (MaxAlign - 1))
	h.outstanding += size
	return raw[pad : pad+size : pad+size], nil
}

// Release returns the bytes to the budget; the GC reclaims the memory.
func (h *HeapSource) Release(buf []byte) error {
	h.outstanding -= len(buf)
	if h.outstanding < 0 {
		h.outstanding = 0
	}
	return nil
}

// Outstanding reports the bytes currently handed out.
func (h *HeapSource) Outstanding() int {
	return h.outstanding
}
