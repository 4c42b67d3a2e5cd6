package memarena

import "github.com/cockroachdb/errors"

// Block is one contiguous region with a bump cursor. Allocations are carved
// from [0, cursor); the cursor only moves forward until the owning pool
// resets it.
type Block struct {
	buf      []byte
	cursor   int
	volatile bool
	src      BlockSource
}

// newBlock acquires capacity bytes from src. A zero-capacity Block is legal
// and never touches the source.
func newBlock(src BlockSource, capacity int, volatile bool) (*Block, error) {
	if capacity < 0 {
		violation("negative block capacity %d", capacity)
	}
	b := &Block{volatile: volatile, src: src}
	if capacity == 0 {
		b.buf = []byte{}
		return b, nil
	}
	buf, err := src.Acquire(capacity)
	if err != nil {
		return nil, err
	}
	if len(buf) != capacity {
		violation("block source returned %d bytes, want %d", len(buf), capacity)
	}
	b.buf = buf
	return b, nil
}

// bump reserves size bytes at the next offset aligned to align. It reports
// false, leaving the cursor untouched, when the Block is full.
func (b *Block) bump(size, align int) (int, bool) {
	off := alignUp(b.cursor, align)
	if off > len(b.buf) || size > len(b.buf)-off {
		return 0, false
	}
	b.cursor = off + size
	return off, true
}

// destroy hands the region back to its source. The Block is unusable
// afterwards.
func (b *Block) destroy() error {
	if b.buf == nil {
		violation("block destroyed twice")
	}
	var err error
	if len(b.buf) > 0 {
		err = b.src.Release(b.buf)
	}
	b.buf = nil
	b.cursor = 0
	return errors.Wrap(err, "release block")
}

// Capacity returns the size of the region in bytes.
func (b *Block) Capacity() int { return len(b.buf) }

// Cursor returns the number of bytes handed out, padding included.
func (b *Block) Cursor() int { return b.cursor }

// Free returns the bytes left after the cursor.
func (b *Block) Free() int { return len(b.buf) - b.cursor }

// Volatile reports whether the Block belongs to a volatile pool.
func (b *Block) Volatile() bool { return b.volatile }

// alignUp rounds off up to a multiple of align, which must be a power of two.
func alignUp(off, align int) int {
	mask := align - 1
	return (off + mask) &^ mask
}
