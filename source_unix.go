//go:build unix

package memarena

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapSource backs Blocks with private anonymous mappings, keeping arena
// memory off the Go heap. Mappings are page-aligned and zero-filled.
type MmapSource struct{}

// NewOSSource returns the platform's native BlockSource.
func NewOSSource() BlockSource {
	return MmapSource{}
}

// Acquire maps size bytes of anonymous memory.
func (MmapSource) Acquire(size int) ([]byte, error) {
	if size <= 0 || size > maxBlockSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "mmap block of %d bytes", size)
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, ErrOutOfMemory), "mmap block of %d bytes", size)
	}
	return buf, nil
}

// Release unmaps a region previously returned by Acquire.
func (MmapSource) Release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return errors.Wrap(unix.Munmap(buf), "munmap block")
}
