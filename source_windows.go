//go:build windows

package memarena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// VirtualSource backs Blocks with VirtualAlloc reservations. Regions are
// 64 KiB aligned and zero-filled.
type VirtualSource struct{}

// NewOSSource returns the platform's native BlockSource.
func NewOSSource() BlockSource {
	return VirtualSource{}
}

// Acquire reserves and commits size bytes.
func (VirtualSource) Acquire(size int) ([]byte, error) {
	if size <= 0 || size > maxBlockSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "virtual block of %d bytes", size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if addr == 0 || err != nil {
		if err == nil {
			err = ErrOutOfMemory
		}
		return nil, errors.Wrapf(errors.Mark(err, ErrOutOfMemory), "virtual block of %d bytes", size)
	}
	// Cast through *uintptr: addr is never on the Go heap.
	base := *(**byte)(unsafe.Pointer(&addr))
	return unsafe.Slice(base, size), nil
}

// Release frees a region previously returned by Acquire.
func (VirtualSource) Release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	return errors.Wrap(windows.VirtualFree(addr, 0, windows.MEM_RELEASE), "virtual free block")
}
