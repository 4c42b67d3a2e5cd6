//go:build unix

package memarena

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestMmapSource(t *testing.T) {
	src := NewOSSource()
	buf, err := src.Acquire(3 * 4096)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(buf) != 3*4096 {
		t.Errorf("len = %d, want %d", len(buf), 3*4096)
	}
	for i, c := range buf {
		if c != 0 {
			t.Fatalf("buf[%d] = %d, want zero-filled mapping", i, c)
		}
	}
	buf[len(buf)-1] = 0xff
	if err := src.Release(buf); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestMmapSourceInvalidSize(t *testing.T) {
	if _, err := NewOSSource().Acquire(0); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Acquire(0) = %v, want ErrOutOfMemory", err)
	}
}

func TestArenaOnMmap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = NewOSSource()
	m, err := NewMemoryArena(cfg)
	if err != nil {
		t.Fatalf("NewMemoryArena: %v", err)
	}
	perm := m.Permanent()
	r, err := Allocate[uint64](perm, 1000, true)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	vals, err := Slice[uint64](perm, r)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	for i := range vals {
		vals[i] = uint64(i)
	}
	// 8000 bytes do not fit the 1 KiB block, so the pool grew on mmap.
	if perm.Pool().Metrics().Grows != 1 {
		t.Errorf("Grows = %d, want 1", perm.Pool().Metrics().Grows)
	}
	if err := m.Teardown(); err != nil {
		t.Errorf("Teardown: %v", err)
	}
}
