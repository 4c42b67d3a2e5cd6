package memarena

import (
	"sync"
	"sync/atomic"
	"testing"
)

func newSafeTestAllocator(t testing.TB, size int) *SafeAllocator {
	m, err := NewMemoryArena(Config{PermanentSize: KB, TransientSize: size})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Teardown() })
	return NewSafeAllocator(m.Transient())
}

func TestSafeAllocatorOperations(t *testing.T) {
	s := newSafeTestAllocator(t, 1024)

	r, err := s.Alloc(16, 8, true)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if n, err := s.Write(r, []byte("hello, arena")); err != nil || n != 12 {
		t.Errorf("Write = (%d, %v), want (12, nil)", n, err)
	}
	dst := make([]byte, 16)
	if n, err := s.Read(r, dst); err != nil || n != 16 {
		t.Errorf("Read = (%d, %v), want (16, nil)", n, err)
	}
	if string(dst[:12]) != "hello, arena" {
		t.Errorf("Read content = %q", dst[:12])
	}

	r = s.Shrink(r, 5)
	r, err = s.Realloc(r, 64, 1)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	dst = make([]byte, 5)
	s.Read(r, dst)
	if string(dst) != "hello" {
		t.Errorf("Realloc content = %q, want hello", dst)
	}

	child, _ := s.Alloc(8, 1, false)
	s.Attach(child, r)
	s.Free(r)
	if got := s.Metrics().Frees; got != 2 {
		t.Errorf("Frees = %d, want 2", got)
	}

	s.Reset()
	if s.Metrics().SizeInUse != 0 {
		t.Error("Expected zero size in use after Reset")
	}
	if _, err := s.Read(r, dst); err == nil {
		t.Error("Read of stale ref succeeded")
	}
}

func TestSafeTypedHelpers(t *testing.T) {
	s := newSafeTestAllocator(t, 1024)

	r, err := SafeAllocate[int64](s, 4, true)
	if err != nil {
		t.Fatalf("SafeAllocate: %v", err)
	}
	err = SafeUpdate(s, r, func(v []int64) {
		for i := range v {
			v[i] = int64(i + 10)
		}
	})
	if err != nil {
		t.Fatalf("SafeUpdate: %v", err)
	}
	r, err = SafeReallocate[int64](s, r, 8)
	if err != nil {
		t.Fatalf("SafeReallocate: %v", err)
	}
	SafeUpdate(s, r, func(v []int64) {
		if len(v) != 8 || v[0] != 10 || v[3] != 13 {
			t.Errorf("after SafeReallocate = %v", v)
		}
	})
}

func TestSafeAllocatorConcurrency(t *testing.T) {
	// Small block so goroutines race through several grows.
	s := newSafeTestAllocator(t, 256)
	const numGoroutines = 10
	const numAllocsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	refs := make([][]Ref, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numAllocsPerGoroutine; j++ {
				r, err := SafeAllocate[uint32](s, 4, false)
				if err != nil {
					t.Error(err)
					return
				}
				SafeUpdate(s, r, func(v []uint32) {
					for k := range v {
						v[k] = uint32(id<<16 | j)
					}
				})
				refs[id] = append(refs[id], r)
			}
		}(i)
	}
	wg.Wait()

	// Every allocation keeps its writer's stamp across the grows.
	for id, rs := range refs {
		for j, r := range rs {
			want := uint32(id<<16 | j)
			SafeUpdate(s, r, func(v []uint32) {
				for k := range v {
					if v[k] != want {
						t.Errorf("goroutine %d alloc %d [%d] = %#x, want %#x", id, j, k, v[k], want)
					}
				}
			})
		}
	}
	m := s.Metrics()
	if m.Allocs != numGoroutines*numAllocsPerGoroutine {
		t.Errorf("Allocs = %d, want %d", m.Allocs, numGoroutines*numAllocsPerGoroutine)
	}
	if m.Grows == 0 {
		t.Error("expected the pool to grow")
	}
}

func BenchmarkSafeAllocatorParallel(b *testing.B) {
	s := newSafeTestAllocator(b, 1*MB)
	var n atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Alloc(64, 8, false); err != nil {
				b.Fatal(err)
			}
			if n.Add(1)%10000 == 0 {
				s.Reset()
			}
		}
	})
}
