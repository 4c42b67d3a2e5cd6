package memarena

import (
	"runtime"
	"testing"
)

func newBenchArena(b *testing.B, src BlockSource) *MemoryArena {
	b.Helper()
	m, err := NewMemoryArena(Config{
		PermanentSize: 64 * KB,
		TransientSize: 1 * MB,
		Source:        src,
	})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = m.Teardown() })
	return m
}

// BenchmarkRealisticUsage compares per-request transient allocation with
// the Go heap.
func BenchmarkRealisticUsage(b *testing.B) {

	// Many small allocations with a reset per request
	b.Run("ManySmallAllocs/Arena", func(b *testing.B) {
		tmp := newBenchArena(b, nil).Transient()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 100; j++ {
				tmp.Alloc(64, 8, false)
			}
			tmp.Reset()
		}
	})

	b.Run("ManySmallAllocs/Builtin", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			objects := make([][]byte, 100)
			for j := 0; j < 100; j++ {
				objects[j] = make([]byte, 64)
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	type record struct {
		ID   int64
		Data [56]byte
	}

	b.Run("StructAllocs/Arena", func(b *testing.B) {
		tmp := newBenchArena(b, nil).Transient()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 50; j++ {
				_, s, _ := New[record](tmp)
				s.ID = int64(j)
			}
			tmp.Reset()
		}
	})

	b.Run("StructAllocs/Builtin", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			structs := make([]*record, 50)
			for j := 0; j < 50; j++ {
				structs[j] = &record{ID: int64(j)}
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	// Per-item scratch buffers released wholesale
	b.Run("BufferReuse/Arena", func(b *testing.B) {
		perm := newBenchArena(b, nil).Permanent()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 10; j++ {
				_, buf1, _ := perm.AllocBytes(1024)
				_, buf2, _ := perm.AllocBytes(2048)
				buf1[0] = byte(j)
				buf2[0] = byte(j)
			}
			perm.Reset()
		}
	})
}

// BenchmarkGrow measures pools that start empty and double their way up.
func BenchmarkGrow(b *testing.B) {
	b.Run("Heap", func(b *testing.B) {
		benchmarkGrow(b, NewHeapSource(0))
	})
	b.Run("OS", func(b *testing.B) {
		benchmarkGrow(b, NewOSSource())
	})
}

func benchmarkGrow(b *testing.B, src BlockSource) {
	m := newBenchArena(b, src)
	a, err := m.AddPool(PoolConfig{Name: "grow", Volatile: true})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, _ := a.Alloc(16, 8, false)
		for j := 0; j < 16; j++ {
			r, _ = a.Realloc(r, r.Len()*2, 8)
		}
		a.Reset()
	}
}

// BenchmarkAttachFree measures freeing a wide attachment tree.
func BenchmarkAttachFree(b *testing.B) {
	perm := newBenchArena(b, nil).Permanent()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		root, _ := perm.Alloc(8, 8, false)
		for j := 0; j < 100; j++ {
			c, _ := perm.Alloc(8, 8, false)
			perm.Attach(c, root)
		}
		perm.Free(root)
		perm.Reset()
	}
}
