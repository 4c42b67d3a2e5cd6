package memarena

import (
	"math"
	"testing"
)

func TestPoolMetrics(t *testing.T) {
	p := newTestPool(t, PoolConfig{Name: "metrics", Size: 1024})
	a := p.Allocator()

	// Test initial state
	m := p.Metrics()
	if m.Name != "metrics" || m.State != PoolActive {
		t.Errorf("Name = %q State = %s", m.Name, m.State)
	}
	if m.SizeInUse != 0 || m.Capacity != 1024 || m.Utilization != 0 {
		t.Errorf("initial metrics = %+v", m)
	}
	if m.Generation != 1 {
		t.Errorf("Generation = %d, want 1", m.Generation)
	}

	// Allocate some data
	a.Alloc(100, 1, false)
	a.Alloc(200, 1, false)
	m = p.Metrics()
	if m.SizeInUse != 300 || m.Allocs != 2 {
		t.Errorf("SizeInUse = %d Allocs = %d, want 300 and 2", m.SizeInUse, m.Allocs)
	}
	if m.Utilization <= 0 || m.Utilization > 1 {
		t.Errorf("Utilization = %f, want 0 < x <= 1", m.Utilization)
	}

	// Force a grow
	a.Alloc(2000, 1, false)
	m = p.Metrics()
	if m.Grows != 1 || m.Capacity != 2000+1024*2 {
		t.Errorf("Grows = %d Capacity = %d, want 1 and %d", m.Grows, m.Capacity, 2000+1024*2)
	}
	if m.Peak != 2300 {
		t.Errorf("Peak = %d, want 2300", m.Peak)
	}

	// Reset keeps the peak
	a.Reset()
	m = p.Metrics()
	if m.SizeInUse != 0 || m.Peak != 2300 || m.Resets != 1 || m.Generation != 2 {
		t.Errorf("after Reset = %+v", m)
	}
}

func TestPoolMetricsFailures(t *testing.T) {
	p := newTestPool(t, PoolConfig{Name: "fixed", Size: 8, Fixed: true})
	a := p.Allocator()

	a.Alloc(8, 1, false)
	a.Alloc(1, 1, false)
	Allocate[uint64](a, math.MaxInt/2, false)
	m := p.Metrics()
	if m.Failures != 2 || m.Allocs != 1 {
		t.Errorf("Failures = %d Allocs = %d, want 2 and 1", m.Failures, m.Allocs)
	}
	if !m.Fixed || m.Volatile {
		t.Errorf("Fixed = %v Volatile = %v", m.Fixed, m.Volatile)
	}
	if m.Utilization != 1 {
		t.Errorf("Utilization = %f, want 1", m.Utilization)
	}
}

func TestPoolMetricsAttachments(t *testing.T) {
	p := newTestPool(t, PoolConfig{Name: "links", Size: 64})
	a := p.Allocator()

	parent, _ := a.Alloc(8, 1, false)
	c1, _ := a.Alloc(8, 1, false)
	c2, _ := a.Alloc(8, 1, false)
	a.Attach(c1, parent)
	a.Attach(c2, parent)
	if got := p.Metrics().Attachments; got != 2 {
		t.Errorf("Attachments = %d, want 2", got)
	}
	a.Free(parent)
	m := p.Metrics()
	if m.Attachments != 0 || m.Frees != 3 {
		t.Errorf("Attachments = %d Frees = %d, want 0 and 3", m.Attachments, m.Frees)
	}
}

func TestArenaMetrics(t *testing.T) {
	arena, err := NewMemoryArena(Config{
		PermanentSize: KB,
		TransientSize: 4 * KB,
		AddCustomPool: true,
		CustomSize:    512,
		CustomFixed:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer arena.Teardown()

	arena.Permanent().Alloc(100, 1, false)
	arena.Transient().Alloc(1000, 1, false)
	arena.Custom().Alloc(12, 1, false)

	m := arena.Metrics()
	if len(m.Pools) != 3 {
		t.Fatalf("pools = %d, want 3", len(m.Pools))
	}
	if m.SizeInUse != 1112 {
		t.Errorf("SizeInUse = %d, want 1112", m.SizeInUse)
	}
	if m.Capacity != KB+4*KB+512 {
		t.Errorf("Capacity = %d, want %d", m.Capacity, KB+4*KB+512)
	}
	if m.Utilization <= 0 || m.Utilization > 1 {
		t.Errorf("Utilization = %f", m.Utilization)
	}

	tm, ok := m.Pool(TransientPool)
	if !ok || !tm.Volatile || tm.SizeInUse != 1000 {
		t.Errorf("transient metrics = %+v, %v", tm, ok)
	}
	if _, ok := m.Pool("missing"); ok {
		t.Error("Pool(missing) found metrics")
	}

	// A volatile reset drops the block from the totals.
	arena.Transient().Reset()
	m = arena.Metrics()
	if m.Capacity != KB+512 {
		t.Errorf("Capacity after transient reset = %d, want %d", m.Capacity, KB+512)
	}
}

func TestPoolStateString(t *testing.T) {
	tests := []struct {
		state PoolState
		want  string
	}{
		{PoolUninitialized, "uninitialized"},
		{PoolActive, "active"},
		{PoolTornDown, "torn down"},
		{PoolState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("PoolState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestRefString(t *testing.T) {
	if got := (Ref{}).String(); got != "ref(nil)" {
		t.Errorf("nil ref String = %q", got)
	}
	r := Ref{pool: 2, off: 16, size: 8, gen: 3}
	if got := r.String(); got != "ref(pool=2 off=16 len=8 gen=3)" {
		t.Errorf("String = %q", got)
	}
}
