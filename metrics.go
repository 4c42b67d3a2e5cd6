package memarena

// PoolMetrics is a snapshot of one pool's statistics.
type PoolMetrics struct {
	Name        string
	State       PoolState
	Capacity    int     // Bytes in the active Block (0 when dropped by Reset)
	SizeInUse   int     // Cursor of the active Block, padding included
	Peak        int     // Highest cursor seen since creation
	Generation  uint32  // Advanced by every Reset
	Allocs      uint64  // Successful non-empty allocations
	Failures    uint64  // Allocations that returned an error
	Grows       uint64  // Block replacements
	Resets      uint64  // Reset calls
	Frees       uint64  // Allocations freed directly or via attachment
	Attachments int     // Live attachment edges
	Utilization float64 // SizeInUse / Capacity (0.0-1.0)
	Fixed       bool
	Volatile    bool
}

// Metrics returns a snapshot of the pool's statistics.
func (p *Pool) Metrics() PoolMetrics {
	m := PoolMetrics{
		Name:       p.cfg.Name,
		State:      p.state,
		Peak:       p.stats.peak,
		Generation: p.gen,
		Allocs:     p.stats.allocs,
		Failures:   p.stats.failures,
		Grows:      p.stats.grows,
		Resets:     p.stats.resets,
		Frees:      p.stats.frees,
		Fixed:      p.cfg.Fixed,
		Volatile:   p.cfg.Volatile,
	}
	if p.block != nil {
		m.Capacity = p.block.Capacity()
		m.SizeInUse = p.block.Cursor()
	}
	if p.links != nil {
		m.Attachments = p.links.size()
	}
	if m.Capacity > 0 {
		m.Utilization = float64(m.SizeInUse) / float64(m.Capacity)
	}
	return m
}

// SizeInUse returns the bytes handed out from the active Block.
func (p *Pool) SizeInUse() int {
	if p.block == nil {
		return 0
	}
	return p.block.Cursor()
}

// Capacity returns the size of the active Block.
func (p *Pool) Capacity() int {
	if p.block == nil {
		return 0
	}
	return p.block.Capacity()
}

// ArenaMetrics aggregates the metrics of every pool in an arena.
type ArenaMetrics struct {
	Pools       []PoolMetrics
	SizeInUse   int
	Capacity    int
	Utilization float64
}

// Metrics returns a snapshot of every pool's statistics.
func (m *MemoryArena) Metrics() ArenaMetrics {
	var out ArenaMetrics
	for _, p := range m.pools {
		pm := p.Metrics()
		out.Pools = append(out.Pools, pm)
		out.SizeInUse += pm.SizeInUse
		out.Capacity += pm.Capacity
	}
	if out.Capacity > 0 {
		out.Utilization = float64(out.SizeInUse) / float64(out.Capacity)
	}
	return out
}

// Pool returns the metrics of the named pool.
func (am ArenaMetrics) Pool(name string) (PoolMetrics, bool) {
	for _, pm := range am.Pools {
		if pm.Name == name {
			return pm, true
		}
	}
	return PoolMetrics{}, false
}
