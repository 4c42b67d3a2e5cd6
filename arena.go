package memarena

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Names of the built-in pools.
const (
	PermanentPool = "permanent"
	TransientPool = "transient"
	CustomPool    = "custom"
)

// Size helpers.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// Config holds the byte budgets an arena is initialised with.
type Config struct {
	PermanentSize int
	TransientSize int
	CustomSize    int
	AddCustomPool bool

	// CustomName overrides CustomPool as the custom pool's name.
	CustomName string

	// CustomFixed makes the custom pool fixed-size.
	CustomFixed bool

	// Growth caps; 0 means unbounded.
	MaxPermanentSize int
	MaxTransientSize int

	// Source reserves Blocks. Defaults to an unlimited HeapSource.
	Source BlockSource

	// Logger defaults to the package Logger().
	Logger *zap.Logger
}

// DefaultConfig returns the budgets the stripcomments tool starts with:
// 1 KiB permanent, 32 MiB transient and an empty custom pool.
func DefaultConfig() Config {
	return Config{
		PermanentSize: 1 * KB,
		TransientSize: 32 * MB,
		CustomSize:    0,
		AddCustomPool: true,
	}
}

func (c Config) validate() error {
	switch {
	case c.PermanentSize < 0:
		return errors.Newf("negative permanent size %d", c.PermanentSize)
	case c.TransientSize < 0:
		return errors.Newf("negative transient size %d", c.TransientSize)
	case c.CustomSize < 0:
		return errors.Newf("negative custom size %d", c.CustomSize)
	}
	return nil
}

func (c Config) poolConfigs() []PoolConfig {
	pools := []PoolConfig{
		{Name: PermanentPool, Size: c.PermanentSize, MaxSize: c.MaxPermanentSize},
		{Name: TransientPool, Size: c.TransientSize, MaxSize: c.MaxTransientSize, Volatile: true},
	}
	if c.AddCustomPool {
		name := c.CustomName
		if name == "" {
			name = CustomPool
		}
		pools = append(pools, PoolConfig{Name: name, Size: c.CustomSize, Fixed: c.CustomFixed})
	}
	return pools
}

// MemoryArena owns the named pools of a process: a permanent pool that is
// never reset, a volatile transient pool recycled between units of work and
// optional custom pools. Construct one, pass it to whatever needs memory,
// and call Teardown when done.
type MemoryArena struct {
	cfg      Config
	src      BlockSource
	log      *zap.Logger
	pools    []*Pool
	byName   map[string]*Pool
	custom   *Pool
	active   bool
	torndown bool
}

// NewMemoryArena creates and initialises an arena.
func NewMemoryArena(cfg Config) (*MemoryArena, error) {
	m := &MemoryArena{}
	if err := m.Init(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Init reserves the permanent and transient pools, plus the custom pool
// when cfg.AddCustomPool is set. If any Block cannot be created, the pools
// already created are torn down and the error is returned.
func (m *MemoryArena) Init(cfg Config) error {
	if m.active || m.torndown {
		violation("arena initialised twice")
	}
	if err := cfg.validate(); err != nil {
		return errors.Wrap(err, "init memory arena")
	}
	m.cfg = cfg
	m.src = cfg.Source
	if m.src == nil {
		m.src = NewHeapSource(0)
	}
	m.log = cfg.Logger
	if m.log == nil {
		m.log = Logger()
	}
	m.byName = make(map[string]*Pool)

	for _, pc := range cfg.poolConfigs() {
		p, err := m.addPool(pc)
		if err != nil {
			m.rollback()
			m.log.Warn("memory arena init failed", zap.Error(err))
			return errors.Wrap(err, "init memory arena")
		}
		if cfg.AddCustomPool && pc.Name != PermanentPool && pc.Name != TransientPool {
			m.custom = p
		}
	}
	m.active = true
	m.log.Debug("memory arena initialised",
		zap.Int("permanent", cfg.PermanentSize),
		zap.Int("transient", cfg.TransientSize),
		zap.Int("custom", cfg.CustomSize),
		zap.Bool("add_custom", cfg.AddCustomPool))
	return nil
}

func (m *MemoryArena) addPool(pc PoolConfig) (*Pool, error) {
	if _, dup := m.byName[pc.Name]; dup {
		return nil, errors.Newf("pool %q already exists", pc.Name)
	}
	p, err := newPool(pc, m.src, m.log)
	if err != nil {
		return nil, err
	}
	m.pools = append(m.pools, p)
	m.byName[pc.Name] = p
	return p, nil
}

func (m *MemoryArena) rollback() {
	for _, p := range m.pools {
		if err := p.teardown(); err != nil {
			m.log.Warn("rollback teardown failed", zap.String("pool", p.Name()), zap.Error(err))
		}
	}
	m.pools = nil
	m.byName = nil
	m.custom = nil
}

// AddPool creates an additional named pool on an initialised arena.
func (m *MemoryArena) AddPool(pc PoolConfig) (*Allocator, error) {
	m.mustBeActive()
	p, err := m.addPool(pc)
	if err != nil {
		return nil, errors.Wrap(err, "add pool")
	}
	return p.Allocator(), nil
}

// Teardown releases every pool. Allocators obtained from the arena panic
// on further use. Calling Teardown again is a no-op.
func (m *MemoryArena) Teardown() error {
	if !m.active {
		return nil
	}
	var errs error
	for _, p := range m.pools {
		errs = errors.CombineErrors(errs, p.teardown())
	}
	m.active = false
	m.torndown = true
	m.log.Debug("memory arena torn down", zap.Int("pools", len(m.pools)))
	return errs
}

func (m *MemoryArena) mustBeActive() {
	if !m.active {
		violation("memory arena used before Init or after Teardown")
	}
}

// Permanent returns the allocator of the pool that lives for the whole run.
func (m *MemoryArena) Permanent() *Allocator {
	m.mustBeActive()
	return m.byName[PermanentPool].Allocator()
}

// Transient returns the allocator of the volatile per-unit-of-work pool.
func (m *MemoryArena) Transient() *Allocator {
	m.mustBeActive()
	return m.byName[TransientPool].Allocator()
}

// Custom returns the custom pool's allocator, or nil when the arena was
// initialised without one.
func (m *MemoryArena) Custom() *Allocator {
	m.mustBeActive()
	if m.custom == nil {
		return nil
	}
	return m.custom.Allocator()
}

// Pool returns the allocator of the named pool.
func (m *MemoryArena) Pool(name string) (*Allocator, bool) {
	m.mustBeActive()
	p, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return p.Allocator(), true
}

// Pools returns the pools in creation order.
func (m *MemoryArena) Pools() []*Pool {
	out := make([]*Pool, len(m.pools))
	copy(out, m.pools)
	return out
}

// Active reports whether the arena is initialised and not torn down.
func (m *MemoryArena) Active() bool { return m.active }
