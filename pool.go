package memarena

import (
	"math/bits"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// PoolState is the lifecycle state of a Pool.
type PoolState int

const (
	PoolUninitialized PoolState = iota
	PoolActive
	PoolTornDown
)

func (s PoolState) String() string {
	switch s {
	case PoolUninitialized:
		return "uninitialized"
	case PoolActive:
		return "active"
	case PoolTornDown:
		return "torn down"
	default:
		return "unknown"
	}
}

// PoolConfig describes one named pool.
type PoolConfig struct {
	Name string

	// Size is the capacity of the first Block in bytes.
	Size int

	// MaxSize caps the Block capacity a grow may reach. 0 means unbounded.
	MaxSize int

	// Fixed pools never grow; a full Block fails with ErrOutOfMemory.
	Fixed bool

	// Volatile pools drop their Block on Reset and re-acquire it on the
	// next allocation.
	Volatile bool
}

func (c PoolConfig) validate() error {
	if c.Name == "" {
		return errors.New("pool name is empty")
	}
	if c.Size < 0 {
		return errors.Newf("pool %q: negative size %d", c.Name, c.Size)
	}
	if c.MaxSize < 0 {
		return errors.Newf("pool %q: negative max size %d", c.Name, c.MaxSize)
	}
	if c.MaxSize > 0 && c.MaxSize < c.Size {
		return errors.Newf("pool %q: max size %d is below initial size %d", c.Name, c.MaxSize, c.Size)
	}
	return nil
}

// Pool owns the active Block of one named region and services allocation
// requests against it, growing the Block when a request does not fit.
// A Pool is not safe for concurrent use; see SafeAllocator.
type Pool struct {
	id    uint32
	cfg   PoolConfig
	state PoolState
	block *Block
	src   BlockSource
	gen   uint32
	links *attachments
	log   *zap.Logger
	alloc Allocator
	stats poolStats
}

type poolStats struct {
	allocs   uint64
	failures uint64
	grows    uint64
	resets   uint64
	frees    uint64
	peak     int
}

// poolIDs numbers pools process-wide. A Ref is only accepted by the pool
// that minted it, whichever arena that pool belongs to.
var poolIDs atomic.Uint32

func newPool(cfg PoolConfig, src BlockSource, log *zap.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		id:    poolIDs.Add(1),
		cfg:   cfg,
		src:   src,
		gen:   1,
		links: newAttachments(),
		log:   log.With(zap.String("pool", cfg.Name)),
	}
	b, err := newBlock(src, cfg.Size, cfg.Volatile)
	if err != nil {
		return nil, errors.Wrapf(err, "create pool %q", cfg.Name)
	}
	p.block = b
	p.alloc = Allocator{pool: p}
	if cfg.Volatile {
		p.alloc.flags |= FlagVolatileMemory
	}
	p.state = PoolActive
	p.log.Debug("pool created",
		zap.Int("capacity", cfg.Size),
		zap.Bool("fixed", cfg.Fixed),
		zap.Bool("volatile", cfg.Volatile))
	return p, nil
}

// Name returns the pool's name.
func (p *Pool) Name() string { return p.cfg.Name }

// State returns the lifecycle state.
func (p *Pool) State() PoolState { return p.state }

// Config returns the configuration the pool was created with.
func (p *Pool) Config() PoolConfig { return p.cfg }

// Allocator returns the pool's allocation handle. The pointer is stable for
// the life of the pool.
func (p *Pool) Allocator() *Allocator { return &p.alloc }

// Generation returns the current generation; Reset advances it.
func (p *Pool) Generation() uint32 { return p.gen }

func (p *Pool) mustBeActive() {
	if p.state != PoolActive {
		violation("pool %q used while %s", p.cfg.Name, p.state)
	}
}

func (p *Pool) mustOwn(r Ref) {
	if r.pool != p.id {
		violation("ref from pool %d used with pool %q (%d)", r.pool, p.cfg.Name, p.id)
	}
}

// allocate reserves size bytes aligned to align.
func (p *Pool) allocate(size, align int, zeroed bool) (Ref, error) {
	p.mustBeActive()
	if size < 0 {
		violation("negative allocation size %d", size)
	}
	if align <= 0 || align > MaxAlign || align&(align-1) != 0 {
		violation("alignment %d is not a power of two in [1, %d]", align, MaxAlign)
	}
	if size == 0 {
		return Ref{pool: p.id, off: -1, gen: p.gen}, nil
	}

	if p.block == nil {
		if err := p.reacquire(size); err != nil {
			return Ref{}, p.fail(size, err)
		}
	}

	off, ok := p.block.bump(size, align)
	if !ok {
		if p.cfg.Fixed {
			return Ref{}, p.fail(size, errors.Wrapf(ErrOutOfMemory,
				"fixed pool %q full (%d of %d bytes used)", p.cfg.Name, p.block.cursor, p.block.Capacity()))
		}
		if err := p.grow(size, align); err != nil {
			return Ref{}, p.fail(size, err)
		}
		if off, ok = p.block.bump(size, align); !ok {
			return Ref{}, p.fail(size, errors.Wrapf(ErrOutOfMemory,
				"pool %q: %d bytes do not fit after grow to %d", p.cfg.Name, size, p.block.Capacity()))
		}
	}

	if zeroed {
		clear(p.block.buf[off : off+size])
	}
	p.stats.allocs++
	if p.block.cursor > p.stats.peak {
		p.stats.peak = p.block.cursor
	}
	return Ref{pool: p.id, off: off, size: size, gen: p.gen}, nil
}

// allocateArray reserves count elements of elemSize bytes, rejecting
// products that overflow.
func (p *Pool) allocateArray(count, elemSize, align int, zeroed bool) (Ref, error) {
	p.mustBeActive()
	if count < 0 {
		violation("negative element count %d", count)
	}
	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > maxBlockSize {
		p.stats.failures++
		return Ref{}, errors.Wrapf(ErrAllocationTooLarge,
			"pool %q: %d elements of %d bytes", p.cfg.Name, count, elemSize)
	}
	return p.allocate(int(lo), align, zeroed)
}

// grow replaces the active Block with one of requested + capacity*2 bytes
// and migrates the used prefix. requested is size plus the padding needed to
// align the cursor. On failure the old Block is left untouched.
func (p *Pool) grow(size, align int) error {
	old := p.block
	capacity := old.Capacity()
	requested := alignUp(old.cursor, align) - old.cursor + size
	if requested > maxBlockSize || capacity > (maxBlockSize-requested)/2 {
		return errors.Wrapf(ErrOutOfMemory, "pool %q: grow past %d bytes", p.cfg.Name, maxBlockSize)
	}
	newCapacity := requested + capacity*2
	if p.cfg.MaxSize > 0 && newCapacity > p.cfg.MaxSize {
		if capacity >= p.cfg.MaxSize {
			return errors.Wrapf(ErrOutOfMemory,
				"pool %q already at max size %d", p.cfg.Name, p.cfg.MaxSize)
		}
		newCapacity = p.cfg.MaxSize
	}

	nb, err := newBlock(p.src, newCapacity, p.cfg.Volatile)
	if err != nil {
		return errors.Wrapf(err, "grow pool %q to %d bytes", p.cfg.Name, newCapacity)
	}
	copy(nb.buf, old.buf[:old.cursor])
	nb.cursor = old.cursor
	if err := old.destroy(); err != nil {
		p.log.Warn("release of replaced block failed", zap.Error(err))
	}
	p.block = nb
	p.stats.grows++
	p.log.Debug("pool grown",
		zap.Int("old_capacity", capacity),
		zap.Int("new_capacity", newCapacity),
		zap.Int("cursor", nb.cursor))
	return nil
}

// reacquire creates the Block of a volatile pool after Reset dropped it.
func (p *Pool) reacquire(size int) error {
	capacity := p.cfg.Size
	if size > capacity && !p.cfg.Fixed {
		capacity = size
		if p.cfg.MaxSize > 0 && capacity > p.cfg.MaxSize {
			capacity = p.cfg.MaxSize
		}
	}
	b, err := newBlock(p.src, capacity, p.cfg.Volatile)
	if err != nil {
		return errors.Wrapf(err, "reacquire pool %q", p.cfg.Name)
	}
	p.block = b
	return nil
}

func (p *Pool) fail(size int, err error) error {
	p.stats.failures++
	p.log.Warn("allocation failed", zap.Int("size", size), zap.Error(err))
	return err
}

// resolve returns the bytes behind r in the current Block.
func (p *Pool) resolve(r Ref) ([]byte, error) {
	p.mustBeActive()
	if r.IsNil() {
		return nil, nil
	}
	p.mustOwn(r)
	if r.gen != p.gen {
		return nil, errors.Wrapf(ErrStaleRef, "pool %q: %s, current generation %d", p.cfg.Name, r, p.gen)
	}
	if r.size == 0 {
		return nil, nil
	}
	if p.block == nil || r.off < 0 || r.off+r.size > p.block.cursor {
		violation("%s lies outside pool %q", r, p.cfg.Name)
	}
	return p.block.buf[r.off : r.off+r.size : r.off+r.size], nil
}

// reallocate allocates fresh storage and copies the overlapping prefix of
// old into it. The old bytes stay allocated until the next Reset.
func (p *Pool) reallocate(old Ref, size, align int) (Ref, error) {
	if old.IsNil() {
		return p.allocate(size, align, false)
	}
	p.mustBeActive()
	p.mustOwn(old)
	if old.gen != p.gen {
		return Ref{}, errors.Wrapf(ErrStaleRef, "reallocate %s in pool %q", old, p.cfg.Name)
	}
	r, err := p.allocate(size, align, false)
	if err != nil {
		return Ref{}, err
	}
	n := min(old.size, size)
	if n > 0 {
		// Offsets survive a grow, so both regions are re-derived from the
		// current Block.
		copy(p.block.buf[r.off:r.off+n], p.block.buf[old.off:old.off+n])
	}
	return r, nil
}

func (p *Pool) free(r Ref) {
	p.mustBeActive()
	if r.IsNil() || r.off < 0 {
		return
	}
	p.mustOwn(r)
	if r.gen != p.gen {
		return
	}
	p.stats.frees += uint64(p.links.free(r.key()))
}

func (p *Pool) attach(child, parent Ref) {
	p.mustBeActive()
	if child.IsNil() || parent.IsNil() {
		violation("attach with nil ref (child %s, parent %s)", child, parent)
	}
	p.mustOwn(child)
	p.mustOwn(parent)
	if child.gen != p.gen || parent.gen != p.gen {
		violation("attach of stale ref in pool %q (child %s, parent %s)", p.cfg.Name, child, parent)
	}
	if child.off < 0 || parent.off < 0 {
		return
	}
	p.links.attach(child.key(), parent.key())
}

func (p *Pool) shrink(r Ref, size int) Ref {
	p.mustBeActive()
	if r.IsNil() {
		if size != 0 {
			violation("shrink of nil ref to %d bytes", size)
		}
		return r
	}
	p.mustOwn(r)
	if size < 0 || size > r.size {
		violation("shrink %s to %d bytes", r, size)
	}
	r.size = size
	return r
}

// reset rewinds the pool. Every Ref minted so far becomes stale.
func (p *Pool) reset() {
	p.mustBeActive()
	p.gen++
	p.links.clear()
	p.stats.resets++
	if p.cfg.Volatile {
		if p.block != nil {
			if err := p.block.destroy(); err != nil {
				p.log.Warn("release of volatile block failed", zap.Error(err))
			}
			p.block = nil
		}
	} else {
		p.block.cursor = 0
	}
	p.log.Debug("pool reset", zap.Uint32("generation", p.gen))
}

// teardown releases the Block. Later calls through the pool panic.
func (p *Pool) teardown() error {
	if p.state == PoolTornDown {
		return nil
	}
	var err error
	if p.block != nil {
		err = p.block.destroy()
		p.block = nil
	}
	p.links = nil
	p.state = PoolTornDown
	p.log.Debug("pool torn down")
	return errors.Wrapf(err, "teardown pool %q", p.cfg.Name)
}
