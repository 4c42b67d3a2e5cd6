// Package dynarray provides a growable array whose storage comes from a
// memarena Allocator.
package dynarray

import (
	"github.com/cockroachdb/errors"

	"github.com/pavanmanishd/memarena"
)

// Array is a growable sequence of T stored in an arena pool. Growth goes
// through memarena.Reallocate with capacity n + capacity*2, so the old
// storage is abandoned in the pool until it is reset. T must be pointer-free.
type Array[T any] struct {
	count    int
	capacity int
	data     memarena.Ref
	alloc    *memarena.Allocator
}

// New returns an empty Array with room for capacity elements.
func New[T any](a *memarena.Allocator, capacity int) (*Array[T], error) {
	d := &Array[T]{alloc: a}
	if capacity > 0 {
		if err := d.grow(capacity); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Array[T]) grow(capacity int) error {
	r, err := memarena.Reallocate[T](d.alloc, d.data, capacity)
	if err != nil {
		return errors.Wrapf(err, "grow dynamic array to %d elements", capacity)
	}
	d.data = r
	d.capacity = capacity
	return nil
}

// Len returns the number of elements.
func (d *Array[T]) Len() int { return d.count }

// Cap returns the number of elements the current storage holds.
func (d *Array[T]) Cap() int { return d.capacity }

// Ref returns the handle of the current storage.
func (d *Array[T]) Ref() memarena.Ref { return d.data }

// Items returns a view of the elements. The view is invalidated by the next
// allocation from the same pool.
func (d *Array[T]) Items() ([]T, error) {
	if d.count == 0 {
		return nil, nil
	}
	s, err := memarena.Slice[T](d.alloc, d.data)
	if err != nil {
		return nil, err
	}
	return s[:d.count], nil
}

func (d *Array[T]) storage() ([]T, error) {
	s, err := memarena.Slice[T](d.alloc, d.data)
	if err != nil {
		return nil, err
	}
	return s[:d.capacity], nil
}

// At returns the element at index i.
func (d *Array[T]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= d.count {
		return zero, errors.Newf("index %d out of range [0, %d)", i, d.count)
	}
	s, err := d.storage()
	if err != nil {
		return zero, err
	}
	return s[i], nil
}

// Add appends one element.
func (d *Array[T]) Add(v T) error {
	if d.count >= d.capacity {
		if err := d.grow(1 + d.capacity*2); err != nil {
			return err
		}
	}
	s, err := d.storage()
	if err != nil {
		return err
	}
	s[d.count] = v
	d.count++
	return nil
}

// Append appends vs.
func (d *Array[T]) Append(vs []T) error {
	return d.Insert(d.count, vs)
}

// Insert inserts vs before index. vs must not be a view into the
// allocator's pool, since a grow would invalidate it mid-copy.
func (d *Array[T]) Insert(index int, vs []T) error {
	if err := d.InsertGap(index, len(vs)); err != nil {
		return err
	}
	s, err := d.storage()
	if err != nil {
		return err
	}
	copy(s[index:], vs)
	return nil
}

// InsertGap opens n uninitialised slots before index.
func (d *Array[T]) InsertGap(index, n int) error {
	if index < 0 || index > d.count {
		return errors.Newf("insert index %d out of range [0, %d]", index, d.count)
	}
	if n < 0 {
		return errors.Newf("negative insert count %d", n)
	}
	if d.count+n >= d.capacity {
		if err := d.grow(n + d.capacity*2); err != nil {
			return err
		}
	}
	s, err := d.storage()
	if err != nil {
		return err
	}
	copy(s[index+n:], s[index:d.count])
	d.count += n
	return nil
}

// Paste overwrites elements starting at index with vs, extending the array
// when vs runs past the end.
func (d *Array[T]) Paste(index int, vs []T) error {
	if index < 0 || index > d.count {
		return errors.Newf("paste index %d out of range [0, %d]", index, d.count)
	}
	end := index + len(vs)
	if end > d.capacity {
		if err := d.grow(len(vs) + d.capacity*2); err != nil {
			return err
		}
	}
	s, err := d.storage()
	if err != nil {
		return err
	}
	copy(s[index:], vs)
	if end > d.count {
		d.count = end
	}
	return nil
}

// Remove deletes n elements starting at index.
func (d *Array[T]) Remove(index, n int) error {
	if index < 0 || n < 0 || index+n > d.count {
		return errors.Newf("remove [%d, %d) out of range [0, %d)", index, index+n, d.count)
	}
	if n == 0 {
		return nil
	}
	s, err := d.storage()
	if err != nil {
		return err
	}
	copy(s[index:], s[index+n:d.count])
	d.count -= n
	return nil
}

// Reset empties the array. With a volatile allocator the storage is
// dropped too, since the pool's Reset will invalidate it.
func (d *Array[T]) Reset() {
	d.count = 0
	if d.alloc.Volatile() {
		d.capacity = 0
		d.data = memarena.Ref{}
	}
}

// Free releases the storage back to the allocator.
func (d *Array[T]) Free() {
	d.alloc.Free(d.data)
	d.count = 0
	d.capacity = 0
	d.data = memarena.Ref{}
}
