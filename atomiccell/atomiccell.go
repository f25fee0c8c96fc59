// Package atomiccell provides a lock-free mutable cell supporting
// compare-and-swap style updates.
package atomiccell

import (
	"reflect"
	"sync/atomic"
)

// Cell holds a single value of type A, updated via CAS retry loops. The
// zero Cell holds the zero value of A.
type Cell[A any] struct {
	p atomic.Pointer[A]
}

// Of constructs a Cell initialized to v.
func Of[A any](v A) *Cell[A] {
	c := &Cell[A]{}
	c.p.Store(&v)
	return c
}

// Get returns the current value.
func (c *Cell[A]) Get() A {
	p := c.p.Load()
	if p == nil {
		var zero A
		return zero
	}
	return *p
}

// Set installs v unconditionally.
func (c *Cell[A]) Set(v A) {
	c.p.Store(&v)
}

// GetAndSet installs v, returning the previous value.
func (c *Cell[A]) GetAndSet(v A) A {
	old := c.p.Swap(&v)
	if old == nil {
		var zero A
		return zero
	}
	return *old
}

// Update repeatedly applies f to the current value until the CAS
// succeeds, and returns the new value. f must be a pure function of its
// input: it may be invoked more than once under contention.
func (c *Cell[A]) Update(f func(A) A) A {
	return c.UpdateAndGet(f)
}

// GetAndUpdate is like Update but returns the value prior to the update.
func (c *Cell[A]) GetAndUpdate(f func(A) A) A {
	for {
		old := c.p.Load()
		var oldV A
		if old != nil {
			oldV = *old
		}
		newV := f(oldV)
		if c.p.CompareAndSwap(old, &newV) {
			return oldV
		}
	}
}

// UpdateAndGet is like Update but spelled out explicitly for symmetry
// with GetAndUpdate.
func (c *Cell[A]) UpdateAndGet(f func(A) A) A {
	for {
		old := c.p.Load()
		var oldV A
		if old != nil {
			oldV = *old
		}
		newV := f(oldV)
		if c.p.CompareAndSwap(old, &newV) {
			return newV
		}
	}
}

// Modify applies f to the current value, installing the first returned
// value and returning the second (an arbitrary caller-chosen result,
// e.g. a value computed from the old state). f must be pure: it may run
// more than once under contention.
func Modify[A, B any](c *Cell[A], f func(A) (A, B)) B {
	for {
		old := c.p.Load()
		var oldV A
		if old != nil {
			oldV = *old
		}
		newV, result := f(oldV)
		if c.p.CompareAndSwap(old, &newV) {
			return result
		}
	}
}

// CompareAndSwap installs new only if the current value is deeply equal
// to old (reflect.DeepEqual). A is unconstrained, so there is no cheaper
// notion of equality available here; CellOf offers a `==`-based
// alternative for comparable types.
func (c *Cell[A]) CompareAndSwap(old, new A) bool {
	for {
		cur := c.p.Load()
		var curV A
		if cur != nil {
			curV = *cur
		}
		if !reflect.DeepEqual(curV, old) {
			return false
		}
		newV := new
		if c.p.CompareAndSwap(cur, &newV) {
			return true
		}
	}
}

// CellOf is a Cell over a comparable type, offering value-based
// compare-and-swap.
type CellOf[A comparable] struct {
	Cell[A]
}

// OfComparable constructs a CellOf initialized to v.
func OfComparable[A comparable](v A) *CellOf[A] {
	c := &CellOf[A]{}
	c.Set(v)
	return c
}

// CompareAndSwap installs new only if the current value equals old.
func (c *CellOf[A]) CompareAndSwap(old, new A) bool {
	for {
		cur := c.Get()
		if cur != old {
			return false
		}
		p := c.p.Load()
		newV := new
		if c.p.CompareAndSwap(p, &newV) {
			return true
		}
	}
}
