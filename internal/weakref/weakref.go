// weakref.go — Weak-reference abstraction over the runtime weak package.
// Tracking a host object through a Ref never extends its lifetime; once the
// referent is collected, Deref returns nil and callers skip the entry.
package weakref

import "weak"

// Ref is a weak reference to a value of type T. The zero value is a dead
// reference. Ref is comparable: two Refs made from the same pointer compare
// equal, which makes Ref usable as a non-retaining membership key.
type Ref[T any] struct {
	p    weak.Pointer[T]
	live bool
}

// Make returns a weak reference to v.
func Make[T any](v *T) Ref[T] {
	return Ref[T]{p: weak.Make(v), live: true}
}

// Dead returns a reference whose referent is already collected. Tests use it
// to exercise dead-entry skipping without depending on GC timing.
func Dead[T any]() Ref[T] {
	return Ref[T]{}
}

// Deref returns the referent, or nil once it has been collected.
func (r Ref[T]) Deref() *T {
	if !r.live {
		return nil
	}
	return r.p.Value()
}
