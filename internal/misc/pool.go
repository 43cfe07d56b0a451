package misc

import "sync"

// Resetter is implemented by scratch values that can be cleared for reuse,
// such as *bytes.Buffer.
type Resetter interface {
	Reset()
}

// Pool recycles scratch values between bulk requests. A value is reset when
// it is returned; values the keep predicate rejects are dropped instead, so a
// single oversized batch does not pin its memory for the process lifetime.
type Pool[T Resetter] struct {
	p    sync.Pool
	keep func(T) bool
}

// NewPool returns a pool that allocates with newFn. keep may be nil.
func NewPool[T Resetter](newFn func() T, keep func(T) bool) *Pool[T] {
	pl := &Pool[T]{keep: keep}
	pl.p.New = func() any {
		if newFn != nil {
			return newFn()
		}
		var zero T
		return zero
	}
	return pl
}

func (pl *Pool[T]) Get() T {
	if v, ok := pl.p.Get().(T); ok {
		return v
	}
	var zero T
	return zero
}

// Put resets v and hands it back, unless keep rejects it.
func (pl *Pool[T]) Put(v T) {
	if pl.keep != nil && !pl.keep(v) {
		return
	}
	v.Reset()
	pl.p.Put(v)
}
