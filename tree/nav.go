package tree

import (
	"iter"
	"runtime"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
	"github.com/spacemeshos/go-arenatree/seal"
)

func (t *Tree[K, P]) wrap(s seal.Seal) Handle[P] {
	return Handle[P]{buf: t.buf, seal: s, epoch: t.buf.Epoch()}
}

// Next returns the handle of the position after h.
func (t *Tree[K, P]) Next(h Handle[P]) (Handle[P], error) {
	c, err := t.nodes(h)
	if err != nil {
		return Handle[P]{}, err
	}
	s, err := seal.Next(c, h.seal)
	if err != nil {
		return Handle[P]{}, err
	}
	return t.wrap(s), nil
}

// Prev returns the handle of the position before h.
func (t *Tree[K, P]) Prev(h Handle[P]) (Handle[P], error) {
	c, err := t.nodes(h)
	if err != nil {
		return Handle[P]{}, err
	}
	s, err := seal.Prev(c, h.seal)
	if err != nil {
		return Handle[P]{}, err
	}
	return t.wrap(s), nil
}

// Advance moves h by n positions, backwards when n is negative.
func (t *Tree[K, P]) Advance(h Handle[P], n int) (Handle[P], error) {
	c, err := t.nodes(h)
	if err != nil {
		return Handle[P]{}, err
	}
	s, err := seal.Advance(c, h.seal, n)
	if err != nil {
		return Handle[P]{}, err
	}
	return t.wrap(s), nil
}

// AdvanceLimited moves h by n positions, failing with seal.ErrLimitExceeded
// if limit would have to be passed on the way.
func (t *Tree[K, P]) AdvanceLimited(h Handle[P], n int, limit Handle[P]) (Handle[P], error) {
	c, err := t.nodes(h)
	if err != nil {
		return Handle[P]{}, err
	}
	if _, err := t.nodes(limit); err != nil {
		return Handle[P]{}, err
	}
	s, err := seal.AdvanceLimited(c, h.seal, n, limit.seal)
	if err != nil {
		return Handle[P]{}, err
	}
	return t.wrap(s), nil
}

// Distance returns the number of steps from a to b, negative when b comes
// first.
func (t *Tree[K, P]) Distance(a, b Handle[P]) (int, error) {
	c, err := t.nodes(a)
	if err != nil {
		return 0, err
	}
	if _, err := t.nodes(b); err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(t)
	return seal.Distance(c, a.seal, b.seal)
}

// Compare orders two handles by position. Among elements with equal keys
// the one inserted earlier comes first.
func (t *Tree[K, P]) Compare(a, b Handle[P]) (int, error) {
	c, err := t.nodes(a)
	if err != nil {
		return 0, err
	}
	if _, err := t.nodes(b); err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(t)
	return seal.Compare(c, a.seal, b.seal)
}

// NextUnchecked returns the handle after h without validating h.
// The behavior is undefined if h is stale; it panics at the end.
func (t *Tree[K, P]) NextUnchecked(h Handle[P]) Handle[P] {
	c := t.chain()
	return t.wrap(seal.Make(c, rbtree.Next(c, h.seal.Pos)))
}

// AdvanceUnchecked moves h by n positions without validating h.
// The behavior is undefined if h is stale; it panics when walking off the
// tree.
func (t *Tree[K, P]) AdvanceUnchecked(h Handle[P], n int) Handle[P] {
	c := t.chain()
	return t.wrap(seal.Make(c, seal.AdvanceUnchecked(c, h.seal.Pos, n)))
}

// ValueUnchecked returns the element h refers to without validating h.
func (t *Tree[K, P]) ValueUnchecked(h Handle[P]) P {
	v := *t.chain().Payload(h.seal.Pos)
	runtime.KeepAlive(t)
	return v
}

// All iterates over the elements in order. The tree must not be mutated
// during the iteration.
func (t *Tree[K, P]) All() iter.Seq[P] {
	return func(yield func(P) bool) {
		c := t.chain()
		defer runtime.KeepAlive(t)
		for p := c.Begin(); p != arena.EndPos; p = rbtree.Next(c, p) {
			if !yield(*c.Payload(p)) {
				return
			}
		}
	}
}

// Handles iterates over the elements in order along with their handles.
// The tree must not be mutated during the iteration.
func (t *Tree[K, P]) Handles() iter.Seq2[Handle[P], P] {
	return func(yield func(Handle[P], P) bool) {
		c := t.chain()
		defer runtime.KeepAlive(t)
		for p := c.Begin(); p != arena.EndPos; p = rbtree.Next(c, p) {
			if !yield(t.handle(p), *c.Payload(p)) {
				return
			}
		}
	}
}

// Backward iterates over the elements in reverse order.
func (t *Tree[K, P]) Backward() iter.Seq[P] {
	return func(yield func(P) bool) {
		c := t.chain()
		defer runtime.KeepAlive(t)
		if c.Count() == 0 {
			return
		}
		p := arena.EndPos
		for p != c.Begin() {
			p = rbtree.Prev(c, p)
			if !yield(*c.Payload(p)) {
				return
			}
		}
	}
}

// Range iterates over the elements with keys in [lo, hi).
func (t *Tree[K, P]) Range(lo, hi K) iter.Seq[P] {
	return func(yield func(P) bool) {
		c := t.chain()
		defer runtime.KeepAlive(t)
		from := rbtree.LowerBound(c, c.Root(), t.probe(c, lo))
		to := rbtree.LowerBound(c, c.Root(), t.probe(c, hi))
		if from == arena.EndPos || (to != arena.EndPos && rbtree.ComparePositions(c, from, to) > 0) {
			return
		}
		for p := from; p != to; p = rbtree.Next(c, p) {
			if !yield(*c.Payload(p)) {
				return
			}
		}
	}
}
