// Package tree provides an ordered container engine backed by an arena of
// red-black tree nodes. Trees have value semantics: Clone is cheap and the
// nodes are copied on the first mutation of a shared tree. Handles returned
// by a Tree stay safe to use after any mutation; stale handles are rejected
// with an error instead of being dereferenced.
//
// A Tree is not safe for concurrent use.
package tree

import (
	"cmp"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
	"github.com/spacemeshos/go-arenatree/seal"
	"github.com/spacemeshos/go-arenatree/tied"
)

var (
	// ErrForeignHandle is returned for handles that don't belong to the tree
	// or to a tree it was cloned from before the handle was made.
	ErrForeignHandle = fmt.Errorf("handle from another tree: %w", seal.ErrNotAllowed)
	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("range ends before it starts")
	// ErrNotSorted is returned by FromSorted for unsorted input.
	ErrNotSorted = errors.New("input is not sorted")
)

// Pair is the payload of map-like trees.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Tree is an ordered collection of payloads of type P with keys of type K.
type Tree[K, P any] struct {
	buf    *tied.Buffer[P]
	keyOf  func(*P) K
	cmp    func(a, b K) int
	cfg    Config
	logger *zap.Logger
}

// New creates an empty tree. keyOf extracts the key from a payload and cmp
// orders keys.
func New[K, P any](keyOf func(*P) K, cmp func(a, b K) int, opts ...Opt) *Tree[K, P] {
	s := newSettings(opts)
	chain := arena.NewChain[P](s.cfg.InitialCapacity,
		arena.WithMinBucketCapacity(s.cfg.MinBucketCapacity),
		arena.WithLogger(s.logger))
	return newTree(tied.New(chain), keyOf, cmp, s)
}

// NewOrdered creates an empty tree of ordered keys without separate payload.
func NewOrdered[K cmp.Ordered](opts ...Opt) *Tree[K, K] {
	return New(identity[K], cmp.Compare[K], opts...)
}

// NewMap creates an empty tree of key/value pairs with ordered keys.
func NewMap[K cmp.Ordered, V any](opts ...Opt) *Tree[K, Pair[K, V]] {
	return New(pairKey[K, V], cmp.Compare[K], opts...)
}

func identity[K any](k *K) K { return *k }

func pairKey[K, V any](p *Pair[K, V]) K { return p.Key }

// newTree takes over one ownership of buf. The finalizer only drops that
// ownership: the nodes live on while handles refer to them.
//
// Methods that keep walking the chain after their last use of t end with
// runtime.KeepAlive(t), otherwise the finalizer may drop the ownership, and
// the buffer its chain, in the middle of the walk.
func newTree[K, P any](buf *tied.Buffer[P], keyOf func(*P) K, cmp func(a, b K) int, s settings) *Tree[K, P] {
	t := &Tree[K, P]{
		buf:    buf,
		keyOf:  keyOf,
		cmp:    cmp,
		cfg:    s.cfg,
		logger: s.logger,
	}
	runtime.SetFinalizer(t, (*Tree[K, P]).release)
	return t
}

func (t *Tree[K, P]) release() {
	if t.buf != nil {
		t.buf.Release()
		t.buf = nil
	}
}

// Release gives up the tree's ownership of its nodes, so that a clone
// sharing them can mutate them in place. Handles taken from the tree stay
// valid; the nodes are deallocated once neither a tree nor a handle refers
// to them. The tree must not be used afterwards.
func (t *Tree[K, P]) Release() {
	runtime.SetFinalizer(t, nil)
	t.release()
}

// Clone returns a tree sharing the nodes with t until either is mutated.
func (t *Tree[K, P]) Clone() *Tree[K, P] {
	return newTree(t.chkBuf().Retain(), t.keyOf, t.cmp, settings{cfg: t.cfg, logger: t.logger})
}

// IsTriviallyIdentical reports whether t and other share their nodes, which
// is the case between a Clone and the first mutation of either tree.
func (t *Tree[K, P]) IsTriviallyIdentical(other *Tree[K, P]) bool {
	return t.chkBuf() == other.chkBuf()
}

// IsMulti reports whether the tree allows equal keys.
func (t *Tree[K, P]) IsMulti() bool { return t.cfg.Multi }

func (t *Tree[K, P]) chkBuf() *tied.Buffer[P] {
	if t.buf == nil {
		panic("BUG: use of a released tree")
	}
	return t.buf
}

func (t *Tree[K, P]) chain() *arena.Chain[P] {
	return t.chkBuf().Chain()
}

// mutable makes the buffer unique and returns its chain. Positions purified
// before the call remain valid afterwards since clones keep slot indices.
func (t *Tree[K, P]) mutable() *arena.Chain[P] {
	t.buf = t.chkBuf().EnsureUnique(0)
	t.buf.Touch()
	return t.buf.Chain()
}

func (t *Tree[K, P]) probe(c *arena.Chain[P], k K) rbtree.Probe {
	return func(p arena.Pos) int {
		return t.cmp(k, t.keyOf(c.Payload(p)))
	}
}

// Len returns the number of elements.
func (t *Tree[K, P]) Len() int {
	n := t.chain().Count()
	runtime.KeepAlive(t)
	return n
}

// Capacity returns the number of elements the tree can hold without
// allocating another bucket.
func (t *Tree[K, P]) Capacity() int {
	c := t.chain()
	defer runtime.KeepAlive(t)
	return c.Count() + c.Available()
}

// Begin returns the handle of the first element, End for an empty tree.
func (t *Tree[K, P]) Begin() Handle[P] {
	return t.handle(t.chain().Begin())
}

// End returns the handle of the position past the last element.
func (t *Tree[K, P]) End() Handle[P] {
	return t.handle(arena.EndPos)
}

// Find returns the handle of the first element with key k.
func (t *Tree[K, P]) Find(k K) (Handle[P], bool) {
	c := t.chain()
	p := rbtree.Find(c, c.Root(), t.probe(c, k))
	return t.handle(p), p != arena.EndPos
}

// Get returns the first element with key k.
func (t *Tree[K, P]) Get(k K) (P, bool) {
	c := t.chain()
	defer runtime.KeepAlive(t)
	p := rbtree.Find(c, c.Root(), t.probe(c, k))
	if p == arena.EndPos {
		var zero P
		return zero, false
	}
	return *c.Payload(p), true
}

// Contains reports whether there's an element with key k.
func (t *Tree[K, P]) Contains(k K) bool {
	_, ok := t.Find(k)
	return ok
}

// Count returns the number of elements with key k.
func (t *Tree[K, P]) Count(k K) int {
	c := t.chain()
	defer runtime.KeepAlive(t)
	lo, hi := rbtree.EqualRange(c, c.Root(), t.probe(c, k), !t.cfg.Multi)
	n := 0
	for p := lo; p != hi; p = rbtree.Next(c, p) {
		n++
	}
	return n
}

// LowerBound returns the handle of the first element not less than k.
func (t *Tree[K, P]) LowerBound(k K) Handle[P] {
	c := t.chain()
	return t.handle(rbtree.LowerBound(c, c.Root(), t.probe(c, k)))
}

// UpperBound returns the handle of the first element greater than k.
func (t *Tree[K, P]) UpperBound(k K) Handle[P] {
	c := t.chain()
	return t.handle(rbtree.UpperBound(c, c.Root(), t.probe(c, k)))
}

// EqualRange returns the half-open range of elements with key k.
func (t *Tree[K, P]) EqualRange(k K) (lo, hi Handle[P]) {
	c := t.chain()
	l, h := rbtree.EqualRange(c, c.Root(), t.probe(c, k), !t.cfg.Multi)
	return t.handle(l), t.handle(h)
}

// Min returns the first element.
func (t *Tree[K, P]) Min() (P, bool) {
	c := t.chain()
	defer runtime.KeepAlive(t)
	if c.Count() == 0 {
		var zero P
		return zero, false
	}
	return *c.Payload(c.Begin()), true
}

// Max returns the last element.
func (t *Tree[K, P]) Max() (P, bool) {
	c := t.chain()
	defer runtime.KeepAlive(t)
	if c.Count() == 0 {
		var zero P
		return zero, false
	}
	return *c.Payload(rbtree.Max(c, c.Root())), true
}
