package tree

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
	"github.com/spacemeshos/go-arenatree/seal"
	"github.com/spacemeshos/go-arenatree/tied"
)

// Insert adds v to the tree. In a unique tree an element with an equal key
// is left in place, and its handle is returned with false. In a multi tree
// v goes after the elements with an equal key.
func (t *Tree[K, P]) Insert(v P) (Handle[P], bool) {
	c := t.chain()
	k := t.keyOf(&v)
	var (
		parent arena.Pos
		d      rbtree.Dir
	)
	if t.cfg.Multi {
		parent, d = rbtree.FindLeafHigh(c, c.Root(), t.probe(c, k))
	} else {
		var found arena.Pos
		parent, d, found = rbtree.FindEqual(c, c.Root(), t.probe(c, k))
		if found != arena.NullPos {
			return t.handle(found), false
		}
	}
	c = t.mutable()
	return t.handle(t.link(c, parent, d, v)), true
}

// Upsert inserts v or replaces the element with an equal key in a unique
// tree. It reports whether v was inserted.
func (t *Tree[K, P]) Upsert(v P) (Handle[P], bool) {
	if t.cfg.Multi {
		return t.Insert(v)
	}
	c := t.chain()
	parent, d, found := rbtree.FindEqual(c, c.Root(), t.probe(c, t.keyOf(&v)))
	c = t.mutable()
	if found != arena.NullPos {
		*c.Payload(found) = v
		return t.handle(found), false
	}
	return t.handle(t.link(c, parent, d, v)), true
}

func (t *Tree[K, P]) link(c *arena.Chain[P], parent arena.Pos, d rbtree.Dir, v P) arena.Pos {
	x := c.Alloc(v)
	c.SetBegin(rbtree.InsertAt(c, c.Begin(), parent, d, x))
	c.AddCount(1)
	return x
}

// Update calls fn with a pointer to the element h refers to. fn must not
// change the key of the element.
func (t *Tree[K, P]) Update(h Handle[P], fn func(*P)) error {
	_, p, err := t.purify(h)
	if err != nil {
		return err
	}
	if p == arena.EndPos {
		return seal.ErrUpperOutOfBounds
	}
	c := t.mutable()
	v := c.Payload(p)
	k := t.keyOf(v)
	fn(v)
	if t.cmp(k, t.keyOf(v)) != 0 {
		panic("BUG: Update changed the key of an element")
	}
	return nil
}

// Erase removes the element h refers to and returns the handle of the
// element that followed it.
func (t *Tree[K, P]) Erase(h Handle[P]) (Handle[P], error) {
	_, p, err := t.purify(h)
	if err != nil {
		return Handle[P]{}, err
	}
	if p == arena.EndPos {
		return Handle[P]{}, seal.ErrUpperOutOfBounds
	}
	c := t.mutable()
	return t.handle(t.unlink(c, p)), nil
}

func (t *Tree[K, P]) unlink(c *arena.Chain[P], p arena.Pos) arena.Pos {
	next, begin := rbtree.Erase(c, c.Begin(), p)
	c.SetBegin(begin)
	c.Free(p)
	c.AddCount(-1)
	return next
}

// EraseRange removes the elements in [from, to) and returns the handle of
// to.
func (t *Tree[K, P]) EraseRange(from, to Handle[P]) (Handle[P], error) {
	c, pf, err := t.purify(from)
	if err != nil {
		return Handle[P]{}, err
	}
	_, pt, err := t.purify(to)
	if err != nil {
		return Handle[P]{}, err
	}
	if rbtree.ComparePositions(c, pf, pt) > 0 {
		return Handle[P]{}, ErrInvalidRange
	}
	if pf == pt {
		return t.handle(pt), nil
	}
	if pf == c.Begin() && pt == arena.EndPos {
		t.Clear()
		return t.End(), nil
	}
	c = t.mutable()
	n := 0
	for p := pf; p != pt; n++ {
		p = t.unlink(c, p)
	}
	t.logger.Debug("range erased", zap.Int("count", n), zap.Int("left", c.Count()))
	return t.handle(pt), nil
}

// EraseKey removes all the elements with key k and returns their number.
func (t *Tree[K, P]) EraseKey(k K) int {
	c := t.chain()
	lo, hi := rbtree.EqualRange(c, c.Root(), t.probe(c, k), !t.cfg.Multi)
	if lo == hi {
		return 0
	}
	c = t.mutable()
	defer runtime.KeepAlive(t)
	n := 0
	for p := lo; p != hi; n++ {
		p = t.unlink(c, p)
	}
	return n
}

// Clear removes all the elements. A tree that doesn't share its nodes keeps
// its capacity, and handles into it fail with seal.ErrGarbaged. A tree
// sharing its nodes starts over with a new head bucket of the configured
// initial capacity.
func (t *Tree[K, P]) Clear() {
	buf := t.chkBuf()
	if !buf.IsUnique() {
		chain := arena.NewChain[P](t.cfg.InitialCapacity,
			arena.WithMinBucketCapacity(t.cfg.MinBucketCapacity),
			arena.WithLogger(t.logger))
		t.buf = tied.New(chain)
		buf.Release()
		return
	}
	c := t.mutable()
	defer runtime.KeepAlive(t)
	ps := make([]arena.Pos, 0, c.Count())
	for p := c.Begin(); p != arena.EndPos; p = rbtree.Next(c, p) {
		ps = append(ps, p)
	}
	c.Node(arena.EndPos).Left = arena.NullPos
	c.SetBegin(arena.EndPos)
	for _, p := range ps {
		n := c.Node(p)
		n.Left, n.Right, n.Parent = arena.NullPos, arena.NullPos, arena.NullPos
		c.Free(p)
	}
	c.AddCount(-len(ps))
}

// Reserve makes room for at least n elements without growing the bucket
// chain. A tree sharing its nodes gets its own copy.
func (t *Tree[K, P]) Reserve(n int) {
	c := t.chain()
	if n <= c.Count()+c.Available() && t.buf.IsUnique() {
		return
	}
	t.buf = t.buf.Reserve(n - c.Count() - c.Available() + c.Capacity())
	t.logger.Debug("capacity reserved",
		zap.Int("requested", n),
		zap.Int("capacity", t.buf.Chain().Capacity()))
}
