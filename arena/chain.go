package arena

import (
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultMinBucketCapacity is the smallest secondary bucket a chain grows by.
const DefaultMinBucketCapacity = 16

type slot[P any] struct {
	node    Node
	payload P
}

// bucket is a contiguous run of slots. Slots [0, used) have been handed out
// at least once, the rest are fresh.
type bucket[P any] struct {
	base  int
	slots []slot[P]
	used  int
	next  *bucket[P]
}

func newBucket[P any](base, capacity int) *bucket[P] {
	return &bucket[P]{base: base, slots: make([]slot[P], capacity)}
}

// ChainOption modifies a Chain.
type ChainOption func(*chainConfig)

type chainConfig struct {
	minBucketCapacity int
	logger            *zap.Logger
}

// WithMinBucketCapacity sets the minimum capacity of the buckets added when
// the chain runs out of slots.
func WithMinBucketCapacity(n int) ChainOption {
	return func(c *chainConfig) {
		if n <= 0 {
			panic("BUG: non-positive min bucket capacity")
		}
		c.minBucketCapacity = n
	}
}

// WithLogger specifies the logger for the Chain.
func WithLogger(logger *zap.Logger) ChainOption {
	return func(c *chainConfig) {
		c.logger = logger
	}
}

// Chain is a singly linked list of buckets holding the nodes of one tree.
// The head bucket also keeps the tree header: the end node, the cached begin
// position and the element count.
// Every bucket except the last one is fully used, so slot i has been handed
// out iff i < Used().
type Chain[P any] struct {
	cfg      chainConfig
	head     *bucket[P]
	tail     *bucket[P]
	buckets  int
	capacity int
	used     int
	hd       headExtra
	fresh    freshPool[P]
	recycle  recyclePool[P]
	// released is set by Deallocate, which may run on the finalizer goroutine.
	released atomic.Bool
}

// NewChain allocates a chain with a head bucket of the given capacity.
// Zero capacity is allowed for the head bucket.
func NewChain[P any](capacity int, opts ...ChainOption) *Chain[P] {
	if capacity < 0 || capacity > MaxSlots {
		panic("BUG: bad head bucket capacity " + strconv.Itoa(capacity))
	}
	c := &Chain[P]{
		cfg: chainConfig{
			minBucketCapacity: DefaultMinBucketCapacity,
			logger:            zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	c.head = newBucket[P](0, capacity)
	c.tail = c.head
	c.buckets = 1
	c.capacity = capacity
	c.hd.end.reset()
	c.hd.end.Black = true
	c.hd.begin = EndPos
	c.fresh.cur = c.head
	c.recycle.head = NullPos
	headBuckets.Inc()
	return c
}

// Logger returns the logger the chain was created with.
func (c *Chain[P]) Logger() *zap.Logger { return c.cfg.logger }

// Layout returns the slot layout of the chain.
func (c *Chain[P]) Layout() Layout { return LayoutOf[P]() }

// Capacity returns the total number of slots in all buckets.
func (c *Chain[P]) Capacity() int { return c.capacity }

// Used returns the number of slots that were handed out at least once.
func (c *Chain[P]) Used() int { return c.used }

// Buckets returns the number of buckets in the chain.
func (c *Chain[P]) Buckets() int { return c.buckets }

// Recycled returns the number of slots waiting in the recycle pool.
func (c *Chain[P]) Recycled() int { return c.recycle.n }

// Available returns the number of slots that can be allocated without
// growing the chain.
func (c *Chain[P]) Available() int { return c.capacity - c.used + c.recycle.n }

// Bytes returns the memory taken by the buckets according to the layout.
func (c *Chain[P]) Bytes() uintptr {
	l := c.Layout()
	var n uintptr
	for b := c.head; b != nil; b = b.next {
		n += l.BucketBytes(len(b.slots), b == c.head)
	}
	return n
}

// Released reports whether the chain was deallocated.
func (c *Chain[P]) Released() bool { return c.released.Load() }

// Root returns the root of the tree.
func (c *Chain[P]) Root() Pos { return c.hd.end.Left }

// Begin returns the cached leftmost position, EndPos if the tree is empty.
func (c *Chain[P]) Begin() Pos { return c.hd.begin }

// SetBegin updates the cached leftmost position.
func (c *Chain[P]) SetBegin(p Pos) { c.hd.begin = p }

// Count returns the number of elements in the tree.
func (c *Chain[P]) Count() int { return c.hd.count }

// AddCount adjusts the element count.
func (c *Chain[P]) AddCount(delta int) {
	c.hd.count += delta
	if c.hd.count < 0 {
		panic("BUG: negative element count")
	}
}

func (c *Chain[P]) slot(p Pos) *slot[P] {
	if c.released.Load() {
		panic("BUG: access to a released chain")
	}
	if !p.IsSlot() {
		panic("BUG: dereferencing " + p.String())
	}
	i := int(p)
	if c.head.next == nil {
		return &c.head.slots[i]
	}
	return c.slowSlot(i)
}

func (c *Chain[P]) slowSlot(i int) *slot[P] {
	slowLookups.Inc()
	for b := c.head; b != nil; b = b.next {
		if i < b.base+len(b.slots) {
			return &b.slots[i-b.base]
		}
	}
	panic("BUG: slot index beyond chain capacity: " + strconv.Itoa(i))
}

// Node returns the header of the node at p. p must not be NullPos.
func (c *Chain[P]) Node(p Pos) *Node {
	if p == EndPos {
		if c.released.Load() {
			panic("BUG: access to a released chain")
		}
		return &c.hd.end
	}
	return &c.slot(p).node
}

// Lookup returns the header at p if p is the end node or a slot that was
// handed out at least once.
func (c *Chain[P]) Lookup(p Pos) (*Node, bool) {
	switch {
	case c.released.Load() || p == NullPos:
		return nil, false
	case p == EndPos:
		return &c.hd.end, true
	case int(p) >= c.used:
		return nil, false
	default:
		return &c.slot(p).node, true
	}
}

// Payload returns the payload stored at slot p.
func (c *Chain[P]) Payload(p Pos) *P {
	return &c.slot(p).payload
}

// Alloc stores v in a slot and returns its position. Recycled slots are
// preferred over fresh ones; the chain grows only when neither is available.
// The new node is red and unlinked.
func (c *Chain[P]) Alloc(v P) Pos {
	if c.released.Load() {
		panic("BUG: alloc in a released chain")
	}
	p, ok := c.recycle.pop(c)
	if !ok {
		p, ok = c.fresh.pop(c)
	}
	if !ok {
		c.grow(max(c.cfg.minBucketCapacity, c.capacity))
		if p, ok = c.fresh.pop(c); !ok {
			panic("BUG: no fresh slot after growing the chain")
		}
	}
	s := c.slot(p)
	s.node.reset()
	s.payload = v
	return p
}

// Free zeroes the payload at p and moves the slot into the recycle pool.
// The node must already be unlinked from the tree.
func (c *Chain[P]) Free(p Pos) {
	c.recycle.push(c, p)
}

// grow appends a secondary bucket.
func (c *Chain[P]) grow(capacity int) {
	if capacity <= 0 {
		panic("BUG: secondary bucket must have a positive capacity")
	}
	if capacity > MaxSlots-c.capacity {
		capacity = MaxSlots - c.capacity
		if capacity == 0 {
			panic("BUG: chain is out of slot indices")
		}
	}
	b := newBucket[P](c.capacity, capacity)
	c.tail.next = b
	c.tail = b
	c.buckets++
	c.capacity += capacity
	if c.fresh.cur == nil {
		c.fresh.cur = b
	}
	secondaryBuckets.Inc()
	c.cfg.logger.Debug("bucket added",
		zap.Int("capacity", capacity),
		zap.Int("total", c.capacity),
		zap.Int("buckets", c.buckets))
}

// Clone copies the chain into a new chain with a single head bucket holding
// at least minCapacity slots. Slot indices, links, colors, generations and
// the recycle pool are preserved, so positions taken in c stay meaningful
// in the clone.
func (c *Chain[P]) Clone(minCapacity int) *Chain[P] {
	if c.released.Load() {
		panic("BUG: clone of a released chain")
	}
	n := &Chain[P]{cfg: c.cfg}
	capacity := max(c.capacity, minCapacity)
	n.head = newBucket[P](0, capacity)
	n.tail = n.head
	n.buckets = 1
	n.capacity = capacity
	i := 0
	for b := c.head; b != nil; b = b.next {
		if b.next != nil && b.used != len(b.slots) {
			panic("BUG: partially used bucket in the middle of a chain")
		}
		i += copy(n.head.slots[i:], b.slots[:b.used])
	}
	if i != c.used {
		panic("BUG: used slot count mismatch")
	}
	n.head.used = i
	n.used = i
	n.hd = c.hd
	n.recycle = c.recycle
	n.fresh.cur = n.head
	if n.head.next != nil || n.buckets != 1 {
		panic("BUG: cloned chain must consist of a single bucket")
	}
	headBuckets.Inc()
	liveSlots.Add(float64(n.used - n.recycle.n))
	cloneSize.Observe(float64(i))
	c.cfg.logger.Debug("chain cloned",
		zap.Int("slots", i),
		zap.Int("from_buckets", c.buckets),
		zap.Int("capacity", capacity))
	return n
}

// Deallocate zeroes every live payload and drops the buckets. It is
// idempotent. Any later access except Lookup and Released panics.
func (c *Chain[P]) Deallocate() {
	if c.released.Load() {
		return
	}
	var zero P
	for b := c.head; b != nil; {
		for i := range b.slots[:b.used] {
			if b.slots[i].node.Live {
				b.slots[i].payload = zero
			}
		}
		next := b.next
		b.slots = nil
		b.next = nil
		b = next
	}
	liveSlots.Sub(float64(c.used - c.recycle.n))
	c.head = nil
	c.tail = nil
	c.fresh.cur = nil
	c.hd = headExtra{}
	c.recycle = recyclePool[P]{head: NullPos}
	c.released.Store(true)
}
