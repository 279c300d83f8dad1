package arena

// freshPool hands out never-used slots, walking the chain bucket by bucket.
type freshPool[P any] struct {
	cur *bucket[P]
}

// pop returns the next fresh slot or false when the chain is exhausted.
func (f *freshPool[P]) pop(c *Chain[P]) (Pos, bool) {
	for f.cur != nil {
		b := f.cur
		if b.used < len(b.slots) {
			i := b.used
			b.used++
			c.used++
			s := &b.slots[i]
			s.node.Live = true
			freshSlots.Inc()
			liveSlots.Inc()
			return Slot(b.base + i), true
		}
		f.cur = b.next
	}
	return NullPos, false
}

// recyclePool is a LIFO list of freed slots linked through Node.Left.
type recyclePool[P any] struct {
	head Pos
	n    int
}

// push zeroes the payload at p and prepends the slot to the list.
func (r *recyclePool[P]) push(c *Chain[P], p Pos) {
	s := c.slot(p)
	if !s.node.Live {
		panic("BUG: recycling a slot that is not live: " + p.String())
	}
	var zero P
	s.payload = zero
	s.node.Live = false
	s.node.Black = false
	s.node.Right = NullPos
	s.node.Parent = NullPos
	s.node.Left = r.head
	r.head = p
	r.n++
	recycledSlots.Inc()
	liveSlots.Dec()
}

// pop takes the most recently freed slot, marks it live and bumps its
// generation.
func (r *recyclePool[P]) pop(c *Chain[P]) (Pos, bool) {
	if r.head == NullPos {
		return NullPos, false
	}
	p := r.head
	s := c.slot(p)
	if s.node.Live {
		panic("BUG: live slot on the recycle list: " + p.String())
	}
	r.head = s.node.Left
	r.n--
	s.node.Left = NullPos
	s.node.Live = true
	s.node.Gen++
	reusedSlots.Inc()
	liveSlots.Inc()
	return p, true
}
