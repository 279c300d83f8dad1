// Package arena stores red-black tree nodes in chains of buckets addressed by
// slot index instead of by pointer.
package arena

import "strconv"

// Pos is a position in a bucket chain. It is either NullPos, EndPos or the
// logical index of a slot.
type Pos uint32

const (
	// NullPos is the absent child or parent. It has no storage.
	NullPos = ^Pos(0)
	// EndPos is the header node stored in the head bucket. Its left child is
	// the root and it is the one-past-the-last iteration position.
	EndPos = ^Pos(0) - 1
	// MaxSlots is the number of slot indices a chain can address.
	MaxSlots = int(EndPos)
)

// Slot returns the position of the slot with logical index i.
func Slot(i int) Pos {
	if i < 0 || i >= MaxSlots {
		panic("BUG: slot index out of range: " + strconv.Itoa(i))
	}
	return Pos(i)
}

// IsNull reports whether p is NullPos.
func (p Pos) IsNull() bool { return p == NullPos }

// IsEnd reports whether p is EndPos.
func (p Pos) IsEnd() bool { return p == EndPos }

// IsSlot reports whether p addresses a slot.
func (p Pos) IsSlot() bool { return p < EndPos }

// Index returns the logical slot index of p.
func (p Pos) Index() int {
	if !p.IsSlot() {
		panic("BUG: index of a non-slot position " + p.String())
	}
	return int(p)
}

// Tag returns the tracking tag of p.
func (p Pos) Tag() Tag {
	switch p {
	case NullPos:
		return NullTag
	case EndPos:
		return EndTag
	default:
		return Tag(p)
	}
}

func (p Pos) String() string {
	switch p {
	case NullPos:
		return "null"
	case EndPos:
		return "end"
	default:
		return strconv.FormatUint(uint64(p), 10)
	}
}

// Tag is a stable identity of a node. It does not depend on how the slots
// are split between buckets and it survives copy-on-write clones.
type Tag int64

const (
	NullTag Tag = -1
	EndTag  Tag = -2
)

// Pos converts the tag back into a position. It panics on tags that don't
// denote a position.
func (t Tag) Pos() Pos {
	switch {
	case t == NullTag:
		return NullPos
	case t == EndTag:
		return EndPos
	case t >= 0 && t < Tag(MaxSlots):
		return Pos(t)
	default:
		panic("BUG: bad tracking tag " + strconv.FormatInt(int64(t), 10))
	}
}

// Generation counts how many times a slot was handed out again after being
// recycled.
type Generation uint32

// Node is the header stored in front of every payload.
type Node struct {
	Left, Right, Parent Pos
	Gen                 Generation
	Black               bool
	// Live is set while the slot holds a payload that is part of the tree.
	Live bool
}

// reset clears the links and colors the node red.
func (n *Node) reset() {
	n.Left = NullPos
	n.Right = NullPos
	n.Parent = NullPos
	n.Black = false
}
