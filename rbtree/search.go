package rbtree

import "github.com/spacemeshos/go-arenatree/arena"

// Probe compares the searched key against the key stored at a node, returning
// a negative number when the searched key is smaller, zero when they're equal
// and a positive number otherwise.
type Probe func(p arena.Pos) int

// FindEqual descends from root looking for a node equal to the probed key.
// If one is found it is returned as found, otherwise found is NullPos and
// parent and d tell where a new node must be linked. The end node is the
// parent of an empty tree.
func FindEqual(l Links, root arena.Pos, probe Probe) (parent arena.Pos, d Dir, found arena.Pos) {
	parent, d = arena.EndPos, Left
	for x := root; x != arena.NullPos; {
		switch c := probe(x); {
		case c < 0:
			parent, d = x, Left
			x = l.Node(x).Left
		case c > 0:
			parent, d = x, Right
			x = l.Node(x).Right
		default:
			return parent, d, x
		}
	}
	return parent, d, arena.NullPos
}

// FindLeafHigh returns the attachment point that places a new node after all
// the nodes equal to the probed key.
func FindLeafHigh(l Links, root arena.Pos, probe Probe) (arena.Pos, Dir) {
	parent, d := arena.EndPos, Left
	for x := root; x != arena.NullPos; {
		parent = x
		if probe(x) < 0 {
			d = Left
			x = l.Node(x).Left
		} else {
			d = Right
			x = l.Node(x).Right
		}
	}
	return parent, d
}

// FindLeafLow returns the attachment point that places a new node before all
// the nodes equal to the probed key.
func FindLeafLow(l Links, root arena.Pos, probe Probe) (arena.Pos, Dir) {
	parent, d := arena.EndPos, Left
	for x := root; x != arena.NullPos; {
		parent = x
		if probe(x) <= 0 {
			d = Left
			x = l.Node(x).Left
		} else {
			d = Right
			x = l.Node(x).Right
		}
	}
	return parent, d
}

// InsertAt links the unlinked node x as child d of parent and rebalances the
// tree. It returns the new cached begin position.
func InsertAt(l Links, begin, parent arena.Pos, d Dir, x arena.Pos) arena.Pos {
	pn := l.Node(parent)
	if child(pn, d) != arena.NullPos {
		panic("BUG: attachment point is occupied")
	}
	if parent == arena.EndPos && d != Left {
		panic("BUG: the root must be the left child of end")
	}
	xn := l.Node(x)
	xn.Left = arena.NullPos
	xn.Right = arena.NullPos
	xn.Parent = parent
	setChild(pn, d, x)
	if bn := l.Node(begin); bn.Left != arena.NullPos {
		begin = bn.Left
	}
	BalanceAfterInsert(l, l.Node(arena.EndPos).Left, x)
	return begin
}

// Erase removes z from the tree and returns its successor along with the new
// cached begin position.
func Erase(l Links, begin, z arena.Pos) (next, newBegin arena.Pos) {
	if z == arena.EndPos || z == arena.NullPos {
		panic("BUG: erasing " + z.String())
	}
	next = Next(l, z)
	if begin == z {
		begin = next
	}
	Remove(l, l.Node(arena.EndPos).Left, z)
	return next, begin
}

// Find returns the first node equal to the probed key or the end node.
func Find(l Links, root arena.Pos, probe Probe) arena.Pos {
	p := LowerBound(l, root, probe)
	if p != arena.EndPos && probe(p) == 0 {
		return p
	}
	return arena.EndPos
}

// LowerBound returns the first node not less than the probed key.
func LowerBound(l Links, root arena.Pos, probe Probe) arena.Pos {
	return lowerBound(l, root, arena.EndPos, probe)
}

func lowerBound(l Links, x, result arena.Pos, probe Probe) arena.Pos {
	for x != arena.NullPos {
		if probe(x) <= 0 {
			result = x
			x = l.Node(x).Left
		} else {
			x = l.Node(x).Right
		}
	}
	return result
}

// UpperBound returns the first node greater than the probed key.
func UpperBound(l Links, root arena.Pos, probe Probe) arena.Pos {
	return upperBound(l, root, arena.EndPos, probe)
}

func upperBound(l Links, x, result arena.Pos, probe Probe) arena.Pos {
	for x != arena.NullPos {
		if probe(x) < 0 {
			result = x
			x = l.Node(x).Left
		} else {
			x = l.Node(x).Right
		}
	}
	return result
}

// EqualRange returns the half-open range of nodes equal to the probed key.
// With unique set, at most one node is expected to match.
func EqualRange(l Links, root arena.Pos, probe Probe, unique bool) (lo, hi arena.Pos) {
	result := arena.EndPos
	for x := root; x != arena.NullPos; {
		xn := l.Node(x)
		switch c := probe(x); {
		case c < 0:
			result = x
			x = xn.Left
		case c > 0:
			x = xn.Right
		case unique:
			if xn.Right != arena.NullPos {
				return x, Min(l, xn.Right)
			}
			return x, result
		default:
			return lowerBound(l, xn.Left, x, probe), upperBound(l, xn.Right, result, probe)
		}
	}
	return result, result
}
