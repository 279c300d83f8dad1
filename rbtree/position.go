package rbtree

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"

	"github.com/spacemeshos/go-arenatree/arena"
)

// MaxPathDepth is the deepest node whose path fits into a Path.
const MaxPathDepth = 63

// Path encodes the route from the root to a node. Bits are read from the most
// significant one: 0 goes left, 1 goes right, and the last 1 bit terminates
// the route. Comparing two paths as integers orders the nodes in-order.
type Path uint64

// Depth returns the number of edges between the root and the node.
func (p Path) Depth() int {
	return MaxPathDepth - bits.TrailingZeros64(uint64(p))
}

// Dir returns the direction taken at the given depth.
func (p Path) Dir(depth int) Dir {
	if depth >= p.Depth() {
		panic("BUG: path direction index out of range")
	}
	return Dir(p >> (MaxPathDepth - depth) & 1)
}

func (p Path) String() string {
	d := p.Depth()
	b := make([]byte, d)
	for i := range d {
		b[i] = '0' + byte(p.Dir(i))
	}
	return fmt.Sprintf("<%s>", b)
}

// PathOf returns the path of slot x. It returns false if x is deeper than
// MaxPathDepth.
func PathOf(l Links, x arena.Pos) (Path, bool) {
	var acc uint64
	depth := 0
	for {
		parent := l.Node(x).Parent
		if parent == arena.EndPos {
			break
		}
		if depth == MaxPathDepth {
			return 0, false
		}
		if !IsLeftChild(l, x) {
			acc |= 1 << depth
		}
		depth++
		x = parent
	}
	return Path((acc<<1 | 1) << (MaxPathDepth - depth)), true
}

// dirsOf returns the directions from the root to x.
func dirsOf(l Links, x arena.Pos) []Dir {
	var dirs []Dir
	for l.Node(x).Parent != arena.EndPos {
		if IsLeftChild(l, x) {
			dirs = append(dirs, Left)
		} else {
			dirs = append(dirs, Right)
		}
		x = l.Node(x).Parent
	}
	slices.Reverse(dirs)
	return dirs
}

// ComparePositions orders two positions of the same tree in-order. The end
// node comes after every slot. Nodes deeper than MaxPathDepth are compared
// by walking the routes from the root.
func ComparePositions(l Links, a, b arena.Pos) int {
	switch {
	case a == arena.NullPos || b == arena.NullPos:
		panic("BUG: comparing null positions")
	case a == b:
		return 0
	case a == arena.EndPos:
		return 1
	case b == arena.EndPos:
		return -1
	}
	pa, okA := PathOf(l, a)
	pb, okB := PathOf(l, b)
	if okA && okB {
		return cmp.Compare(pa, pb)
	}
	return compareDirs(dirsOf(l, a), dirsOf(l, b))
}

// compareDirs compares two distinct routes. When one route is a prefix of
// the other, the longer one is ordered by the next direction it takes.
func compareDirs(a, b []Dir) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return cmp.Compare(a[i], b[i])
		}
	}
	switch {
	case len(a) > n:
		if a[n] == Left {
			return -1
		}
		return 1
	case len(b) > n:
		if b[n] == Left {
			return 1
		}
		return -1
	}
	panic("BUG: distinct nodes with the same route")
}
