package rbtree

import (
	"math/bits"

	"github.com/spacemeshos/go-arenatree/arena"
)

// Build links the unlinked nodes, given in order, into a balanced tree that
// replaces the current (empty) one. The nodes on the deepest level are red
// unless the tree has a single node; all others are black. It returns the
// new begin position.
func Build(l Links, nodes []arena.Pos) arena.Pos {
	end := l.Node(arena.EndPos)
	if end.Left != arena.NullPos {
		panic("BUG: building into a non-empty tree")
	}
	if len(nodes) == 0 {
		return arena.EndPos
	}
	maxDepth := bits.Len(uint(len(nodes))) - 1
	root := buildRange(l, nodes, arena.EndPos, 0, maxDepth)
	end.Left = root
	return nodes[0]
}

func buildRange(l Links, nodes []arena.Pos, parent arena.Pos, depth, maxDepth int) arena.Pos {
	if len(nodes) == 0 {
		return arena.NullPos
	}
	mid := len(nodes) / 2
	x := nodes[mid]
	xn := l.Node(x)
	xn.Parent = parent
	xn.Black = depth != maxDepth || maxDepth == 0
	xn.Left = buildRange(l, nodes[:mid], x, depth+1, maxDepth)
	xn.Right = buildRange(l, nodes[mid+1:], x, depth+1, maxDepth)
	return x
}
