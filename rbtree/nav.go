package rbtree

import "github.com/spacemeshos/go-arenatree/arena"

// Min returns the leftmost node of the subtree rooted at x.
func Min(l Links, x arena.Pos) arena.Pos {
	for {
		left := l.Node(x).Left
		if left == arena.NullPos {
			return x
		}
		x = left
	}
}

// Max returns the rightmost node of the subtree rooted at x.
func Max(l Links, x arena.Pos) arena.Pos {
	for {
		right := l.Node(x).Right
		if right == arena.NullPos {
			return x
		}
		x = right
	}
}

// Next returns the in-order successor of x. The successor of the last node
// is the end node.
func Next(l Links, x arena.Pos) arena.Pos {
	if x == arena.EndPos {
		panic("BUG: next of end")
	}
	if right := l.Node(x).Right; right != arena.NullPos {
		return Min(l, right)
	}
	for !IsLeftChild(l, x) {
		x = l.Node(x).Parent
	}
	return l.Node(x).Parent
}

// Prev returns the in-order predecessor of x. The predecessor of the end
// node is the last node.
func Prev(l Links, x arena.Pos) arena.Pos {
	if x == arena.EndPos {
		root := l.Node(arena.EndPos).Left
		if root == arena.NullPos {
			panic("BUG: prev of end in an empty tree")
		}
		return Max(l, root)
	}
	if left := l.Node(x).Left; left != arena.NullPos {
		return Max(l, left)
	}
	for IsLeftChild(l, x) {
		x = l.Node(x).Parent
		if x == arena.EndPos {
			panic("BUG: prev of the first node")
		}
	}
	return l.Node(x).Parent
}
