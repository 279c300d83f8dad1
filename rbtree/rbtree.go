// Package rbtree implements red-black tree algorithms over nodes stored in an
// arena. All functions work on raw positions and panic when their
// preconditions are violated; checking handles is up to the callers.
//
// The end node acts as the tree header: its left child is the root and the
// root's parent is the end node, so the root counts as a left child.
// NullPos children are black leaves and are never written to.
package rbtree

import (
	"github.com/spacemeshos/go-arenatree/arena"
)

// Links gives access to node headers.
type Links interface {
	Node(p arena.Pos) *arena.Node
}

// Dir is a child direction.
type Dir uint8

const (
	Left Dir = iota
	Right
)

func (d Dir) flip() Dir { return d ^ 1 }

func (d Dir) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

func child(n *arena.Node, d Dir) arena.Pos {
	if d == Left {
		return n.Left
	}
	return n.Right
}

func setChild(n *arena.Node, d Dir, p arena.Pos) {
	if d == Left {
		n.Left = p
	} else {
		n.Right = p
	}
}

// IsLeftChild reports whether x is the left child of its parent.
// The root is the left child of the end node.
func IsLeftChild(l Links, x arena.Pos) bool {
	return l.Node(l.Node(x).Parent).Left == x
}

// IsBlack reports the color of x, null leaves being black.
func IsBlack(l Links, x arena.Pos) bool {
	return x == arena.NullPos || l.Node(x).Black
}

// RotateLeft makes the right child of x the parent of x.
func RotateLeft(l Links, x arena.Pos) {
	rotate(l, x, Left)
}

// RotateRight makes the left child of x the parent of x.
func RotateRight(l Links, x arena.Pos) {
	rotate(l, x, Right)
}

// rotate moves x down in direction d, lifting its child on the other side.
func rotate(l Links, x arena.Pos, d Dir) {
	xn := l.Node(x)
	y := child(xn, d.flip())
	if y == arena.NullPos {
		panic("BUG: rotating " + d.String() + " about a node without a " + d.flip().String() + " child")
	}
	yn := l.Node(y)
	inner := child(yn, d)
	setChild(xn, d.flip(), inner)
	if inner != arena.NullPos {
		l.Node(inner).Parent = x
	}
	yn.Parent = xn.Parent
	if IsLeftChild(l, x) {
		l.Node(xn.Parent).Left = y
	} else {
		l.Node(xn.Parent).Right = y
	}
	setChild(yn, d, x)
	xn.Parent = y
}

// BalanceAfterInsert restores the red-black properties after the red leaf x
// was linked into the tree rooted at root.
func BalanceAfterInsert(l Links, root, x arena.Pos) {
	l.Node(x).Black = x == root
	for x != root && !l.Node(l.Node(x).Parent).Black {
		parent := l.Node(x).Parent
		grand := l.Node(parent).Parent
		// d is the side of the grandparent the parent hangs on
		d := Right
		if IsLeftChild(l, parent) {
			d = Left
		}
		uncle := child(l.Node(grand), d.flip())
		if !IsBlack(l, uncle) {
			l.Node(parent).Black = true
			l.Node(grand).Black = grand == root
			l.Node(uncle).Black = true
			x = grand
			continue
		}
		if IsLeftChild(l, x) != (d == Left) {
			x = parent
			rotate(l, x, d)
			parent = l.Node(x).Parent
		}
		l.Node(parent).Black = true
		l.Node(grand).Black = false
		rotate(l, grand, d.flip())
		break
	}
}

// Remove unlinks z from the tree rooted at root and rebalances it. It returns
// the new root. The slot of z is left for the caller to recycle.
func Remove(l Links, root, z arena.Pos) arena.Pos {
	zn := l.Node(z)
	// y is the node that is physically spliced out, x its only child
	y := z
	if zn.Left != arena.NullPos && zn.Right != arena.NullPos {
		y = Min(l, zn.Right)
	}
	yn := l.Node(y)
	x := yn.Left
	if x == arena.NullPos {
		x = yn.Right
	}
	// w is the sibling of x after the splice
	w := arena.NullPos
	if x != arena.NullPos {
		l.Node(x).Parent = yn.Parent
	}
	if IsLeftChild(l, y) {
		l.Node(yn.Parent).Left = x
		if y != root {
			w = l.Node(yn.Parent).Right
		} else {
			root = x
		}
	} else {
		l.Node(yn.Parent).Right = x
		w = l.Node(yn.Parent).Left
	}
	removedBlack := yn.Black
	if y != z {
		// y takes the place of z in the tree
		yn.Parent = zn.Parent
		if IsLeftChild(l, z) {
			l.Node(yn.Parent).Left = y
		} else {
			l.Node(yn.Parent).Right = y
		}
		yn.Left = zn.Left
		l.Node(yn.Left).Parent = y
		yn.Right = zn.Right
		if yn.Right != arena.NullPos {
			l.Node(yn.Right).Parent = y
		}
		yn.Black = zn.Black
		if root == z {
			root = y
		}
	}
	zn.Left, zn.Right, zn.Parent = arena.NullPos, arena.NullPos, arena.NullPos
	if !removedBlack || root == arena.NullPos {
		return root
	}
	if x != arena.NullPos {
		l.Node(x).Black = true
		return root
	}
	// x is a null leaf carrying an extra black; w can't be null here
	for {
		wn := l.Node(w)
		// d is the side of the parent the deficient subtree hangs on
		d := Left
		if IsLeftChild(l, w) {
			d = Right
		}
		if !wn.Black {
			wn.Black = true
			l.Node(wn.Parent).Black = false
			rotate(l, wn.Parent, d)
			// root may have changed
			if root == child(wn, d) {
				root = w
			}
			// sibling is now the inner child of the old sibling
			w = child(l.Node(child(wn, d)), d.flip())
			wn = l.Node(w)
		}
		if IsBlack(l, wn.Left) && IsBlack(l, wn.Right) {
			wn.Black = false
			x = wn.Parent
			xn := l.Node(x)
			if x == root || !xn.Black {
				xn.Black = true
				return root
			}
			if IsLeftChild(l, x) {
				w = l.Node(xn.Parent).Right
			} else {
				w = l.Node(xn.Parent).Left
			}
			continue
		}
		if IsBlack(l, child(wn, d.flip())) {
			// the outer child is black, the inner one is red
			l.Node(child(wn, d)).Black = true
			wn.Black = false
			rotate(l, w, d.flip())
			w = wn.Parent
			wn = l.Node(w)
		}
		pn := l.Node(wn.Parent)
		wn.Black = pn.Black
		pn.Black = true
		l.Node(child(wn, d.flip())).Black = true
		rotate(l, wn.Parent, d)
		return root
	}
}
