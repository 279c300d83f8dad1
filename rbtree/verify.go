package rbtree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spacemeshos/go-arenatree/arena"
)

// Verify checks the red-black properties, the parent links, the cached begin
// position and the element count of the tree.
func Verify(l Links, begin arena.Pos, count int) error {
	end := l.Node(arena.EndPos)
	root := end.Left
	if end.Right != arena.NullPos || end.Parent != arena.NullPos {
		return errors.New("end node has unexpected links")
	}
	if root == arena.NullPos {
		if begin != arena.EndPos {
			return fmt.Errorf("empty tree with begin %v", begin)
		}
		if count != 0 {
			return fmt.Errorf("empty tree with count %d", count)
		}
		return nil
	}
	if !l.Node(root).Black {
		return errors.New("root is red")
	}
	if p := l.Node(root).Parent; p != arena.EndPos {
		return fmt.Errorf("root parent is %v", p)
	}
	if m := Min(l, root); m != begin {
		return fmt.Errorf("begin is %v, leftmost node is %v", begin, m)
	}
	n, _, err := verifyNode(l, root)
	if err != nil {
		return err
	}
	if n != count {
		return fmt.Errorf("tree holds %d nodes, count is %d", n, count)
	}
	return nil
}

// verifyNode returns the size and the black height of the subtree at x.
func verifyNode(l Links, x arena.Pos) (size, blackHeight int, err error) {
	if x == arena.NullPos {
		return 0, 1, nil
	}
	xn := l.Node(x)
	if !xn.Live {
		return 0, 0, fmt.Errorf("node %v is not live", x)
	}
	for _, c := range [...]arena.Pos{xn.Left, xn.Right} {
		if c == arena.NullPos {
			continue
		}
		cn := l.Node(c)
		if cn.Parent != x {
			return 0, 0, fmt.Errorf("node %v has parent %v, expected %v", c, cn.Parent, x)
		}
		if !xn.Black && !cn.Black {
			return 0, 0, fmt.Errorf("red node %v has red child %v", x, c)
		}
	}
	ls, lh, err := verifyNode(l, xn.Left)
	if err != nil {
		return 0, 0, err
	}
	rs, rh, err := verifyNode(l, xn.Right)
	if err != nil {
		return 0, 0, err
	}
	if lh != rh {
		return 0, 0, fmt.Errorf("node %v: black height %d on the left, %d on the right", x, lh, rh)
	}
	if xn.Black {
		lh++
	}
	return ls + rs + 1, lh, nil
}

// Dump writes the tree sideways, right subtree first, one node per line.
func Dump(w io.Writer, l Links, format func(arena.Pos) string) {
	root := l.Node(arena.EndPos).Left
	if root == arena.NullPos {
		fmt.Fprintln(w, "<empty>")
		return
	}
	dumpNode(w, l, root, 0, format)
}

func dumpNode(w io.Writer, l Links, x arena.Pos, indent int, format func(arena.Pos) string) {
	if x == arena.NullPos {
		return
	}
	xn := l.Node(x)
	dumpNode(w, l, xn.Right, indent+1, format)
	color := "R"
	if xn.Black {
		color = "B"
	}
	fmt.Fprintf(w, "%s%s %v: %s\n", strings.Repeat("  ", indent), color, x, format(x))
	dumpNode(w, l, xn.Left, indent+1, format)
}
