package seal

import (
	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
)

// Next returns the seal of the position after s.
func Next(n Nodes, s Seal) (Seal, error) {
	p, err := Purify(n, s)
	if err != nil {
		return Null, err
	}
	if p == arena.EndPos {
		return Null, ErrUpperOutOfBounds
	}
	return Make(n, rbtree.Next(n, p)), nil
}

// Prev returns the seal of the position before s.
func Prev(n Nodes, s Seal) (Seal, error) {
	p, err := Purify(n, s)
	if err != nil {
		return Null, err
	}
	if p == n.Begin() {
		return Null, ErrNullOutOfBounds
	}
	return Make(n, rbtree.Prev(n, p)), nil
}

// Advance moves s by k positions, backwards when k is negative.
func Advance(n Nodes, s Seal, k int) (Seal, error) {
	p, err := Purify(n, s)
	if err != nil {
		return Null, err
	}
	p, err = advance(n, p, k, arena.NullPos)
	if err != nil {
		return Null, err
	}
	return Make(n, p), nil
}

// AdvanceLimited moves s by k positions unless limit lies strictly between
// s and the target, in which case ErrLimitExceeded is returned. A limit in
// the opposite direction has no effect.
func AdvanceLimited(n Nodes, s Seal, k int, limit Seal) (Seal, error) {
	p, err := Purify(n, s)
	if err != nil {
		return Null, err
	}
	lp, err := Purify(n, limit)
	if err != nil {
		return Null, err
	}
	p, err = advance(n, p, k, lp)
	if err != nil {
		return Null, err
	}
	return Make(n, p), nil
}

func advance(n Nodes, p arena.Pos, k int, limit arena.Pos) (arena.Pos, error) {
	begin := n.Begin()
	for ; k > 0; k-- {
		switch p {
		case limit:
			return arena.NullPos, ErrLimitExceeded
		case arena.EndPos:
			return arena.NullPos, ErrUpperOutOfBounds
		}
		p = rbtree.Next(n, p)
	}
	for ; k < 0; k++ {
		switch p {
		case limit:
			return arena.NullPos, ErrLimitExceeded
		case begin:
			return arena.NullPos, ErrNullOutOfBounds
		}
		p = rbtree.Prev(n, p)
	}
	return p, nil
}

// Compare orders two seals by position.
func Compare(n Nodes, a, b Seal) (int, error) {
	pa, err := Purify(n, a)
	if err != nil {
		return 0, err
	}
	pb, err := Purify(n, b)
	if err != nil {
		return 0, err
	}
	return rbtree.ComparePositions(n, pa, pb), nil
}

// Distance returns the number of steps from a to b, negative if b comes
// before a.
func Distance(n Nodes, a, b Seal) (int, error) {
	pa, err := Purify(n, a)
	if err != nil {
		return 0, err
	}
	pb, err := Purify(n, b)
	if err != nil {
		return 0, err
	}
	if rbtree.ComparePositions(n, pa, pb) > 0 {
		return -distance(n, pb, pa), nil
	}
	return distance(n, pa, pb), nil
}

func distance(n Nodes, from, to arena.Pos) int {
	d := 0
	for p := from; p != to; d++ {
		if p == arena.EndPos {
			panic("BUG: walked past the end while measuring distance")
		}
		p = rbtree.Next(n, p)
	}
	return d
}

// AdvanceUnchecked moves p by k positions without validating anything.
// It panics when walking off the tree.
func AdvanceUnchecked(l rbtree.Links, p arena.Pos, k int) arena.Pos {
	for ; k > 0; k-- {
		p = rbtree.Next(l, p)
	}
	for ; k < 0; k++ {
		p = rbtree.Prev(l, p)
	}
	return p
}
