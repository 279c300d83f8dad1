package rbtree

import (
	"bytes"
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-arenatree/arena"
)

type entry struct {
	key int
	seq int
}

type testTree struct {
	t     *testing.T
	c     *arena.Chain[entry]
	multi bool
	seq   int
}

func newTestTree(t *testing.T, multi bool) *testTree {
	return &testTree{t: t, c: arena.NewChain[entry](0), multi: multi}
}

func (tt *testTree) probe(k int) Probe {
	return func(p arena.Pos) int {
		return cmp.Compare(k, tt.c.Payload(p).key)
	}
}

func (tt *testTree) insert(k int) (arena.Pos, bool) {
	root := tt.c.Root()
	var (
		parent arena.Pos
		d      Dir
	)
	if tt.multi {
		parent, d = FindLeafHigh(tt.c, root, tt.probe(k))
	} else {
		var found arena.Pos
		parent, d, found = FindEqual(tt.c, root, tt.probe(k))
		if found != arena.NullPos {
			return found, false
		}
	}
	tt.seq++
	x := tt.c.Alloc(entry{key: k, seq: tt.seq})
	tt.c.SetBegin(InsertAt(tt.c, tt.c.Begin(), parent, d, x))
	tt.c.AddCount(1)
	return x, true
}

func (tt *testTree) erase(p arena.Pos) arena.Pos {
	next, begin := Erase(tt.c, tt.c.Begin(), p)
	tt.c.SetBegin(begin)
	tt.c.Free(p)
	tt.c.AddCount(-1)
	return next
}

func (tt *testTree) verify() {
	require.NoError(tt.t, Verify(tt.c, tt.c.Begin(), tt.c.Count()))
}

func (tt *testTree) entries() []entry {
	var r []entry
	for p := tt.c.Begin(); p != arena.EndPos; p = Next(tt.c, p) {
		r = append(r, *tt.c.Payload(p))
	}
	return r
}

func (tt *testTree) keys() []int {
	var r []int
	for _, e := range tt.entries() {
		r = append(r, e.key)
	}
	return r
}

func (tt *testTree) positions() []arena.Pos {
	var r []arena.Pos
	for p := tt.c.Begin(); p != arena.EndPos; p = Next(tt.c, p) {
		r = append(r, p)
	}
	return r
}

func TestRotate(t *testing.T) {
	tt := newTestTree(t, false)
	for _, k := range []int{2, 1, 3} {
		tt.insert(k)
	}
	tt.verify()
	root := tt.c.Root()
	require.Equal(t, 2, tt.c.Payload(root).key)

	RotateLeft(tt.c, root)
	newRoot := tt.c.Root()
	require.Equal(t, 3, tt.c.Payload(newRoot).key)
	require.Equal(t, arena.EndPos, tt.c.Node(newRoot).Parent)
	require.Equal(t, root, tt.c.Node(newRoot).Left)
	require.Equal(t, newRoot, tt.c.Node(root).Parent)
	require.Equal(t, []int{1, 2, 3}, tt.keys())

	RotateRight(tt.c, newRoot)
	require.Equal(t, root, tt.c.Root())
	require.Equal(t, []int{1, 2, 3}, tt.keys())

	leaf := tt.c.Node(root).Left
	require.Panics(t, func() { RotateLeft(tt.c, leaf) })
	require.Panics(t, func() { RotateRight(tt.c, leaf) })
}

func TestInsertUnique(t *testing.T) {
	tt := newTestTree(t, false)
	for _, k := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6} {
		_, ok := tt.insert(k)
		require.True(t, ok)
		tt.verify()
	}
	p, ok := tt.insert(4)
	require.False(t, ok)
	require.Equal(t, 4, tt.c.Payload(p).key)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, tt.keys())
	require.Equal(t, 1, tt.c.Payload(tt.c.Begin()).key)
}

func TestRandomInsertErase(t *testing.T) {
	for _, multi := range []bool{false, true} {
		tt := newTestTree(t, multi)
		rng := rand.New(rand.NewPCG(1, 2))
		var model []int
		for range 10000 {
			if len(model) == 0 || rng.IntN(3) != 0 {
				k := rng.IntN(2000)
				_, ok := tt.insert(k)
				i, found := slices.BinarySearch(model, k)
				require.Equal(t, multi || !found, ok)
				if ok {
					model = slices.Insert(model, i, k)
				}
			} else {
				ps := tt.positions()
				i := rng.IntN(len(ps))
				next := tt.erase(ps[i])
				if i+1 < len(ps) {
					require.Equal(t, ps[i+1], next)
				} else {
					require.Equal(t, arena.EndPos, next)
				}
				model = slices.Delete(model, i, i+1)
			}
			tt.verify()
		}
		require.Equal(t, model, tt.keys())
	}
}

func TestEraseAll(t *testing.T) {
	tt := newTestTree(t, false)
	for k := range 100 {
		tt.insert(k)
	}
	p := tt.c.Begin()
	for p != arena.EndPos {
		p = tt.erase(p)
		tt.verify()
	}
	require.Equal(t, arena.NullPos, tt.c.Root())
	require.Equal(t, arena.EndPos, tt.c.Begin())
	require.Equal(t, 100, tt.c.Recycled())
}

func TestNextPrev(t *testing.T) {
	tt := newTestTree(t, false)
	require.Panics(t, func() { Prev(tt.c, arena.EndPos) })
	for _, k := range rand.New(rand.NewPCG(3, 4)).Perm(50) {
		tt.insert(k)
	}
	ps := tt.positions()
	require.Len(t, ps, 50)
	p := arena.EndPos
	for i := len(ps) - 1; i >= 0; i-- {
		p = Prev(tt.c, p)
		require.Equal(t, ps[i], p)
	}
	require.Panics(t, func() { Prev(tt.c, ps[0]) })
	require.Panics(t, func() { Next(tt.c, arena.EndPos) })
	require.Equal(t, ps[0], Min(tt.c, tt.c.Root()))
	require.Equal(t, ps[49], Max(tt.c, tt.c.Root()))
}

func TestBounds(t *testing.T) {
	tt := newTestTree(t, false)
	for _, k := range []int{10, 20, 30, 40} {
		tt.insert(k)
	}
	key := func(p arena.Pos) int {
		if p == arena.EndPos {
			return -1
		}
		return tt.c.Payload(p).key
	}
	root := tt.c.Root()
	for _, tc := range []struct {
		k, lower, upper int
		found           bool
	}{
		{k: 5, lower: 10, upper: 10},
		{k: 10, lower: 10, upper: 20, found: true},
		{k: 25, lower: 30, upper: 30},
		{k: 40, lower: 40, upper: -1, found: true},
		{k: 45, lower: -1, upper: -1},
	} {
		require.Equal(t, tc.lower, key(LowerBound(tt.c, root, tt.probe(tc.k))), "lower %d", tc.k)
		require.Equal(t, tc.upper, key(UpperBound(tt.c, root, tt.probe(tc.k))), "upper %d", tc.k)
		lo, hi := EqualRange(tt.c, root, tt.probe(tc.k), true)
		require.Equal(t, tc.lower, key(lo))
		require.Equal(t, tc.upper, key(hi))
		f := Find(tt.c, root, tt.probe(tc.k))
		if tc.found {
			require.Equal(t, tc.k, key(f))
		} else {
			require.Equal(t, arena.EndPos, f)
		}
	}
}

func TestMultiOrder(t *testing.T) {
	tt := newTestTree(t, true)
	for _, k := range []int{3, 1, 2, 1, 3} {
		tt.insert(k)
	}
	tt.verify()
	require.Equal(t, []entry{{1, 2}, {1, 4}, {2, 3}, {3, 1}, {3, 5}}, tt.entries())

	lo, hi := EqualRange(tt.c, tt.c.Root(), tt.probe(1), false)
	require.Equal(t, entry{1, 2}, *tt.c.Payload(lo))
	require.Equal(t, entry{1, 4}, *tt.c.Payload(Next(tt.c, lo)))
	require.Equal(t, hi, Next(tt.c, Next(tt.c, lo)))
	require.Equal(t, 2, tt.c.Payload(hi).key)

	// equal keys keep their relative order while other keys come and go
	for k := range 200 {
		tt.insert(k % 7)
	}
	for _, p := range tt.positions() {
		if e := tt.c.Payload(p); e.key == 2 || e.key == 5 {
			tt.erase(p)
		}
	}
	tt.verify()
	var seqs []int
	for _, e := range tt.entries() {
		if e.key == 1 {
			seqs = append(seqs, e.seq)
		}
	}
	require.True(t, slices.IsSorted(seqs))
	require.Equal(t, []int{2, 4}, seqs[:2])

	parent, d := FindLeafLow(tt.c, tt.c.Root(), tt.probe(0))
	x := tt.c.Alloc(entry{key: 0, seq: -1})
	tt.c.SetBegin(InsertAt(tt.c, tt.c.Begin(), parent, d, x))
	tt.c.AddCount(1)
	tt.verify()
	require.Equal(t, entry{0, -1}, *tt.c.Payload(tt.c.Begin()))
}

func TestComparePositions(t *testing.T) {
	tt := newTestTree(t, true)
	rng := rand.New(rand.NewPCG(5, 6))
	for range 300 {
		tt.insert(rng.IntN(10))
	}
	ps := append(tt.positions(), arena.EndPos)
	for i, a := range ps {
		for j, b := range ps {
			require.Equal(t, cmp.Compare(i, j), ComparePositions(tt.c, a, b), "%d %d", i, j)
		}
	}
	require.Panics(t, func() { ComparePositions(tt.c, arena.NullPos, ps[0]) })
}

func TestPath(t *testing.T) {
	tt := newTestTree(t, false)
	for k := range 7 {
		tt.insert(k)
	}
	root := tt.c.Root()
	p, ok := PathOf(tt.c, root)
	require.True(t, ok)
	require.Zero(t, p.Depth())
	require.Equal(t, "<>", p.String())

	p, ok = PathOf(tt.c, tt.c.Begin())
	require.True(t, ok)
	require.Equal(t, 1, p.Depth())
	require.Equal(t, Left, p.Dir(0))
	require.Equal(t, "<0>", p.String())
	require.Panics(t, func() { p.Dir(1) })

	last, ok := PathOf(tt.c, Max(tt.c, root))
	require.True(t, ok)
	require.Equal(t, "<111>", last.String())
	require.Less(t, p, last)
}

func TestDeepPathFallback(t *testing.T) {
	// a degenerate chain is not a valid red-black tree but has deep paths
	c := arena.NewChain[int](0)
	const n = 100
	ps := make([]arena.Pos, n)
	for i := range n {
		ps[i] = c.Alloc(i)
	}
	c.Node(arena.EndPos).Left = ps[0]
	c.Node(ps[0]).Parent = arena.EndPos
	for i := 1; i < n; i++ {
		// zig-zag: right on even depth, left on odd depth
		if i%2 == 1 {
			c.Node(ps[i-1]).Right = ps[i]
		} else {
			c.Node(ps[i-1]).Left = ps[i]
		}
		c.Node(ps[i]).Parent = ps[i-1]
	}
	_, ok := PathOf(c, ps[n-1])
	require.False(t, ok)
	_, ok = PathOf(c, ps[MaxPathDepth])
	require.True(t, ok)

	var order []arena.Pos
	for p := Min(c, ps[0]); p != arena.EndPos; p = Next(c, p) {
		order = append(order, p)
	}
	require.Len(t, order, n)
	for i, a := range order {
		for j, b := range order {
			require.Equal(t, cmp.Compare(i, j), ComparePositions(c, a, b), "%v %v", a, b)
		}
	}
}

func TestBuild(t *testing.T) {
	for n := range 130 {
		c := arena.NewChain[int](n)
		ps := make([]arena.Pos, n)
		for i := range n {
			ps[i] = c.Alloc(i)
		}
		begin := Build(c, ps)
		c.SetBegin(begin)
		c.AddCount(n)
		require.NoError(t, Verify(c, begin, n), "n=%d", n)
		i := 0
		for p := begin; p != arena.EndPos; p = Next(c, p) {
			require.Equal(t, i, *c.Payload(p))
			i++
		}
		require.Equal(t, n, i)
		if n > 0 {
			require.Panics(t, func() { Build(c, ps) })
		}
	}
}

func TestVerifyDetectsViolations(t *testing.T) {
	tt := newTestTree(t, false)
	for k := range 10 {
		tt.insert(k)
	}
	tt.verify()
	root := tt.c.Root()

	tt.c.Node(root).Black = false
	require.ErrorContains(t, Verify(tt.c, tt.c.Begin(), 10), "root is red")
	tt.c.Node(root).Black = true

	require.ErrorContains(t, Verify(tt.c, tt.c.Begin(), 11), "count")
	require.ErrorContains(t, Verify(tt.c, root, 10), "begin")

	leaf := tt.c.Begin()
	tt.c.Node(leaf).Black = !tt.c.Node(leaf).Black
	require.ErrorContains(t, Verify(tt.c, leaf, 10), "black height")
}

func TestDump(t *testing.T) {
	tt := newTestTree(t, false)
	var buf bytes.Buffer
	Dump(&buf, tt.c, nil)
	require.Equal(t, "<empty>\n", buf.String())
	for _, k := range []int{2, 1, 3} {
		tt.insert(k)
	}
	buf.Reset()
	Dump(&buf, tt.c, func(p arena.Pos) string { return "k" + string(rune('0'+tt.c.Payload(p).key)) })
	require.Equal(t, "  R 2: k3\nB 0: k2\n  R 1: k1\n", buf.String())
}
