package seal

import (
	"cmp"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
)

func buildChain(t *testing.T, keys ...int) (*arena.Chain[int], []Seal) {
	c := arena.NewChain[int](len(keys))
	var seals []Seal
	for _, k := range keys {
		probe := func(p arena.Pos) int { return cmp.Compare(k, *c.Payload(p)) }
		parent, d := rbtree.FindLeafHigh(c, c.Root(), probe)
		x := c.Alloc(k)
		c.SetBegin(rbtree.InsertAt(c, c.Begin(), parent, d, x))
		c.AddCount(1)
		seals = append(seals, Make(c, x))
	}
	require.NoError(t, rbtree.Verify(c, c.Begin(), c.Count()))
	return c, seals
}

func erase(c *arena.Chain[int], p arena.Pos) {
	_, begin := rbtree.Erase(c, c.Begin(), p)
	c.SetBegin(begin)
	c.Free(p)
	c.AddCount(-1)
}

func TestPurify(t *testing.T) {
	c, seals := buildChain(t, 1, 2, 3)
	for _, s := range seals {
		p, err := Purify(c, s)
		require.NoError(t, err)
		require.Equal(t, s.Pos, p)
	}
	p, err := Purify(c, End)
	require.NoError(t, err)
	require.Equal(t, arena.EndPos, p)
	_, err = Purify(c, Null)
	require.ErrorIs(t, err, ErrNullOutOfBounds)
	_, err = Purify(c, Seal{Pos: arena.Slot(10)})
	require.ErrorIs(t, err, ErrGarbaged)

	garbaged := testutil.ToFloat64(garbagedCount)
	erase(c, seals[1].Pos)
	_, err = Purify(c, seals[1])
	require.ErrorIs(t, err, ErrGarbaged)
	require.Equal(t, garbaged+1, testutil.ToFloat64(garbagedCount))
	require.True(t, Valid(c, seals[0]))
	require.True(t, Valid(c, seals[2]))

	// the slot is reused by a newer generation
	x := c.Alloc(5)
	require.Equal(t, seals[1].Pos, x)
	_, err = Purify(c, seals[1])
	require.ErrorIs(t, err, ErrUnsealed)
	require.Equal(t, "1@0", seals[1].String())
	require.Equal(t, arena.Tag(1), seals[1].Tag())

	c.Deallocate()
	_, err = Purify(c, seals[0])
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestMakePanics(t *testing.T) {
	c, seals := buildChain(t, 1)
	erase(c, seals[0].Pos)
	require.Panics(t, func() { Make(c, seals[0].Pos) })
	require.Equal(t, Null, Make(c, arena.NullPos))
	require.Equal(t, End, Make(c, arena.EndPos))
}

func TestNextPrev(t *testing.T) {
	c, seals := buildChain(t, 10, 20, 30)
	s, err := Next(c, seals[0])
	require.NoError(t, err)
	require.Equal(t, seals[1], s)
	s, err = Next(c, seals[2])
	require.NoError(t, err)
	require.Equal(t, End, s)
	_, err = Next(c, End)
	require.ErrorIs(t, err, ErrUpperOutOfBounds)

	s, err = Prev(c, End)
	require.NoError(t, err)
	require.Equal(t, seals[2], s)
	_, err = Prev(c, seals[0])
	require.ErrorIs(t, err, ErrNullOutOfBounds)

	erase(c, seals[1].Pos)
	_, err = Next(c, seals[1])
	require.ErrorIs(t, err, ErrGarbaged)
	_, err = Prev(c, seals[1])
	require.ErrorIs(t, err, ErrGarbaged)

	empty := arena.NewChain[int](0)
	_, err = Prev(empty, End)
	require.ErrorIs(t, err, ErrNullOutOfBounds)
}

func TestAdvance(t *testing.T) {
	c, seals := buildChain(t, 1, 2, 3, 4, 5)
	begin := Make(c, c.Begin())
	for _, tc := range []struct {
		name string
		from Seal
		k    int
		want Seal
		err  error
	}{
		{name: "zero", from: seals[2], k: 0, want: seals[2]},
		{name: "forward", from: begin, k: 3, want: seals[3]},
		{name: "to end", from: begin, k: 5, want: End},
		{name: "past end", from: begin, k: 6, err: ErrUpperOutOfBounds},
		{name: "back from end", from: End, k: -5, want: begin},
		{name: "before begin", from: End, k: -6, err: ErrNullOutOfBounds},
		{name: "null", from: Null, k: 1, err: ErrNullOutOfBounds},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Advance(c, tc.from, tc.k)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, s)
			require.Equal(t, tc.want.Pos, AdvanceUnchecked(c, tc.from.Pos, tc.k))
		})
	}
	require.Panics(t, func() { AdvanceUnchecked(c, c.Begin(), -1) })
	require.Panics(t, func() { AdvanceUnchecked(c, arena.EndPos, 1) })
}

func TestAdvanceLimited(t *testing.T) {
	c, seals := buildChain(t, 1, 2, 3, 4, 5)
	for _, tc := range []struct {
		name  string
		from  Seal
		k     int
		limit Seal
		want  Seal
		err   error
	}{
		{name: "limit beyond", from: seals[0], k: 2, limit: seals[4], want: seals[2]},
		{name: "limit reached exactly", from: seals[0], k: 2, limit: seals[2], want: seals[2]},
		{name: "limit exceeded", from: seals[0], k: 3, limit: seals[2], err: ErrLimitExceeded},
		{name: "limit at start", from: seals[1], k: 1, limit: seals[1], err: ErrLimitExceeded},
		{name: "limit behind", from: seals[2], k: 2, limit: seals[0], want: seals[4]},
		{name: "backwards exceeded", from: End, k: -3, limit: seals[3], err: ErrLimitExceeded},
		{name: "backwards limit behind", from: seals[1], k: -1, limit: End, want: seals[0]},
		{name: "end limit", from: seals[3], k: 3, limit: End, err: ErrLimitExceeded},
		{name: "zero", from: seals[3], k: 0, limit: seals[3], want: seals[3]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := AdvanceLimited(c, tc.from, tc.k, tc.limit)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, s)
		})
	}
	erase(c, seals[4].Pos)
	_, err := AdvanceLimited(c, seals[0], 1, seals[4])
	require.ErrorIs(t, err, ErrGarbaged)
}

func TestDistanceCompare(t *testing.T) {
	c, seals := buildChain(t, 5, 3, 3, 1, 4, 2)
	var ordered []Seal
	for p := c.Begin(); p != arena.EndPos; p = rbtree.Next(c, p) {
		ordered = append(ordered, Make(c, p))
	}
	ordered = append(ordered, End)
	for i, a := range ordered {
		for j, b := range ordered {
			d, err := Distance(c, a, b)
			require.NoError(t, err)
			require.Equal(t, j-i, d)
			r, err := Compare(c, a, b)
			require.NoError(t, err)
			require.Equal(t, cmp.Compare(i, j), r)
		}
	}
	// the two threes keep insertion order
	r, err := Compare(c, seals[1], seals[2])
	require.NoError(t, err)
	require.Equal(t, -1, r)

	erase(c, seals[0].Pos)
	_, err = Distance(c, seals[0], End)
	require.ErrorIs(t, err, ErrGarbaged)
	_, err = Distance(c, End, seals[0])
	require.ErrorIs(t, err, ErrGarbaged)
	_, err = Compare(c, End, seals[0])
	require.ErrorIs(t, err, ErrGarbaged)
}
