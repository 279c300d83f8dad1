package tree

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/rbtree"
	"github.com/spacemeshos/go-arenatree/tied"
)

// FromSorted builds a tree from items sorted by key in linear time. A unique
// tree keeps the first of the items with equal keys. Unsorted input is
// rejected with ErrNotSorted.
func FromSorted[K, P any](items []P, keyOf func(*P) K, cmp func(a, b K) int, opts ...Opt) (*Tree[K, P], error) {
	s := newSettings(opts)
	for i := 1; i < len(items); i++ {
		if cmp(keyOf(&items[i-1]), keyOf(&items[i])) > 0 {
			return nil, fmt.Errorf("%w: item %d", ErrNotSorted, i)
		}
	}
	return build(items, keyOf, cmp, s), nil
}

// FromUnsorted builds a tree from items in any order. Items with equal keys
// keep their relative order.
func FromUnsorted[K, P any](items []P, keyOf func(*P) K, cmp func(a, b K) int, opts ...Opt) *Tree[K, P] {
	s := newSettings(opts)
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b P) int {
		return cmp(keyOf(&a), keyOf(&b))
	})
	return build(sorted, keyOf, cmp, s)
}

// OrderedFromSorted builds a tree of ordered keys from sorted keys.
func OrderedFromSorted[K cmp.Ordered](keys []K, opts ...Opt) (*Tree[K, K], error) {
	return FromSorted(keys, identity[K], cmp.Compare[K], opts...)
}

func build[K, P any](items []P, keyOf func(*P) K, cmp func(a, b K) int, s settings) *Tree[K, P] {
	capacity := max(s.cfg.InitialCapacity, len(items))
	c := arena.NewChain[P](capacity,
		arena.WithMinBucketCapacity(s.cfg.MinBucketCapacity),
		arena.WithLogger(s.logger))
	ps := make([]arena.Pos, 0, len(items))
	for i := range items {
		if !s.cfg.Multi && i > 0 && cmp(keyOf(&items[i-1]), keyOf(&items[i])) == 0 {
			continue
		}
		ps = append(ps, c.Alloc(items[i]))
	}
	c.SetBegin(rbtree.Build(c, ps))
	c.AddCount(len(ps))
	s.logger.Debug("tree built",
		zap.Int("items", len(items)),
		zap.Int("count", len(ps)),
		zap.Int("capacity", c.Capacity()))
	return newTree(tied.New(c), keyOf, cmp, s)
}
