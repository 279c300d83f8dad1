// Package seal validates positions held outside of a tree. A seal pairs a
// position with the generation its slot had when the seal was made, so a
// slot that was freed or handed out again since is detected instead of
// being dereferenced.
package seal

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/metrics"
	"github.com/spacemeshos/go-arenatree/rbtree"
)

var (
	// ErrNullOutOfBounds is returned when moving before the first element or
	// when using a null position.
	ErrNullOutOfBounds = errors.New("seal: position before the first element")
	// ErrUpperOutOfBounds is returned when moving past the end.
	ErrUpperOutOfBounds = errors.New("seal: position past the end")
	// ErrLimitExceeded is returned when the limit is reached before the
	// requested offset.
	ErrLimitExceeded = errors.New("seal: limit reached before the offset")
	// ErrNotAllowed is returned for operations on a released buffer.
	ErrNotAllowed = errors.New("seal: operation not allowed on this buffer")
	// ErrUnsealed is returned when the slot was handed out again since the
	// seal was made.
	ErrUnsealed = errors.New("seal: slot reused by a newer generation")
	// ErrGarbaged is returned when the slot was freed.
	ErrGarbaged = errors.New("seal: slot freed")
)

var staleHandles = metrics.NewCounter(
	"rejected_handles",
	"seal",
	"number of rejected handles by reason",
	[]string{"reason"},
)

var (
	notAllowedCount = staleHandles.WithLabelValues("not_allowed")
	unsealedCount   = staleHandles.WithLabelValues("unsealed")
	garbagedCount   = staleHandles.WithLabelValues("garbaged")
)

// Nodes is the view of a bucket chain needed to validate seals.
type Nodes interface {
	rbtree.Links
	// Lookup returns the header at p if the slot was handed out at least once.
	Lookup(p arena.Pos) (*arena.Node, bool)
	// Released reports whether the nodes were deallocated.
	Released() bool
	// Begin returns the first position of the tree.
	Begin() arena.Pos
}

// Seal is a position along with the generation of its slot at seal time.
type Seal struct {
	Pos arena.Pos
	Gen arena.Generation
}

// Null is the seal of no position.
var Null = Seal{Pos: arena.NullPos}

// End is the seal of the end position.
var End = Seal{Pos: arena.EndPos}

// Make seals p. p must be the end position or a live slot.
func Make(n Nodes, p arena.Pos) Seal {
	switch p {
	case arena.NullPos:
		return Null
	case arena.EndPos:
		return End
	}
	node := n.Node(p)
	if !node.Live {
		panic("BUG: sealing a slot that is not live: " + p.String())
	}
	return Seal{Pos: p, Gen: node.Gen}
}

// Tag returns the tracking tag of the sealed position.
func (s Seal) Tag() arena.Tag { return s.Pos.Tag() }

func (s Seal) String() string {
	return fmt.Sprintf("%v@%d", s.Pos, s.Gen)
}

// Purify returns the sealed position if it's still valid.
func Purify(n Nodes, s Seal) (arena.Pos, error) {
	if n.Released() {
		notAllowedCount.Inc()
		return arena.NullPos, ErrNotAllowed
	}
	switch s.Pos {
	case arena.NullPos:
		return arena.NullPos, ErrNullOutOfBounds
	case arena.EndPos:
		return arena.EndPos, nil
	}
	node, ok := n.Lookup(s.Pos)
	if !ok || !node.Live {
		garbagedCount.Inc()
		return arena.NullPos, ErrGarbaged
	}
	if node.Gen != s.Gen {
		unsealedCount.Inc()
		return arena.NullPos, ErrUnsealed
	}
	return s.Pos, nil
}

// Valid reports whether s purifies successfully.
func Valid(n Nodes, s Seal) bool {
	_, err := Purify(n, s)
	return err == nil
}
