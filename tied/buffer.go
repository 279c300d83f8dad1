// Package tied implements the reference-counted owner of a bucket chain that
// lets tree values share nodes until one of them is mutated.
package tied

import (
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/metrics"
)

// maxForks bounds the ancestry kept by a buffer. Handles sealed in an older
// ancestor are no longer accepted by its descendants.
const maxForks = 32

var (
	bufferEvents = metrics.NewCounter(
		"buffer_events",
		"tied",
		"number of buffer lifecycle events",
		[]string{"event"},
	)
	createdBuffers  = bufferEvents.WithLabelValues("created")
	clonedBuffers   = bufferEvents.WithLabelValues("cloned")
	orphanedBuffers = bufferEvents.WithLabelValues("orphaned")
	releasedBuffers = bufferEvents.WithLabelValues("released")
)

// Fork records that a buffer was cloned from the buffer with the given ID
// after Epoch mutations of the latter.
type Fork struct {
	ID    uuid.UUID
	Epoch uint64
}

// Buffer owns a bucket chain shared by one or more tree values.
// The owner count only tracks tree values and decides whether the chain may
// be mutated in place. Handles keep the Buffer reachable, so the chain stays
// readable through them after the last owner is gone. It is deallocated
// once neither a tree value nor a handle refers to the Buffer.
// Mutating a shared buffer is not allowed: owners call EnsureUnique first.
type Buffer[P any] struct {
	chain  *arena.Chain[P]
	owners atomic.Int32
	id     uuid.UUID
	epoch  uint64
	forks  []Fork
	logger *zap.Logger
}

// New creates a buffer with a single owner.
func New[P any](chain *arena.Chain[P]) *Buffer[P] {
	b := &Buffer[P]{
		chain:  chain,
		id:     uuid.New(),
		logger: chain.Logger(),
	}
	b.owners.Store(1)
	runtime.SetFinalizer(b, (*Buffer[P]).finalize)
	createdBuffers.Inc()
	return b
}

func (b *Buffer[P]) finalize() {
	b.chain.Deallocate()
	releasedBuffers.Inc()
}

// ID returns the unique identifier of the buffer.
func (b *Buffer[P]) ID() uuid.UUID { return b.id }

// Chain returns the chain owned by the buffer.
func (b *Buffer[P]) Chain() *arena.Chain[P] { return b.chain }

// Owners returns the number of tree values that own the buffer.
func (b *Buffer[P]) Owners() int { return int(b.owners.Load()) }

// IsUnique reports whether there's exactly one owner, which may then mutate
// the chain in place.
func (b *Buffer[P]) IsUnique() bool { return b.owners.Load() == 1 }

// Released reports whether the chain was deallocated. It stays false while
// the Buffer is reachable.
func (b *Buffer[P]) Released() bool { return b.chain.Released() }

// Epoch returns the number of mutations recorded with Touch.
func (b *Buffer[P]) Epoch() uint64 { return b.epoch }

// Forks returns the ancestry of the buffer, oldest first.
func (b *Buffer[P]) Forks() []Fork { return slices.Clone(b.forks) }

// Touch records a structural mutation.
func (b *Buffer[P]) Touch() {
	if !b.IsUnique() {
		panic("BUG: mutating a shared buffer")
	}
	b.epoch++
}

// Retain adds an owner.
func (b *Buffer[P]) Retain() *Buffer[P] {
	if b.owners.Add(1) <= 1 {
		panic("BUG: retaining an orphaned buffer")
	}
	return b
}

// Release drops an owner. It may be called from a finalizer. The chain is
// left to the handles that still refer to it.
func (b *Buffer[P]) Release() {
	switch n := b.owners.Add(-1); {
	case n < 0:
		panic("BUG: buffer released too many times")
	case n == 0:
		orphanedBuffers.Inc()
	}
}

// EnsureUnique returns a buffer the caller owns exclusively. If b is shared,
// the chain is cloned into a new buffer with a single bucket of at least
// minCapacity slots and the caller's ownership of b is dropped.
func (b *Buffer[P]) EnsureUnique(minCapacity int) *Buffer[P] {
	if b.IsUnique() {
		return b
	}
	forks := append(slices.Clone(b.forks), Fork{ID: b.id, Epoch: b.epoch})
	if len(forks) > maxForks {
		forks = forks[len(forks)-maxForks:]
	}
	n := &Buffer[P]{
		chain:  b.chain.Clone(minCapacity),
		id:     uuid.New(),
		forks:  forks,
		logger: b.logger,
	}
	n.owners.Store(1)
	runtime.SetFinalizer(n, (*Buffer[P]).finalize)
	if n.chain.Buckets() != 1 {
		panic("BUG: cloned buffer must have a single bucket")
	}
	b.Release()
	clonedBuffers.Inc()
	b.logger.Debug("buffer cloned",
		zap.Stringer("from", b.id),
		zap.Stringer("to", n.id),
		zap.Int("count", n.chain.Count()),
		zap.Int("capacity", n.chain.Capacity()))
	return n
}

// Reserve returns a buffer the caller owns exclusively that can hold at
// least capacity elements without growing. A unique buffer that needs more
// room is collapsed into a single bucket in place and its old chain is
// deallocated.
func (b *Buffer[P]) Reserve(capacity int) *Buffer[P] {
	if !b.IsUnique() {
		return b.EnsureUnique(capacity)
	}
	if b.chain.Capacity() < capacity {
		old := b.chain
		b.chain = old.Clone(capacity)
		old.Deallocate()
	}
	return b
}

// Descends reports whether b was cloned, directly or not, from the buffer
// with the given ID when the latter had seen no more than epoch mutations.
// Positions sealed in that buffer at that epoch stay meaningful in b.
func (b *Buffer[P]) Descends(id uuid.UUID, epoch uint64) bool {
	for i := len(b.forks) - 1; i >= 0; i-- {
		if b.forks[i].ID == id {
			return epoch <= b.forks[i].Epoch
		}
	}
	return false
}
