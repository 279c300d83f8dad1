package tree

import (
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/log"
	"github.com/spacemeshos/go-arenatree/rbtree"
)

// Stats describes the storage of a tree.
type Stats struct {
	Len      int     `json:"len"`
	Capacity int     `json:"capacity"`
	Used     int     `json:"used"`
	Recycled int     `json:"recycled"`
	Buckets  int     `json:"buckets"`
	Bytes    uintptr `json:"bytes"`
	Owners   int     `json:"owners"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("len", s.Len)
	enc.AddInt("capacity", s.Capacity)
	enc.AddInt("used", s.Used)
	enc.AddInt("recycled", s.Recycled)
	enc.AddInt("buckets", s.Buckets)
	enc.AddUintptr("bytes", s.Bytes)
	enc.AddInt("owners", s.Owners)
	return nil
}

// Stats returns the storage statistics of the tree.
func (t *Tree[K, P]) Stats() Stats {
	buf := t.chkBuf()
	c := buf.Chain()
	return Stats{
		Len:      c.Count(),
		Capacity: c.Capacity(),
		Used:     c.Used(),
		Recycled: c.Recycled(),
		Buckets:  c.Buckets(),
		Bytes:    c.Bytes(),
		Owners:   buf.Owners(),
	}
}

// Verify checks the structure of the tree and the order of its keys.
// Failures are reported as log.FatalError.
func (t *Tree[K, P]) Verify() error {
	c := t.chain()
	defer runtime.KeepAlive(t)
	if err := rbtree.Verify(c, c.Begin(), c.Count()); err != nil {
		return log.ErrInvariant(err)
	}
	if live := c.Used() - c.Recycled(); live != c.Count() {
		return log.ErrInvariant(fmt.Errorf("%d live slots for %d elements", live, c.Count()))
	}
	if c.Count() == 0 {
		return nil
	}
	prev := c.Begin()
	for p := rbtree.Next(c, prev); p != arena.EndPos; prev, p = p, rbtree.Next(c, p) {
		switch r := t.cmp(t.keyOf(c.Payload(prev)), t.keyOf(c.Payload(p))); {
		case r > 0:
			return log.ErrInvariant(fmt.Errorf("key at %v is greater than the next one at %v", prev, p))
		case r == 0 && !t.cfg.Multi:
			return log.ErrInvariant(fmt.Errorf("duplicate key at %v and %v", prev, p))
		}
	}
	return nil
}

// Dump writes the shape of the tree to w using format for the payloads.
func (t *Tree[K, P]) Dump(w io.Writer, format func(*P) string) {
	c := t.chain()
	defer runtime.KeepAlive(t)
	rbtree.Dump(w, c, func(p arena.Pos) string {
		return format(c.Payload(p))
	})
}
