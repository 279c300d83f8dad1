package tree

import (
	"fmt"
	"runtime"

	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-arenatree/arena"
	"github.com/spacemeshos/go-arenatree/seal"
	"github.com/spacemeshos/go-arenatree/tied"
)

// Handle refers to an element of a tree or to its end position. It remains
// safe to use after the tree changes: operations on a handle whose element
// was erased fail with seal.ErrGarbaged or seal.ErrUnsealed.
// The zero Handle refers to nothing.
type Handle[P any] struct {
	buf   *tied.Buffer[P]
	seal  seal.Seal
	epoch uint64
}

func (t *Tree[K, P]) handle(p arena.Pos) Handle[P] {
	buf := t.chkBuf()
	return Handle[P]{
		buf:   buf,
		seal:  seal.Make(buf.Chain(), p),
		epoch: buf.Epoch(),
	}
}

// nodes returns the nodes h must be purified against in t.
func (t *Tree[K, P]) nodes(h Handle[P]) (*arena.Chain[P], error) {
	buf := t.chkBuf()
	switch {
	case h.buf == nil:
		return nil, seal.ErrNullOutOfBounds
	case h.buf == buf:
		return buf.Chain(), nil
	case buf.Descends(h.buf.ID(), h.epoch):
		return buf.Chain(), nil
	default:
		return nil, ErrForeignHandle
	}
}

func (t *Tree[K, P]) purify(h Handle[P]) (*arena.Chain[P], arena.Pos, error) {
	defer runtime.KeepAlive(t)
	c, err := t.nodes(h)
	if err != nil {
		return nil, arena.NullPos, err
	}
	p, err := seal.Purify(c, h.seal)
	if err != nil {
		return nil, arena.NullPos, err
	}
	return c, p, nil
}

// IsZero reports whether h is the zero Handle.
func (h Handle[P]) IsZero() bool { return h.buf == nil }

// IsEnd reports whether h refers to the end position.
func (h Handle[P]) IsEnd() bool { return h.buf != nil && h.seal.Pos == arena.EndPos }

// Tag returns the tracking tag of the element, which doesn't change while
// the element stays in the tree, even across clones.
func (h Handle[P]) Tag() arena.Tag { return h.seal.Tag() }

// Valid reports whether h still refers to a live element, or to the end
// position, of the nodes it was taken from. The nodes stay around as long
// as h does.
func (h Handle[P]) Valid() bool {
	if h.buf == nil {
		return false
	}
	ok := seal.Valid(h.buf.Chain(), h.seal)
	runtime.KeepAlive(h.buf)
	return ok
}

// Raw returns the raw index of h.
func (h Handle[P]) Raw() RawIndex {
	return RawIndex{Tag: h.seal.Tag(), Gen: h.seal.Gen}
}

func (h Handle[P]) String() string {
	if h.buf == nil {
		return "<nil>"
	}
	return h.seal.String()
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (h Handle[P]) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("tag", int64(h.seal.Tag()))
	enc.AddUint32("gen", uint32(h.seal.Gen))
	return nil
}

// Same reports whether a and b refer to the same live element or both to
// the end position.
func (t *Tree[K, P]) Same(a, b Handle[P]) bool {
	_, pa, err := t.purify(a)
	if err != nil {
		return false
	}
	_, pb, err := t.purify(b)
	return err == nil && pa == pb
}

// IsValid reports whether h refers to an element of t or to its end.
func (t *Tree[K, P]) IsValid(h Handle[P]) bool {
	_, _, err := t.purify(h)
	return err == nil
}

// Value returns the element h refers to.
func (t *Tree[K, P]) Value(h Handle[P]) (P, error) {
	var zero P
	c, p, err := t.purify(h)
	defer runtime.KeepAlive(t)
	if err != nil {
		return zero, err
	}
	if p == arena.EndPos {
		return zero, seal.ErrUpperOutOfBounds
	}
	return *c.Payload(p), nil
}

// HandleFromRaw returns the handle of a raw index previously obtained from
// t or from a tree sharing its history. The handle is not checked: use
// IsValid to find out whether it still refers to the same element.
func (t *Tree[K, P]) HandleFromRaw(r RawIndex) (Handle[P], error) {
	if err := r.check(); err != nil {
		return Handle[P]{}, err
	}
	buf := t.chkBuf()
	return Handle[P]{
		buf:   buf,
		seal:  seal.Seal{Pos: r.Tag.Pos(), Gen: r.Gen},
		epoch: buf.Epoch(),
	}, nil
}

// RawIndex is the serializable form of a Handle. Two raw indices taken from
// the same nodes are equal iff the handles refer to the same element.
type RawIndex struct {
	Tag arena.Tag
	Gen arena.Generation
}

func (r RawIndex) check() error {
	if r.Tag < arena.EndTag || r.Tag >= arena.Tag(arena.MaxSlots) {
		return fmt.Errorf("bad raw index tag %d", r.Tag)
	}
	return nil
}

func (r RawIndex) String() string {
	return fmt.Sprintf("%d@%d", r.Tag, r.Gen)
}

// EncodeScale implements scale.Encodable. The tag is shifted so that the
// reserved negative tags encode as small non-negative numbers.
func (r *RawIndex) EncodeScale(enc *scale.Encoder) (int, error) {
	var total int
	{
		n, err := scale.EncodeCompact64(enc, uint64(r.Tag-arena.EndTag))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(r.Gen))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (r *RawIndex) DecodeScale(dec *scale.Decoder) (int, error) {
	var total int
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		if field >= uint64(arena.MaxSlots)+2 {
			return total, fmt.Errorf("raw index tag %d out of range", field)
		}
		r.Tag = arena.Tag(field) + arena.EndTag
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Gen = arena.Generation(field)
	}
	return total, nil
}
