package arena

import (
	"fmt"
	"unsafe"
)

// bucketHeader mirrors the per-bucket bookkeeping accounted for in Layout.
type bucketHeader struct {
	base     int
	capacity int
	used     int
	next     uintptr
}

// headExtra mirrors what the head bucket stores in addition to the header.
type headExtra struct {
	end   Node
	begin Pos
	count int
}

// Layout describes how a node header and a payload of a particular type are
// packed into a bucket: [padding][Node][Payload], repeated.
type Layout struct {
	HeaderSize    uintptr
	HeaderAlign   uintptr
	PayloadSize   uintptr
	PayloadAlign  uintptr
	PayloadOffset uintptr
	// Stride is the distance between two consecutive slots.
	Stride uintptr
	// Align is the alignment of a whole slot.
	Align uintptr
}

// LayoutOf computes the slot layout for payload type P.
func LayoutOf[P any]() Layout {
	var s slot[P]
	return Layout{
		HeaderSize:    unsafe.Sizeof(s.node),
		HeaderAlign:   unsafe.Alignof(s.node),
		PayloadSize:   unsafe.Sizeof(s.payload),
		PayloadAlign:  unsafe.Alignof(s.payload),
		PayloadOffset: unsafe.Offsetof(s.payload),
		Stride:        unsafe.Sizeof(s),
		Align:         unsafe.Alignof(s),
	}
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// Overhead returns the number of bytes that precede the first slot of a
// bucket, including the alignment padding.
func (l Layout) Overhead(head bool) uintptr {
	n := unsafe.Sizeof(bucketHeader{})
	if head {
		n += unsafe.Sizeof(headExtra{})
	}
	return alignUp(n, l.Align)
}

// BucketBytes returns the size of a bucket holding capacity slots.
func (l Layout) BucketBytes(capacity int, head bool) uintptr {
	if capacity < 0 {
		panic("BUG: negative bucket capacity")
	}
	return l.Overhead(head) + uintptr(capacity)*l.Stride
}

func (l Layout) String() string {
	return fmt.Sprintf("header %d/%d payload %d/%d at %d stride %d align %d",
		l.HeaderSize, l.HeaderAlign, l.PayloadSize, l.PayloadAlign,
		l.PayloadOffset, l.Stride, l.Align)
}
