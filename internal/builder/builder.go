// Package builder implements the backward-growing byte buffer that
// produces Megrez payloads.
//
// A Megrez buffer is offset-addressed and little-endian. The builder
// writes it back to front: every append logically prepends bytes, and
// all offsets handed out are measured from the end of the buffer, which
// keeps them stable while the front keeps moving. Tables get a vtable
// (built and deduplicated by EndInfo), fixed structs are laid out
// inline, and the finished buffer starts with a 32-bit offset to the
// root table.
package builder

import (
	"bytes"
	"encoding/binary"
)

// Wire-format offset types. All offsets between objects are unsigned
// 32-bit, the table header is a signed 32-bit back-offset to the
// table's vtable, and vtable words are unsigned 16-bit.
type (
	UOffset uint32
	SOffset int32
	VOffset uint16
)

const (
	// SizeUOffset is the byte width of an inter-object offset.
	SizeUOffset = 4
	// SizeVOffset is the byte width of one vtable word.
	SizeVOffset = 2
	// MaxScalarSize is the widest scalar the format carries (ulong,
	// double). The encoder's size-class loop starts here.
	MaxScalarSize = 8
)

// fieldLoc records where one table field was written, keyed by its
// vtable slot offset. Positions are measured from the buffer end.
type fieldLoc struct {
	slot VOffset
	off  UOffset
}

// Builder accumulates one Megrez payload. The zero value is not usable;
// call NewBuilder.
//
// buf is filled from the back: buf[head:] holds everything written so
// far and head decreases as bytes are prepended. Growing reallocates
// and copies the used region to the tail of the larger slice, which
// leaves all end-relative offsets intact.
type Builder struct {
	buf  []byte
	head int

	// minalign tracks the largest alignment requested so far; Finish
	// pads the front to it so the whole buffer can be relocated to any
	// address aligned that much.
	minalign int

	// fieldLocs are the slots written since the last EndInfo or
	// ClearFields; EndInfo turns them into a vtable.
	fieldLocs []fieldLoc

	// vtables holds the end-relative offsets of every vtable written
	// so far, so identical layouts can share storage.
	vtables []UOffset
}

// NewBuilder returns a builder with the given initial capacity.
func NewBuilder(initialSize int) *Builder {
	if initialSize <= 0 {
		initialSize = 256
	}
	return &Builder{
		buf:      make([]byte, initialSize),
		head:     initialSize,
		minalign: 1,
	}
}

// Reset discards all written data so the builder can produce another
// payload.
func (b *Builder) Reset() {
	b.head = len(b.buf)
	b.minalign = 1
	b.fieldLocs = b.fieldLocs[:0]
	b.vtables = b.vtables[:0]
}

// Size returns the number of bytes written so far.
func (b *Builder) Size() UOffset {
	return UOffset(len(b.buf) - b.head)
}

// Bytes returns the finished buffer. The slice aliases the builder's
// storage and is only stable until the next write.
func (b *Builder) Bytes() []byte {
	return b.buf[b.head:]
}

// ensure makes room for n more bytes at the front.
func (b *Builder) ensure(n int) {
	for b.head < n {
		old := b.buf
		b.buf = make([]byte, len(old)*2)
		copy(b.buf[len(old):], old)
		b.head += len(old)
	}
}

// Pad prepends n zero bytes.
func (b *Builder) Pad(n int) {
	if n == 0 {
		return
	}
	b.ensure(n)
	b.head -= n
	for i := 0; i < n; i++ {
		b.buf[b.head+i] = 0
	}
}

// Align pads the front with zeros until the current size is a multiple
// of n, and raises the buffer's overall alignment to n.
func (b *Builder) Align(n int) {
	b.prep(n, 0)
}

// prep pads so that a value of the given byte width, written after
// `additional` more bytes, lands naturally aligned.
func (b *Builder) prep(size, additional int) {
	if size > b.minalign {
		b.minalign = size
	}
	total := int(b.Size()) + additional
	b.Pad((size - total%size) % size)
}

// PushBytes prepends raw bytes with no alignment.
func (b *Builder) PushBytes(p []byte) {
	b.ensure(len(p))
	b.head -= len(p)
	copy(b.buf[b.head:], p)
}

// PushScalar aligns to the scalar's width and prepends its
// little-endian representation. bits carries the value's bit pattern;
// only the low width bytes are written.
func (b *Builder) PushScalar(width int, bits uint64) {
	b.prep(width, 0)
	b.ensure(width)
	b.head -= width
	for i := 0; i < width; i++ {
		b.buf[b.head+i] = byte(bits >> (8 * i))
	}
}

// PushUOffset prepends a 32-bit offset relative to its own location,
// pointing back at the object written at target.
func (b *Builder) PushUOffset(target UOffset) {
	b.prep(SizeUOffset, 0)
	b.PushScalar(SizeUOffset, uint64(b.Size()+SizeUOffset-target))
}

// writeSOffsetAt overwrites the 32-bit word at the given end-relative
// position. Used to patch the table header once its vtable is placed.
func (b *Builder) writeSOffsetAt(pos UOffset, v SOffset) {
	idx := len(b.buf) - int(pos)
	binary.LittleEndian.PutUint32(b.buf[idx:], uint32(v))
}

// StartInfo begins a table and returns its data-end marker. Fields are
// then recorded with AddScalarField / AddOffsetField / AddStructField
// and turned into a vtable by EndInfo.
func (b *Builder) StartInfo() UOffset {
	return b.Size()
}

// track records that the field at the given vtable slot was just
// written at the current size.
func (b *Builder) track(slot VOffset) {
	b.fieldLocs = append(b.fieldLocs, fieldLoc{slot: slot, off: b.Size()})
}

// AddScalarField writes one scalar table field unless it equals its
// declared default, in which case the vtable slot stays zero and no
// payload bytes are emitted.
func (b *Builder) AddScalarField(slot VOffset, width int, bits, def uint64) {
	if bits == def {
		return
	}
	b.PushScalar(width, bits)
	b.track(slot)
}

// AddOffsetField writes one offset-valued table field. Offsets are
// always emitted; there is no default elision for them.
func (b *Builder) AddOffsetField(slot VOffset, target UOffset) {
	b.PushUOffset(target)
	b.track(slot)
}

// AddStructField records that an inline struct's bytes were just
// spliced in (via PushBytes) at the current size.
func (b *Builder) AddStructField(slot VOffset) {
	b.track(slot)
}

// ClearFields drops any field locations recorded so far. Callers use it
// after staging a fixed struct or emitting vector elements, whose
// tracked slots must not leak into an enclosing table's vtable.
func (b *Builder) ClearFields() {
	b.fieldLocs = b.fieldLocs[:0]
}

// EndInfo finishes a table started at start with numFields declared
// fields. It writes the table header and the vtable — two 16-bit words
// (vtable byte length, table byte length) followed by one 16-bit word
// per field slot, zero meaning absent — reusing a previously written
// vtable when the layouts are byte-identical. It returns the table's
// offset.
func (b *Builder) EndInfo(start UOffset, numFields int) UOffset {
	// Header placeholder; patched below once the vtable is placed.
	b.PushScalar(SizeUOffset, 0)
	object := b.Size()

	vt := make([]byte, (numFields+2)*SizeVOffset)
	binary.LittleEndian.PutUint16(vt[0:], uint16(len(vt)))
	binary.LittleEndian.PutUint16(vt[2:], uint16(object-start))
	for _, loc := range b.fieldLocs {
		binary.LittleEndian.PutUint16(vt[loc.slot:], uint16(object-loc.off))
	}
	b.fieldLocs = b.fieldLocs[:0]

	for _, prev := range b.vtables {
		idx := len(b.buf) - int(prev)
		if int(binary.LittleEndian.Uint16(b.buf[idx:])) != len(vt) {
			continue
		}
		if bytes.Equal(b.buf[idx:idx+len(vt)], vt) {
			b.writeSOffsetAt(object, SOffset(prev)-SOffset(object))
			return object
		}
	}

	// New layout: emit the words back to front so they read in order.
	for i := len(vt) - SizeVOffset; i >= 0; i -= SizeVOffset {
		b.PushScalar(SizeVOffset, uint64(binary.LittleEndian.Uint16(vt[i:])))
	}
	vtOff := b.Size()
	b.vtables = append(b.vtables, vtOff)
	b.writeSOffsetAt(object, SOffset(vtOff)-SOffset(object))
	return object
}

// StartStruct aligns for a fixed struct and returns its start marker.
func (b *Builder) StartStruct(minalign int) UOffset {
	b.Align(minalign)
	return b.Size()
}

// EndStruct finishes a fixed struct and returns its offset. Structs
// occupy exactly their declared byte size inline, with no vtable.
func (b *Builder) EndStruct() UOffset {
	return b.Size()
}

// FrontBytes returns the n most recently written bytes. The parser
// copies a staged fixed struct out through this before PopBytes.
func (b *Builder) FrontBytes(n int) []byte {
	return b.buf[b.head : b.head+n]
}

// PopBytes discards the n most recently written bytes.
func (b *Builder) PopBytes(n int) {
	b.head += n
}

// CreateString writes a string as [u32 length][bytes][NUL] and returns
// the offset of the length word.
func (b *Builder) CreateString(s string) UOffset {
	b.prep(SizeUOffset, len(s)+1)
	b.PushBytes([]byte{0})
	b.PushBytes([]byte(s))
	b.PushScalar(SizeUOffset, uint64(len(s)))
	return b.Size()
}

// StartVector aligns for a vector of the given total element byte
// length. Elements are then pushed in reverse of logical index, since
// the buffer grows backwards.
func (b *Builder) StartVector(byteLen, alignment int) {
	b.prep(SizeUOffset, byteLen)
	b.prep(alignment, byteLen)
}

// EndVector prepends the element count and returns the vector's offset.
func (b *Builder) EndVector(count int) UOffset {
	b.PushScalar(SizeUOffset, uint64(count))
	return b.Size()
}

// Finish aligns the buffer and prepends the final 32-bit offset to the
// root table. No writes may follow.
func (b *Builder) Finish(root UOffset) {
	b.prep(b.minalign, SizeUOffset)
	b.PushUOffset(root)
}
