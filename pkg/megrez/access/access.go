// Package access provides zero-copy read access to finished Megrez
// payloads. It is the read side of the wire format: the leading 32-bit
// offset addresses the root table, tables resolve fields through their
// vtable (absent slots fall back to the declared default supplied by
// the caller), and strings, vectors and inline structs are reached
// through relative offsets.
//
// Accessors take vtable slot offsets, the same values a schema assigns
// with (fieldIndex+2)*2; generated bindings or schema descriptions
// supply them.
package access

import (
	"encoding/binary"
	"math"
)

// Table is a view of one table within a payload.
type Table struct {
	buf []byte
	pos uint32
}

// Struct is a view of one inline fixed struct.
type Struct struct {
	buf []byte
	pos uint32
}

// Vector is a view of one vector.
type Vector struct {
	buf []byte
	pos uint32 // position of the length word
}

// Root returns the root table a finished payload addresses.
func Root(buf []byte) Table {
	return Table{buf: buf, pos: binary.LittleEndian.Uint32(buf)}
}

// Pos returns the table's absolute byte position within the payload.
func (t Table) Pos() uint32 { return t.pos }

// vtable resolves the table's vtable position from its signed
// back-offset header.
func (t Table) vtable() uint32 {
	soff := int32(binary.LittleEndian.Uint32(t.buf[t.pos:]))
	return uint32(int32(t.pos) - soff)
}

// fieldOffset returns the field's byte offset within the table, or
// zero when the field is absent.
func (t Table) fieldOffset(slot uint16) uint16 {
	vt := t.vtable()
	vtLen := binary.LittleEndian.Uint16(t.buf[vt:])
	if slot >= vtLen {
		return 0
	}
	return binary.LittleEndian.Uint16(t.buf[vt+uint32(slot):])
}

// Has reports whether the field occupies its vtable slot.
func (t Table) Has(slot uint16) bool { return t.fieldOffset(slot) != 0 }

func (t Table) scalar(slot uint16, width int) (uint64, bool) {
	o := t.fieldOffset(slot)
	if o == 0 {
		return 0, false
	}
	pos := t.pos + uint32(o)
	var bits uint64
	for i := 0; i < width; i++ {
		bits |= uint64(t.buf[pos+uint32(i)]) << (8 * i)
	}
	return bits, true
}

// BoolField returns the field's value, or def when absent.
func (t Table) BoolField(slot uint16, def bool) bool {
	if bits, ok := t.scalar(slot, 1); ok {
		return bits != 0
	}
	return def
}

func (t Table) Uint8Field(slot uint16, def uint8) uint8 {
	if bits, ok := t.scalar(slot, 1); ok {
		return uint8(bits)
	}
	return def
}

func (t Table) Int8Field(slot uint16, def int8) int8 {
	if bits, ok := t.scalar(slot, 1); ok {
		return int8(bits)
	}
	return def
}

func (t Table) Uint16Field(slot uint16, def uint16) uint16 {
	if bits, ok := t.scalar(slot, 2); ok {
		return uint16(bits)
	}
	return def
}

func (t Table) Int16Field(slot uint16, def int16) int16 {
	if bits, ok := t.scalar(slot, 2); ok {
		return int16(bits)
	}
	return def
}

func (t Table) Uint32Field(slot uint16, def uint32) uint32 {
	if bits, ok := t.scalar(slot, 4); ok {
		return uint32(bits)
	}
	return def
}

func (t Table) Int32Field(slot uint16, def int32) int32 {
	if bits, ok := t.scalar(slot, 4); ok {
		return int32(bits)
	}
	return def
}

func (t Table) Uint64Field(slot uint16, def uint64) uint64 {
	if bits, ok := t.scalar(slot, 8); ok {
		return bits
	}
	return def
}

func (t Table) Int64Field(slot uint16, def int64) int64 {
	if bits, ok := t.scalar(slot, 8); ok {
		return int64(bits)
	}
	return def
}

func (t Table) Float32Field(slot uint16, def float32) float32 {
	if bits, ok := t.scalar(slot, 4); ok {
		return math.Float32frombits(uint32(bits))
	}
	return def
}

func (t Table) Float64Field(slot uint16, def float64) float64 {
	if bits, ok := t.scalar(slot, 8); ok {
		return math.Float64frombits(bits)
	}
	return def
}

// indirect follows the relative offset stored at pos.
func indirect(buf []byte, pos uint32) uint32 {
	return pos + binary.LittleEndian.Uint32(buf[pos:])
}

// target resolves an offset-valued field to its absolute position.
func (t Table) target(slot uint16) (uint32, bool) {
	o := t.fieldOffset(slot)
	if o == 0 {
		return 0, false
	}
	return indirect(t.buf, t.pos+uint32(o)), true
}

// StringField returns the field's string, or "" and false when absent.
func (t Table) StringField(slot uint16) (string, bool) {
	pos, ok := t.target(slot)
	if !ok {
		return "", false
	}
	return readString(t.buf, pos), true
}

// TableField returns the referenced sub-table.
func (t Table) TableField(slot uint16) (Table, bool) {
	pos, ok := t.target(slot)
	if !ok {
		return Table{}, false
	}
	return Table{buf: t.buf, pos: pos}, true
}

// UnionField resolves a union value field; the discriminator lives in
// the companion _type slot and is read separately.
func (t Table) UnionField(slot uint16) (Table, bool) {
	return t.TableField(slot)
}

// StructField returns the inline fixed struct stored at the field.
func (t Table) StructField(slot uint16) (Struct, bool) {
	o := t.fieldOffset(slot)
	if o == 0 {
		return Struct{}, false
	}
	return Struct{buf: t.buf, pos: t.pos + uint32(o)}, true
}

// VectorField returns the referenced vector.
func (t Table) VectorField(slot uint16) (Vector, bool) {
	pos, ok := t.target(slot)
	if !ok {
		return Vector{}, false
	}
	return Vector{buf: t.buf, pos: pos}, true
}

func readString(buf []byte, pos uint32) string {
	n := binary.LittleEndian.Uint32(buf[pos:])
	return string(buf[pos+4 : pos+4+n])
}

// Pos returns the struct's absolute byte position within the payload.
func (s Struct) Pos() uint32 { return s.pos }

func (s Struct) scalar(off uint32, width int) uint64 {
	var bits uint64
	for i := 0; i < width; i++ {
		bits |= uint64(s.buf[s.pos+off+uint32(i)]) << (8 * i)
	}
	return bits
}

// Scalar accessors take the field's byte offset within the struct.

func (s Struct) Uint8(off uint32) uint8   { return uint8(s.scalar(off, 1)) }
func (s Struct) Int8(off uint32) int8     { return int8(s.scalar(off, 1)) }
func (s Struct) Uint16(off uint32) uint16 { return uint16(s.scalar(off, 2)) }
func (s Struct) Int16(off uint32) int16   { return int16(s.scalar(off, 2)) }
func (s Struct) Uint32(off uint32) uint32 { return uint32(s.scalar(off, 4)) }
func (s Struct) Int32(off uint32) int32   { return int32(s.scalar(off, 4)) }
func (s Struct) Uint64(off uint32) uint64 { return s.scalar(off, 8) }
func (s Struct) Int64(off uint32) int64   { return int64(s.scalar(off, 8)) }
func (s Struct) Float32(off uint32) float32 {
	return math.Float32frombits(uint32(s.scalar(off, 4)))
}
func (s Struct) Float64(off uint32) float64 {
	return math.Float64frombits(s.scalar(off, 8))
}

// Struct returns a nested inline struct at the given byte offset.
func (s Struct) Struct(off uint32) Struct {
	return Struct{buf: s.buf, pos: s.pos + off}
}

// Len returns the vector's element count.
func (v Vector) Len() int {
	return int(binary.LittleEndian.Uint32(v.buf[v.pos:]))
}

// elem returns the absolute position of element i given its inline
// byte width.
func (v Vector) elem(i, width int) uint32 {
	return v.pos + 4 + uint32(i*width)
}

func (v Vector) scalar(i, width int) uint64 {
	pos := v.elem(i, width)
	var bits uint64
	for j := 0; j < width; j++ {
		bits |= uint64(v.buf[pos+uint32(j)]) << (8 * j)
	}
	return bits
}

func (v Vector) BoolAt(i int) bool     { return v.scalar(i, 1) != 0 }
func (v Vector) Uint8At(i int) uint8   { return uint8(v.scalar(i, 1)) }
func (v Vector) Int8At(i int) int8     { return int8(v.scalar(i, 1)) }
func (v Vector) Uint16At(i int) uint16 { return uint16(v.scalar(i, 2)) }
func (v Vector) Int16At(i int) int16   { return int16(v.scalar(i, 2)) }
func (v Vector) Uint32At(i int) uint32 { return uint32(v.scalar(i, 4)) }
func (v Vector) Int32At(i int) int32   { return int32(v.scalar(i, 4)) }
func (v Vector) Uint64At(i int) uint64 { return v.scalar(i, 8) }
func (v Vector) Int64At(i int) int64   { return int64(v.scalar(i, 8)) }
func (v Vector) Float32At(i int) float32 {
	return math.Float32frombits(uint32(v.scalar(i, 4)))
}
func (v Vector) Float64At(i int) float64 {
	return math.Float64frombits(v.scalar(i, 8))
}

// StringAt returns the string element at index i.
func (v Vector) StringAt(i int) string {
	return readString(v.buf, indirect(v.buf, v.elem(i, 4)))
}

// TableAt returns the table element at index i.
func (v Vector) TableAt(i int) Table {
	return Table{buf: v.buf, pos: indirect(v.buf, v.elem(i, 4))}
}

// StructAt returns the inline struct element at index i; byteSize is
// the struct's declared size.
func (v Vector) StructAt(i, byteSize int) Struct {
	return Struct{buf: v.buf, pos: v.elem(i, byteSize)}
}
