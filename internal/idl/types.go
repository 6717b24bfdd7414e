// Package idl implements the Megrez interface description language:
// the lexer, the schema parser that populates the type registry, and
// the value parser that encodes a JSON-like root literal into a binary
// payload through the builder.
package idl

import (
	"github.com/megrez-io/megrez-go/internal/builder"
)

// BaseType enumerates the wire-level types of the IDL. The first block
// is the scalars; string, vector, struct and union are offset-valued.
// The token numbering of the lexer's type keywords is derived from this
// enumeration, so the two must stay in sync.
type BaseType int

const (
	BaseNone BaseType = iota
	BaseUType          // union discriminator, unsigned byte
	BaseBool
	BaseByte
	BaseUByte
	BaseShort
	BaseUShort
	BaseInt
	BaseUInt
	BaseLong
	BaseULong
	BaseFloat
	BaseDouble
	BaseString
	BaseVector
	BaseStruct
	BaseUnion
)

// typeNames are the IDL spellings, indexed by BaseType. Entries that
// cannot be written in source (none, utype, vector, struct, union as
// types) still need names for diagnostics.
var typeNames = [...]string{
	"none", "utype", "bool", "byte", "ubyte", "short", "ushort",
	"int", "uint", "long", "ulong", "float", "double",
	"string", "vector", "struct", "union",
}

// typeSizes are the inline byte widths, indexed by BaseType. Offset
// valued types occupy one uoffset inline.
var typeSizes = [...]int{
	1, 1, 1, 1, 1, 2, 2, 4, 4, 8, 8, 4, 8,
	builder.SizeUOffset, builder.SizeUOffset, builder.SizeUOffset, builder.SizeUOffset,
}

func (t BaseType) String() string { return typeNames[t] }

// Size returns the inline byte width of the base type.
func (t BaseType) Size() int { return typeSizes[t] }

// IsScalar reports whether the type is stored inline by value.
func (t BaseType) IsScalar() bool { return t >= BaseUType && t <= BaseDouble }

// IsInteger reports whether the type is an integral scalar.
func (t BaseType) IsInteger() bool { return t >= BaseUType && t <= BaseULong }

// IsFloat reports whether the type is a floating-point scalar.
func (t BaseType) IsFloat() bool { return t == BaseFloat || t == BaseDouble }

// Type is a fully resolved field or element type.
type Type struct {
	Base    BaseType
	Element BaseType // element type when Base is BaseVector

	// Struct is set for struct references (and for vectors of
	// structs); Enum for enum and union references.
	Struct *StructDef
	Enum   *EnumDef
}

// VectorType returns the element type of a vector type.
func (t Type) VectorType() Type {
	return Type{Base: t.Element, Struct: t.Struct, Enum: t.Enum}
}

// IsStruct reports whether the type is an inline fixed struct, as
// opposed to a table reference.
func (t Type) IsStruct() bool {
	return t.Base == BaseStruct && t.Struct != nil && t.Struct.Fixed
}

// InlineSize returns the number of bytes the type occupies inside a
// table or struct.
func InlineSize(t Type) int {
	if t.IsStruct() {
		return t.Struct.ByteSize
	}
	return t.Base.Size()
}

// InlineAlignment returns the alignment the type requires inline.
func InlineAlignment(t Type) int {
	if t.IsStruct() {
		return t.Struct.MinAlign
	}
	return t.Base.Size()
}

// Value is one parsed constant: a default, a literal, or a resolved
// object offset. The constant is carried as text until emission so
// defaults, parsed values and offsets share one representation and the
// default-elision comparison stays exact.
type Value struct {
	Type     Type
	Constant string
	// Offset is the vtable slot offset within the owning table, or the
	// running byte offset within a fixed struct.
	Offset builder.VOffset
}

// FieldDef describes one field of a table or fixed struct.
type FieldDef struct {
	Name       string
	DocComment string
	Attributes SymbolTable[*Value]

	Value      Value // type, default constant and slot offset
	Padding    int   // trailing zero bytes inside a fixed struct
	Deprecated bool
}

// StructDef describes a table (Fixed=false, vtable-indexed, optional
// fields) or a fixed struct (Fixed=true, strict field order, inline).
type StructDef struct {
	Name       string
	DocComment string
	Attributes SymbolTable[*Value]

	Fields SymbolTable[*FieldDef]

	Fixed      bool
	Predecl    bool // referenced but not yet declared
	SortBySize bool // emit fields by decreasing size class
	MinAlign   int
	ByteSize   int // fixed structs only: Σ(field size + padding)
}

// PadLastField grows the struct to a multiple of the given alignment,
// charging the slack to the most recently added field.
func (sd *StructDef) PadLastField(alignment int) {
	pad := (alignment - sd.ByteSize%alignment) % alignment
	sd.ByteSize += pad
	if n := sd.Fields.Len(); pad > 0 && n > 0 {
		sd.Fields.At(n - 1).Padding += pad
	}
}

// EnumVal is one member of an enum or union.
type EnumVal struct {
	Name       string
	DocComment string
	Value      int64
	// Struct is the member's table for union enums.
	Struct *StructDef
}

// EnumDef describes an enum, or a union when IsUnion is set. Union
// enums use utype as their underlying type and carry a struct per
// member.
type EnumDef struct {
	Name       string
	DocComment string
	Attributes SymbolTable[*Value]

	IsUnion    bool
	Underlying Type
	Vals       SymbolTable[*EnumVal]
}

// ReverseLookup finds the member with the given wire value.
func (ed *EnumDef) ReverseLookup(value int64) *EnumVal {
	for i := 0; i < ed.Vals.Len(); i++ {
		if ev := ed.Vals.At(i); ev.Value == value {
			return ev
		}
	}
	return nil
}

// FieldIndexToOffset maps a table field index to its vtable slot
// offset. Slots 0 and 1 hold the vtable and table byte lengths.
func FieldIndexToOffset(index int) builder.VOffset {
	return builder.VOffset((index + 2) * builder.SizeVOffset)
}
