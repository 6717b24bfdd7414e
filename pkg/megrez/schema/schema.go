// Package schema describes parsed Megrez schemas to consumers such as
// code generators. The description is a flattened, immutable snapshot
// of the parser's type registry: structs and enums in definition
// order, fields with their resolved defaults and vtable slots, and the
// designated root table. A canonical textual rendering gives schemas a
// stable identity, fingerprinted with BLAKE3.
package schema

import (
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Schema is one parsed schema.
type Schema struct {
	// Namespace holds the accumulated dotted-path components.
	Namespace []string
	// Structs lists tables and fixed structs in definition order.
	Structs []*Struct
	// Enums lists enums and unions in declaration order.
	Enums []*Enum
	// Root names the designated root table; empty when the source
	// declared none.
	Root string
}

// Struct describes a table (Fixed=false) or fixed struct (Fixed=true).
type Struct struct {
	Name       string
	Doc        string
	Fixed      bool
	SortBySize bool
	MinAlign   int
	ByteSize   int // fixed structs only
	Fields     []Field
}

// Field describes one field of a table or fixed struct.
type Field struct {
	Name string
	Doc  string
	// Type is the rendered IDL type, e.g. "int", "[Monster]", "Vec3".
	Type string
	// Default is the field's default constant as text.
	Default string
	// Offset is the vtable slot offset for table fields, or the byte
	// offset within a fixed struct.
	Offset     uint16
	Deprecated bool
}

// Enum describes an enum or union.
type Enum struct {
	Name       string
	Doc        string
	IsUnion    bool
	Underlying string
	Values     []EnumValue
}

// EnumValue is one enum or union member.
type EnumValue struct {
	Name  string
	Value int64
}

// Struct returns the named struct description, or nil.
func (s *Schema) Struct(name string) *Struct {
	for _, sd := range s.Structs {
		if sd.Name == name {
			return sd
		}
	}
	return nil
}

// Enum returns the named enum description, or nil.
func (s *Schema) Enum(name string) *Enum {
	for _, ed := range s.Enums {
		if ed.Name == name {
			return ed
		}
	}
	return nil
}

// Canonical renders the schema as deterministic text. Two schemas with
// the same declarations render identically regardless of the source
// they were parsed from (comments and formatting do not survive).
func (s *Schema) Canonical() string {
	var sb strings.Builder
	if len(s.Namespace) > 0 {
		fmt.Fprintf(&sb, "namespace %s;\n", strings.Join(s.Namespace, "."))
	}
	for _, ed := range s.Enums {
		kind := "enum"
		if ed.IsUnion {
			kind = "union"
		}
		fmt.Fprintf(&sb, "%s %s:%s{", kind, ed.Name, ed.Underlying)
		for i, ev := range ed.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%s=%d", ev.Name, ev.Value)
		}
		sb.WriteString("}\n")
	}
	for _, sd := range s.Structs {
		kind := "info"
		if sd.Fixed {
			kind = "struct"
		}
		fmt.Fprintf(&sb, "%s %s{", kind, sd.Name)
		for i, f := range sd.Fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			fmt.Fprintf(&sb, "%s:%s=%s@%d", f.Name, f.Type, f.Default, f.Offset)
			if f.Deprecated {
				sb.WriteString("!")
			}
		}
		sb.WriteString("}\n")
	}
	if s.Root != "" {
		fmt.Fprintf(&sb, "Main %s;\n", s.Root)
	}
	return sb.String()
}

// Fingerprint returns the BLAKE3 hash of the canonical rendering.
func (s *Schema) Fingerprint() [32]byte {
	return blake3.Sum256([]byte(s.Canonical()))
}
