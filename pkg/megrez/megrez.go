// Package megrez is the entry point to the Megrez core: it parses one
// textual source — schema declarations plus at most one root value
// literal — and yields the schema description together with the
// encoded binary payload.
//
// Consumers that only read payloads use the access package; consumers
// that generate bindings walk the returned schema description.
package megrez

import (
	"github.com/megrez-io/megrez-go/internal/idl"
	"github.com/megrez-io/megrez-go/pkg/megrez/schema"
)

// Result is the outcome of one successful parse.
type Result struct {
	// Payload is the finished binary buffer, or nil when the source
	// declared no root value.
	Payload []byte
	// Schema describes every type the source declared.
	Schema *schema.Schema
}

// Parse consumes one source and returns the schema plus, when the
// source contains a root value literal, its encoded payload. Errors
// are reported as "Line N: <message>"; no partial output is exposed.
func Parse(source string) (*Result, error) {
	p := idl.NewParser()
	if err := p.Parse(source); err != nil {
		return nil, err
	}
	res := &Result{Schema: describe(p)}
	if buf := p.Bytes(); buf != nil {
		// Hand the payload over by value: it must outlive the parser.
		res.Payload = append([]byte(nil), buf...)
	}
	return res, nil
}

// describe flattens the parser's registries into the public schema
// description.
func describe(p *idl.Parser) *schema.Schema {
	s := &schema.Schema{
		Namespace: append([]string(nil), p.Namespace()...),
	}
	if root := p.Root(); root != nil {
		s.Root = root.Name
	}
	structs := p.Structs()
	for i := 0; i < structs.Len(); i++ {
		sd := structs.At(i)
		desc := &schema.Struct{
			Name:       sd.Name,
			Doc:        sd.DocComment,
			Fixed:      sd.Fixed,
			SortBySize: sd.SortBySize,
			MinAlign:   sd.MinAlign,
		}
		if sd.Fixed {
			desc.ByteSize = sd.ByteSize
		}
		for j := 0; j < sd.Fields.Len(); j++ {
			f := sd.Fields.At(j)
			desc.Fields = append(desc.Fields, schema.Field{
				Name:       f.Name,
				Doc:        f.DocComment,
				Type:       typeName(f.Value.Type),
				Default:    f.Value.Constant,
				Offset:     uint16(f.Value.Offset),
				Deprecated: f.Deprecated,
			})
		}
		s.Structs = append(s.Structs, desc)
	}
	enums := p.Enums()
	for i := 0; i < enums.Len(); i++ {
		ed := enums.At(i)
		desc := &schema.Enum{
			Name:       ed.Name,
			Doc:        ed.DocComment,
			IsUnion:    ed.IsUnion,
			Underlying: ed.Underlying.Base.String(),
		}
		for j := 0; j < ed.Vals.Len(); j++ {
			ev := ed.Vals.At(j)
			desc.Values = append(desc.Values, schema.EnumValue{
				Name:  ev.Name,
				Value: ev.Value,
			})
		}
		s.Enums = append(s.Enums, desc)
	}
	return s
}

// typeName renders a type the way the IDL spells it.
func typeName(t idl.Type) string {
	switch t.Base {
	case idl.BaseStruct:
		return t.Struct.Name
	case idl.BaseUnion:
		return t.Enum.Name
	case idl.BaseVector:
		return "[" + typeName(t.VectorType()) + "]"
	default:
		return t.Base.String()
	}
}
