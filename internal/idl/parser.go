package idl

import (
	"strconv"

	"github.com/megrez-io/megrez-go/internal/builder"
)

// fieldEntry is one parsed value waiting for emission. Table fields
// carry their FieldDef; vector elements carry nil.
type fieldEntry struct {
	value Value
	field *FieldDef
}

// Parser owns all state of one parse transaction: lexer cursor, type
// registries, the builder, and the two emission stacks. A Parser is
// single-threaded; independent parses need independent parsers.
type Parser struct {
	source     []byte
	cursor     int
	line       int
	token      int
	attribute  string
	docComment string

	structs   SymbolTable[*StructDef]
	enums     SymbolTable[*EnumDef]
	namespace []string
	root      *StructDef

	b *builder.Builder

	// fieldStack holds parsed values of the table or vector currently
	// being collected. Fields are emitted newest-first because the
	// buffer grows backwards.
	fieldStack []fieldEntry

	// structStack stages fixed-struct bytes off-buffer until the
	// parent table splices them back in at an aligned position.
	structStack []byte

	hasRoot bool
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{b: builder.NewBuilder(1024)}
}

// Parse consumes one source: schema declarations plus at most one root
// value literal. On error the parser's buffer is invalid and Bytes
// returns nil; the caller reparses from source.
func (p *Parser) Parse(source string) error {
	p.source = []byte(source)
	p.cursor = 0
	p.line = 1
	p.token = tokEOF
	p.attribute = ""
	p.docComment = ""
	p.structs = SymbolTable[*StructDef]{}
	p.enums = SymbolTable[*EnumDef]{}
	p.namespace = nil
	p.root = nil
	p.b.Reset()
	p.fieldStack = p.fieldStack[:0]
	p.structStack = p.structStack[:0]
	p.hasRoot = false

	if err := p.run(); err != nil {
		p.hasRoot = false
		return err
	}
	return nil
}

// Bytes returns the encoded payload, or nil when the source declared no
// root value or the parse failed.
func (p *Parser) Bytes() []byte {
	if !p.hasRoot {
		return nil
	}
	return p.b.Bytes()
}

// Root returns the designated root table, if any.
func (p *Parser) Root() *StructDef { return p.root }

// Structs returns the struct registry in definition order.
func (p *Parser) Structs() *SymbolTable[*StructDef] { return &p.structs }

// Enums returns the enum registry in declaration order.
func (p *Parser) Enums() *SymbolTable[*EnumDef] { return &p.enums }

// Namespace returns the accumulated namespace path components.
func (p *Parser) Namespace() []string { return p.namespace }

func (p *Parser) run() error {
	if err := p.next(); err != nil {
		return err
	}
	for p.token != tokEOF {
		var err error
		switch p.token {
		case tokNamespace:
			err = p.parseNamespace()
		case '{':
			err = p.parseRootValue()
		case tokEnum:
			err = p.parseEnum(false)
		case tokUnion:
			err = p.parseEnum(true)
		case tokMain:
			err = p.parseMainDecl()
		default:
			err = p.parseDecl()
		}
		if err != nil {
			return err
		}
	}
	for i := 0; i < p.structs.Len(); i++ {
		if sd := p.structs.At(i); sd.Predecl {
			return p.errf("Type referenced but not defined: %s", sd.Name)
		}
	}
	for i := 0; i < p.enums.Len(); i++ {
		ed := p.enums.At(i)
		if !ed.IsUnion {
			continue
		}
		for j := 0; j < ed.Vals.Len(); j++ {
			if ev := ed.Vals.At(j); ev.Struct != nil && ev.Struct.Fixed {
				return p.errf("Only info can be union elements: %s", ev.Name)
			}
		}
	}
	if len(p.structStack) != 0 {
		return p.errf("internal: struct stack not empty after parse")
	}
	return nil
}

func (p *Parser) parseNamespace() error {
	if err := p.next(); err != nil {
		return err
	}
	for {
		p.namespace = append(p.namespace, p.attribute)
		if err := p.expect(tokIdentifier); err != nil {
			return err
		}
		ok, err := p.isNext('.')
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return p.expect(';')
}

func (p *Parser) parseMainDecl() error {
	if err := p.next(); err != nil {
		return err
	}
	name := p.attribute
	if err := p.expect(tokIdentifier); err != nil {
		return err
	}
	if err := p.expect(';'); err != nil {
		return err
	}
	sd, ok := p.structs.Lookup(name)
	if !ok {
		return p.errf("Unknown main type: %s", name)
	}
	if sd.Fixed {
		return p.errf("Main type must be a info")
	}
	p.root = sd
	return nil
}

func (p *Parser) parseRootValue() error {
	if p.root == nil {
		return p.errf("No main type set to parse json with")
	}
	if p.b.Size() > 0 {
		return p.errf("Cannot have more than one json object in a file")
	}
	off, err := p.parseInfo(p.root)
	if err != nil {
		return err
	}
	p.b.Finish(off)
	p.hasRoot = true
	return nil
}

// lookupCreateStruct returns the registered struct or predeclares one,
// so fields may reference types ahead of their declaration. The
// end-of-parse closure check catches names that never materialize.
func (p *Parser) lookupCreateStruct(name string) *StructDef {
	if sd, ok := p.structs.Lookup(name); ok {
		return sd
	}
	sd := &StructDef{Name: name, Predecl: true, MinAlign: 1}
	p.structs.Add(name, sd)
	return sd
}

// parseType accepts a base-type keyword, a user type name, or [T].
func (p *Parser) parseType(t *Type) error {
	switch {
	case p.token >= typeToken(BaseBool) && p.token <= typeToken(BaseString):
		t.Base = BaseType(p.token - tokTypeBase)
	case p.token == tokIdentifier:
		if ed, ok := p.enums.Lookup(p.attribute); ok {
			*t = ed.Underlying
			if ed.IsUnion {
				t.Base = BaseUnion
			}
		} else {
			t.Base = BaseStruct
			t.Struct = p.lookupCreateStruct(p.attribute)
		}
	case p.token == '[':
		if err := p.next(); err != nil {
			return err
		}
		var sub Type
		if err := p.parseType(&sub); err != nil {
			return err
		}
		if sub.Base == BaseVector {
			return p.errf("Nested vector types not supported (wrap in info first)")
		}
		if sub.Base == BaseUnion {
			return p.errf("Vector of union types not supported (wrap in info first)")
		}
		*t = Type{Base: BaseVector, Element: sub.Base, Struct: sub.Struct, Enum: sub.Enum}
		return p.expect(']')
	default:
		return p.errf("Illegal type syntax")
	}
	return p.next()
}

// addField appends a field, assigning its vtable slot offset for
// tables or its running byte offset (with alignment padding) for fixed
// structs.
func (p *Parser) addField(sd *StructDef, name string, typ Type) (*FieldDef, error) {
	field := &FieldDef{Name: name}
	field.Value.Type = typ
	field.Value.Constant = "0"
	field.Value.Offset = FieldIndexToOffset(sd.Fields.Len())
	if sd.Fixed {
		size := InlineSize(typ)
		alignment := InlineAlignment(typ)
		if alignment > sd.MinAlign {
			sd.MinAlign = alignment
		}
		sd.PadLastField(alignment)
		field.Value.Offset = builder.VOffset(sd.ByteSize)
		sd.ByteSize += size
	}
	if sd.Fields.Add(name, field) {
		return nil, p.errf("Field already exists: %s", name)
	}
	return field, nil
}

func (p *Parser) parseField(sd *StructDef) error {
	name := p.attribute
	dc := p.docComment
	if err := p.expect(tokIdentifier); err != nil {
		return err
	}
	if err := p.expect(':'); err != nil {
		return err
	}
	var typ Type
	if err := p.parseType(&typ); err != nil {
		return err
	}

	if sd.Fixed && !typ.Base.IsScalar() && !typ.IsStruct() {
		return p.errf("structs may contain only scalar or struct fields")
	}

	// A union field is always preceded by its hidden discriminator
	// field, which occupies its own vtable slot.
	if typ.Base == BaseUnion {
		if _, err := p.addField(sd, name+"_type", typ.Enum.Underlying); err != nil {
			return err
		}
	}

	field, err := p.addField(sd, name, typ)
	if err != nil {
		return err
	}

	ok, err := p.isNext('=')
	if err != nil {
		return err
	}
	if ok {
		if err := p.parseSingleValue(&field.Value); err != nil {
			return err
		}
	}

	field.DocComment = dc
	if err := p.parseMetaData(&field.Attributes); err != nil {
		return err
	}
	_, field.Deprecated = field.Attributes.Lookup("deprecated")
	if field.Deprecated && sd.Fixed {
		return p.errf("Cannot deprecate fields in a struct")
	}
	return p.expect(';')
}

func (p *Parser) parseDecl() error {
	dc := p.docComment
	fixed, err := p.isNext(tokStruct)
	if err != nil {
		return err
	}
	if !fixed {
		if err := p.expect(tokInfo); err != nil {
			return err
		}
	}
	name := p.attribute
	if err := p.expect(tokIdentifier); err != nil {
		return err
	}
	sd := p.lookupCreateStruct(name)
	if !sd.Predecl {
		return p.errf("Datatype already exists: %s", name)
	}
	sd.Predecl = false
	sd.DocComment = dc
	sd.Fixed = fixed
	// Keep the registry in definition order even when this type was
	// predeclared by an earlier reference.
	p.structs.MoveToBack(name)
	if err := p.parseMetaData(&sd.Attributes); err != nil {
		return err
	}
	_, originalOrder := sd.Attributes.Lookup("Original_order")
	sd.SortBySize = !originalOrder && !fixed
	if err := p.expect('{'); err != nil {
		return err
	}
	for p.token != '}' {
		if err := p.parseField(sd); err != nil {
			return err
		}
	}
	// Force_align is applied before the trailing pad so the byte size
	// stays a multiple of the final alignment; struct starts would
	// drift off alignment otherwise.
	if fa, ok := sd.Attributes.Lookup("Force_align"); fixed && ok {
		align64, aerr := parseInt64(fa.Constant)
		align := int(align64)
		if fa.Type.Base != BaseInt || aerr != nil ||
			align < sd.MinAlign || align > 256 || align&(align-1) != 0 {
			return p.errf("Force_align must be a power of two integer ranging from the struct's natural alignment to 256")
		}
		sd.MinAlign = align
	}
	sd.PadLastField(sd.MinAlign)
	return p.expect('}')
}

func (p *Parser) parseEnum(isUnion bool) error {
	dc := p.docComment
	if err := p.next(); err != nil {
		return err
	}
	name := p.attribute
	if err := p.expect(tokIdentifier); err != nil {
		return err
	}
	ed := &EnumDef{Name: name, DocComment: dc, IsUnion: isUnion}
	if p.enums.Add(name, ed) {
		return p.errf("Enum already exists: %s", name)
	}
	if isUnion {
		ed.Underlying = Type{Base: BaseUType, Enum: ed}
	} else {
		colon, err := p.isNext(':')
		if err != nil {
			return err
		}
		if colon {
			if err := p.parseType(&ed.Underlying); err != nil {
				return err
			}
			if !ed.Underlying.Base.IsInteger() {
				return p.errf("Underlying enum type must be integral")
			}
		} else {
			// short is the default underlying type; any integer type
			// can be picked instead.
			ed.Underlying = Type{Base: BaseShort}
		}
	}
	if err := p.parseMetaData(&ed.Attributes); err != nil {
		return err
	}
	if err := p.expect('{'); err != nil {
		return err
	}
	if isUnion {
		ed.Vals.Add("NONE", &EnumVal{Name: "NONE", Value: 0})
	}
	for {
		vname := p.attribute
		vdc := p.docComment
		if err := p.expect(tokIdentifier); err != nil {
			return err
		}
		prev := ed.Vals.Len()
		var value int64
		if prev > 0 {
			value = ed.Vals.At(prev-1).Value + 1
		}
		ev := &EnumVal{Name: vname, DocComment: vdc, Value: value}
		if ed.Vals.Add(vname, ev) {
			return p.errf("Enum value already exists: %s", vname)
		}
		if isUnion {
			// Union members name tables; create or look them up like
			// any forward reference.
			ev.Struct = p.lookupCreateStruct(vname)
		}
		eq, err := p.isNext('=')
		if err != nil {
			return err
		}
		if eq {
			v, verr := parseInt64(p.attribute)
			if verr != nil {
				return p.errf("Invalid integer constant: %s", p.attribute)
			}
			ev.Value = v
			if err := p.expect(tokIntegerConstant); err != nil {
				return err
			}
			if prev > 0 && ed.Vals.At(prev-1).Value >= ev.Value {
				return p.errf("Enum values must be specified in ascending order")
			}
		}
		comma, err := p.isNext(',')
		if err != nil {
			return err
		}
		if !comma || p.token == '}' {
			break
		}
	}
	return p.expect('}')
}

// parseMetaData parses an optional parenthesized attribute list:
// (key, key: value, ...).
func (p *Parser) parseMetaData(attrs *SymbolTable[*Value]) error {
	ok, err := p.isNext('(')
	if err != nil || !ok {
		return err
	}
	for {
		name := p.attribute
		if err := p.expect(tokIdentifier); err != nil {
			return err
		}
		v := &Value{Constant: "0"}
		attrs.Add(name, v)
		colon, err := p.isNext(':')
		if err != nil {
			return err
		}
		if colon {
			if err := p.parseSingleValue(v); err != nil {
				return err
			}
		}
		done, err := p.isNext(')')
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := p.expect(','); err != nil {
			return err
		}
	}
}

// tryTypedValue accepts the current token as a constant of the
// requested kind if it matches. When the value's type is still open
// (attribute values), the requested base type is adopted; otherwise a
// mismatch is an error.
func (p *Parser) tryTypedValue(dtoken int, check bool, e *Value, req BaseType) (bool, error) {
	if p.token != dtoken {
		return false, nil
	}
	e.Constant = p.attribute
	if !check {
		if e.Type.Base != BaseNone {
			return false, p.errf("Type mismatch: expecting: %s, found: %s",
				e.Type.Base, req)
		}
		e.Type.Base = req
	}
	return true, p.next()
}

// parseSingleValue parses a scalar, string or enum-identifier constant
// into e. Identifiers are resolved against every declared enum and
// rewritten to their integer value.
func (p *Parser) parseSingleValue(e *Value) error {
	if m, err := p.tryTypedValue(tokIntegerConstant, e.Type.Base.IsScalar(), e, BaseInt); m || err != nil {
		return err
	}
	if m, err := p.tryTypedValue(tokFloatConstant, e.Type.Base.IsFloat(), e, BaseFloat); m || err != nil {
		return err
	}
	if m, err := p.tryTypedValue(tokStringConstant, e.Type.Base == BaseString, e, BaseString); m || err != nil {
		return err
	}
	if p.token == tokIdentifier {
		for i := 0; i < p.enums.Len(); i++ {
			ed := p.enums.At(i)
			ev, ok := ed.Vals.Lookup(p.attribute)
			if !ok {
				continue
			}
			p.attribute = strconv.FormatInt(ev.Value, 10)
			_, err := p.tryTypedValue(tokIdentifier, e.Type.Base.IsInteger(), e, BaseInt)
			return err
		}
		return p.errf("Not valid enum value: %s", p.attribute)
	}
	return p.errf("Cannot parse value starting with: %s", tokenToString(p.token))
}

// parseAnyValue dispatches on the expected type: nested objects,
// strings, vectors, unions, or single scalar values.
func (p *Parser) parseAnyValue(val *Value, field *FieldDef) error {
	switch val.Type.Base {
	case BaseUnion:
		// The discriminator must be the immediately preceding field on
		// the stack; its value picks the member table.
		n := len(p.fieldStack)
		if n == 0 || p.fieldStack[n-1].field == nil ||
			p.fieldStack[n-1].field.Value.Type.Base != BaseUType {
			return p.errf("Missing type field before this union value: %s", field.Name)
		}
		idx, err := p.scalarBits(BaseUType, p.fieldStack[n-1].value.Constant)
		if err != nil {
			return err
		}
		ev := val.Type.Enum.ReverseLookup(int64(idx))
		if ev == nil || ev.Struct == nil {
			return p.errf("Illegal type id for: %s", field.Name)
		}
		off, err := p.parseInfo(ev.Struct)
		if err != nil {
			return err
		}
		val.Constant = strconv.FormatUint(uint64(off), 10)
	case BaseStruct:
		off, err := p.parseInfo(val.Type.Struct)
		if err != nil {
			return err
		}
		val.Constant = strconv.FormatUint(uint64(off), 10)
	case BaseString:
		s := p.attribute
		if err := p.expect(tokStringConstant); err != nil {
			return err
		}
		val.Constant = strconv.FormatUint(uint64(p.b.CreateString(s)), 10)
	case BaseVector:
		if err := p.expect('['); err != nil {
			return err
		}
		off, err := p.parseVector(val.Type.VectorType())
		if err != nil {
			return err
		}
		val.Constant = strconv.FormatUint(uint64(off), 10)
	default:
		return p.parseSingleValue(val)
	}
	return nil
}

// serializeStruct splices a staged fixed struct from the side buffer
// into the main buffer at an aligned position.
func (p *Parser) serializeStruct(sd *StructDef, val *Value) error {
	off32, err := p.parseOffsetConstant(val.Constant)
	if err != nil {
		return err
	}
	off := int(off32)
	if len(p.structStack)-off != sd.ByteSize {
		return p.errf("internal: struct stack corrupted for: %s", sd.Name)
	}
	p.b.Align(sd.MinAlign)
	p.b.PushBytes(p.structStack[off:])
	p.structStack = p.structStack[:off]
	p.b.AddStructField(val.Offset)
	return nil
}

// parseInfo parses one { ... } object against a table or fixed struct
// and emits it. It returns the table's buffer offset, or for fixed
// structs the staging offset into the struct stack.
func (p *Parser) parseInfo(sd *StructDef) (builder.UOffset, error) {
	if err := p.expect('{'); err != nil {
		return 0, err
	}
	fieldn := 0
	if p.token == '}' {
		if err := p.next(); err != nil {
			return 0, err
		}
	} else {
		for {
			name := p.attribute
			quoted, err := p.isNext(tokStringConstant)
			if err != nil {
				return 0, err
			}
			if !quoted {
				if err := p.expect(tokIdentifier); err != nil {
					return 0, err
				}
			}
			field, ok := sd.Fields.Lookup(name)
			if !ok {
				return 0, p.errf("Unknown field: %s", name)
			}
			if sd.Fixed && (fieldn >= sd.Fields.Len() || sd.Fields.At(fieldn) != field) {
				return 0, p.errf("Struct field appearing out of order: %s", name)
			}
			if err := p.expect(':'); err != nil {
				return 0, err
			}
			val := field.Value
			if err := p.parseAnyValue(&val, field); err != nil {
				return 0, err
			}
			p.fieldStack = append(p.fieldStack, fieldEntry{value: val, field: field})
			fieldn++
			done, err := p.isNext('}')
			if err != nil {
				return 0, err
			}
			if done {
				break
			}
			if err := p.expect(','); err != nil {
				return 0, err
			}
		}
	}
	if sd.Fixed && fieldn != sd.Fields.Len() {
		return 0, p.errf("Incomplete struct initialization: %s", sd.Name)
	}

	var start builder.UOffset
	if sd.Fixed {
		start = p.b.StartStruct(sd.MinAlign)
	} else {
		start = p.b.StartInfo()
	}

	if err := p.emitFields(sd, fieldn); err != nil {
		return 0, err
	}

	if sd.Fixed {
		p.b.ClearFields()
		p.b.EndStruct()
		// The bytes must end up inline inside the parent, which is
		// itself built back to front; stage them off-buffer until the
		// owning field is emitted.
		off := len(p.structStack)
		p.structStack = append(p.structStack, p.b.FrontBytes(sd.ByteSize)...)
		p.b.PopBytes(sd.ByteSize)
		return builder.UOffset(off), nil
	}
	return p.b.EndInfo(start, sd.Fields.Len()), nil
}

// emitFields drains the top fieldn entries of the field stack into the
// builder. With sortbysize, one pass per size class from widest to
// narrowest yields natural alignment without per-field pad computation;
// otherwise a single pass keeps declaration order. Entries are walked
// newest-first because the buffer grows backwards.
func (p *Parser) emitFields(sd *StructDef, fieldn int) error {
	base := len(p.fieldStack) - fieldn
	size0 := 1
	if sd.SortBySize {
		size0 = builder.MaxScalarSize
	}
	for size := size0; size > 0; size /= 2 {
		for i := len(p.fieldStack) - 1; i >= base; i-- {
			val := &p.fieldStack[i].value
			field := p.fieldStack[i].field
			if sd.SortBySize && size != val.Type.Base.Size() {
				continue
			}
			p.b.Pad(field.Padding)
			if val.Type.Base.IsScalar() {
				bits, err := p.scalarBits(val.Type.Base, val.Constant)
				if err != nil {
					return err
				}
				width := val.Type.Base.Size()
				if sd.Fixed {
					// Struct fields are mandatory: no default elision.
					p.b.PushScalar(width, bits)
					continue
				}
				def, err := p.scalarBits(val.Type.Base, field.Value.Constant)
				if err != nil {
					return err
				}
				p.b.AddScalarField(val.Offset, width, bits, def)
				continue
			}
			if field.Value.Type.IsStruct() {
				if err := p.serializeStruct(field.Value.Type.Struct, val); err != nil {
					return err
				}
				continue
			}
			off, err := p.parseOffsetConstant(val.Constant)
			if err != nil {
				return err
			}
			p.b.AddOffsetField(val.Offset, builder.UOffset(off))
		}
	}
	p.fieldStack = p.fieldStack[:base]
	return nil
}

// parseVector parses [ v, ... ] of the given element type and emits it
// in reverse index order.
func (p *Parser) parseVector(typ Type) (builder.UOffset, error) {
	count := 0
	if p.token != ']' {
		for {
			val := Value{Type: typ, Constant: "0"}
			if err := p.parseAnyValue(&val, nil); err != nil {
				return 0, err
			}
			p.fieldStack = append(p.fieldStack, fieldEntry{value: val})
			count++
			if p.token == ']' {
				break
			}
			if err := p.expect(','); err != nil {
				return 0, err
			}
		}
	}
	if err := p.next(); err != nil { // consume ']'
		return 0, err
	}

	p.b.StartVector(count*InlineSize(typ), InlineAlignment(typ))
	for i := 0; i < count; i++ {
		// Start at the back, since the data is built backwards.
		val := &p.fieldStack[len(p.fieldStack)-1].value
		switch {
		case val.Type.IsStruct():
			if err := p.serializeStruct(val.Type.Struct, val); err != nil {
				return 0, err
			}
		case val.Type.Base.IsScalar():
			bits, err := p.scalarBits(val.Type.Base, val.Constant)
			if err != nil {
				return 0, err
			}
			p.b.PushScalar(val.Type.Base.Size(), bits)
		default:
			off, err := p.parseOffsetConstant(val.Constant)
			if err != nil {
				return 0, err
			}
			p.b.PushUOffset(builder.UOffset(off))
		}
		p.fieldStack = p.fieldStack[:len(p.fieldStack)-1]
	}
	p.b.ClearFields()
	return p.b.EndVector(count), nil
}
