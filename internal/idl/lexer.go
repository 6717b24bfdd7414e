package idl

import (
	"strings"
)

// Token kinds. Values below 256 are the raw ASCII codepoints of the
// punctuation tokens. The type-keyword tokens are numbered as
// tokTypeBase + BaseType so the schema parser can translate between
// the two with arithmetic.
const (
	tokEOF = iota + 256
	tokStringConstant
	tokIntegerConstant
	tokFloatConstant
	tokIdentifier
	tokInfo
	tokStruct
	tokEnum
	tokUnion
	tokNamespace
	tokMain
	tokTypeBase
)

var tokenNames = [...]string{
	"end of file", "string constant", "integer constant",
	"float constant", "identifier", "info", "struct", "enum", "union",
	"namespace", "Main",
}

// typeToken returns the token kind of a base type's keyword.
func typeToken(t BaseType) int { return tokTypeBase + int(t) }

func tokenToString(t int) string {
	if t < 256 {
		return string(rune(t))
	}
	if t >= tokTypeBase {
		return typeNames[t-tokTypeBase]
	}
	return tokenNames[t-256]
}

// typeKeywords maps the denotable type spellings to their base types.
// none, utype, vector, struct and union cannot be written as types:
// vectors are spelled [T], and struct/union are declaration keywords.
var typeKeywords = map[string]BaseType{
	"bool": BaseBool, "byte": BaseByte, "ubyte": BaseUByte,
	"short": BaseShort, "ushort": BaseUShort,
	"int": BaseInt, "uint": BaseUInt,
	"long": BaseLong, "ulong": BaseULong,
	"float": BaseFloat, "double": BaseDouble,
	"string": BaseString,
}

var declKeywords = map[string]int{
	"info":      tokInfo,
	"struct":    tokStruct,
	"enum":      tokEnum,
	"union":     tokUnion,
	"namespace": tokNamespace,
	"Main":      tokMain,
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// peek returns the byte at the cursor without consuming it, or 0 at
// end of input.
func (p *Parser) peek() byte {
	if p.cursor >= len(p.source) {
		return 0
	}
	return p.source[p.cursor]
}

// next advances to the next token, skipping whitespace and ordinary
// comments and accumulating any /// documentation comment lines seen
// on the way.
func (p *Parser) next() error {
	p.docComment = ""
	seenNewline := false
	for {
		if p.cursor >= len(p.source) {
			p.token = tokEOF
			return nil
		}
		c := p.source[p.cursor]
		p.cursor++
		p.token = int(c)
		switch c {
		case ' ', '\r', '\t':
		case '\n':
			p.line++
			seenNewline = true
		case '{', '}', '(', ')', '[', ']', ',', ':', ';', '=':
			return nil
		case '.':
			if !isDigit(p.peek()) {
				return nil
			}
			return p.errf("Floating point constant can't start with \".\"")
		case '"':
			return p.lexString()
		case '/':
			if p.peek() == '/' {
				p.cursor++
				start := p.cursor
				for p.cursor < len(p.source) && p.source[p.cursor] != '\n' {
					p.cursor++
				}
				if start < len(p.source) && p.source[start] == '/' {
					// Documentation comment.
					if !seenNewline {
						return p.errf("A documentation comment should be on a line on its own")
					}
					if p.docComment != "" {
						p.docComment += "\n"
					}
					p.docComment += string(p.source[start+1 : p.cursor])
				}
				continue
			}
			return p.illegalChar(c)
		default:
			if isIdentStart(c) {
				return p.lexIdentifier()
			}
			if isDigit(c) || c == '-' {
				return p.lexNumber()
			}
			return p.illegalChar(c)
		}
	}
}

func (p *Parser) illegalChar(c byte) error {
	if c < ' ' || c > '~' {
		return p.errf("Illegal character: code: %d", c)
	}
	return p.errf("Illegal character: %c", c)
}

func (p *Parser) lexString() error {
	var sb strings.Builder
	for {
		if p.cursor >= len(p.source) {
			return p.errf("Unterminated string constant")
		}
		c := p.source[p.cursor]
		if c == '"' {
			p.cursor++
			p.attribute = sb.String()
			p.token = tokStringConstant
			return nil
		}
		if c < ' ' {
			return p.errf("Illegal character in string constant")
		}
		if c == '\\' {
			p.cursor++
			switch p.peek() {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				return p.errf("Unknown escape code in string constant")
			}
			p.cursor++
			continue
		}
		sb.WriteByte(c)
		p.cursor++
	}
}

func (p *Parser) lexIdentifier() error {
	start := p.cursor - 1
	for p.cursor < len(p.source) && isIdentChar(p.source[p.cursor]) {
		p.cursor++
	}
	p.attribute = string(p.source[start:p.cursor])
	if base, ok := typeKeywords[p.attribute]; ok {
		p.token = typeToken(base)
		return nil
	}
	// Boolean literals become integers, which simplifies everything
	// downstream.
	if p.attribute == "true" || p.attribute == "false" {
		if p.attribute == "true" {
			p.attribute = "1"
		} else {
			p.attribute = "0"
		}
		p.token = tokIntegerConstant
		return nil
	}
	if tok, ok := declKeywords[p.attribute]; ok {
		p.token = tok
		return nil
	}
	p.token = tokIdentifier
	return nil
}

func (p *Parser) lexNumber() error {
	start := p.cursor - 1
	for p.cursor < len(p.source) && isDigit(p.source[p.cursor]) {
		p.cursor++
	}
	if p.peek() == '.' {
		p.cursor++
		for p.cursor < len(p.source) && isDigit(p.source[p.cursor]) {
			p.cursor++
		}
		p.token = tokFloatConstant
	} else {
		p.token = tokIntegerConstant
	}
	p.attribute = string(p.source[start:p.cursor])
	return nil
}

// isNext consumes the current token if it is of kind t.
func (p *Parser) isNext(t int) (bool, error) {
	if p.token != t {
		return false, nil
	}
	return true, p.next()
}

// expect consumes the current token, failing if it is not of kind t.
func (p *Parser) expect(t int) error {
	if p.token != t {
		return p.errf("Expecting: %s instead got: %s",
			tokenToString(t), tokenToString(p.token))
	}
	return p.next()
}
