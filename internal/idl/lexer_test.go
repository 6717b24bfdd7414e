package idl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lexAll drains the token stream of src, returning kinds and the
// attribute text captured for each.
func lexAll(t *testing.T, src string) (toks []int, attrs []string) {
	t.Helper()
	p := NewParser()
	p.source = []byte(src)
	p.line = 1
	for {
		require.NoError(t, p.next())
		if p.token == tokEOF {
			return toks, attrs
		}
		toks = append(toks, p.token)
		attrs = append(attrs, p.attribute)
	}
}

// lexError runs the lexer until it fails and returns the error.
func lexError(t *testing.T, src string) error {
	t.Helper()
	p := NewParser()
	p.source = []byte(src)
	p.line = 1
	for {
		if err := p.next(); err != nil {
			return err
		}
		if p.token == tokEOF {
			t.Fatalf("lexing %q succeeded, expected an error", src)
		}
	}
}

func TestLexPunctuation(t *testing.T) {
	toks, _ := lexAll(t, "{ } ( ) [ ] , : ; =")
	want := []int{'{', '}', '(', ')', '[', ']', ',', ':', ';', '='}
	assert.Equal(t, want, toks)
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	toks, attrs := lexAll(t, "info struct enum union namespace Main Monster hp_2")
	want := []int{tokInfo, tokStruct, tokEnum, tokUnion, tokNamespace,
		tokMain, tokIdentifier, tokIdentifier}
	assert.Equal(t, want, toks)
	assert.Equal(t, "Monster", attrs[6])
	assert.Equal(t, "hp_2", attrs[7])
}

func TestLexTypeKeywordsShareBaseTypeNumbering(t *testing.T) {
	toks, _ := lexAll(t, "bool byte ubyte short ushort int uint long ulong float double string")
	want := []int{
		typeToken(BaseBool), typeToken(BaseByte), typeToken(BaseUByte),
		typeToken(BaseShort), typeToken(BaseUShort), typeToken(BaseInt),
		typeToken(BaseUInt), typeToken(BaseLong), typeToken(BaseULong),
		typeToken(BaseFloat), typeToken(BaseDouble), typeToken(BaseString),
	}
	assert.Equal(t, want, toks)
}

func TestLexNumbers(t *testing.T) {
	toks, attrs := lexAll(t, "42 -7 3.25 -0.5")
	want := []int{tokIntegerConstant, tokIntegerConstant,
		tokFloatConstant, tokFloatConstant}
	assert.Equal(t, want, toks)
	assert.Equal(t, []string{"42", "-7", "3.25", "-0.5"}, attrs)
}

func TestLexBooleansBecomeIntegers(t *testing.T) {
	toks, attrs := lexAll(t, "true false")
	assert.Equal(t, []int{tokIntegerConstant, tokIntegerConstant}, toks)
	assert.Equal(t, []string{"1", "0"}, attrs)
}

func TestLexStringEscapes(t *testing.T) {
	toks, attrs := lexAll(t, `"a\nb\tc\r\"\\"`)
	require.Equal(t, []int{tokStringConstant}, toks)
	assert.Equal(t, "a\nb\tc\r\"\\", attrs[0])
}

func TestLexOrdinaryCommentDiscarded(t *testing.T) {
	toks, _ := lexAll(t, "info // the rest vanishes\nMonster")
	assert.Equal(t, []int{tokInfo, tokIdentifier}, toks)
}

func TestLexDocComment(t *testing.T) {
	p := NewParser()
	p.source = []byte("\n/// first line\n/// second line\ninfo")
	p.line = 1
	require.NoError(t, p.next())
	assert.Equal(t, tokInfo, p.token)
	assert.Equal(t, " first line\n second line", p.docComment)
}

func TestLexDocCommentMustStartLine(t *testing.T) {
	err := lexError(t, "info /// not alone\n")
	assert.ErrorContains(t, err, "documentation comment should be on a line on its own")
}

func TestLexLineNumbersInErrors(t *testing.T) {
	err := lexError(t, "info\n\n$\n")
	assert.EqualError(t, err, "Line 3: Illegal character: $")
}

func TestLexErrors(t *testing.T) {
	cases := map[string]string{
		`"unterminated`: "Unterminated string constant",
		`"bad\qescape"`: "Unknown escape code in string constant",
		".5":            "Floating point constant can't start with \".\"",
		"\x01":          "Illegal character: code: 1",
	}
	for src, want := range cases {
		err := lexError(t, src)
		assert.ErrorContains(t, err, want, "source %q", src)
	}
}

func TestLexControlCharInString(t *testing.T) {
	err := lexError(t, "\"a\x01b\"")
	assert.ErrorContains(t, err, "Illegal character in string constant")
}
