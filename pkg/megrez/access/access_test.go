package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megrez-io/megrez-go/pkg/megrez"
	"github.com/megrez-io/megrez-go/pkg/megrez/access"
)

// Exercise the reader against a payload produced by the encoder rather
// than hand-rolled bytes; the encoder's own tests pin the wire layout.
func buildPayload(t *testing.T, src string) []byte {
	t.Helper()
	res, err := megrez.Parse(src)
	require.NoError(t, err)
	require.NotNil(t, res.Payload)
	return res.Payload
}

func TestScalarFieldsAndDefaults(t *testing.T) {
	buf := buildPayload(t, `
		info T { a:int = 3; b:ulong; c:double; d:bool; }
		Main T;
		{ b:18446744073709551615, c:2.5, d:true }`)
	root := access.Root(buf)
	assert.False(t, root.Has(4))
	assert.Equal(t, int32(3), root.Int32Field(4, 3))
	assert.Equal(t, uint64(18446744073709551615), root.Uint64Field(6, 0))
	assert.Equal(t, 2.5, root.Float64Field(8, 0))
	assert.True(t, root.BoolField(10, false))
}

func TestNestedTablesAndVectors(t *testing.T) {
	buf := buildPayload(t, `
		info Child { tag:string; }
		info T { kids:[Child]; favorite:Child; }
		Main T;
		{ kids:[ {tag:"a"}, {tag:"b"} ], favorite:{tag:"c"} }`)
	root := access.Root(buf)

	kids, ok := root.VectorField(4)
	require.True(t, ok)
	require.Equal(t, 2, kids.Len())
	tagA, _ := kids.TableAt(0).StringField(4)
	tagB, _ := kids.TableAt(1).StringField(4)
	assert.Equal(t, "a", tagA)
	assert.Equal(t, "b", tagB)

	fav, ok := root.TableField(6)
	require.True(t, ok)
	tagC, _ := fav.StringField(4)
	assert.Equal(t, "c", tagC)
}

func TestStructVectors(t *testing.T) {
	buf := buildPayload(t, `
		struct P { x:short; y:short; }
		info T { pts:[P]; }
		Main T;
		{ pts:[ {x:1, y:2}, {x:3, y:4} ] }`)
	root := access.Root(buf)
	pts, ok := root.VectorField(4)
	require.True(t, ok)
	require.Equal(t, 2, pts.Len())
	p0 := pts.StructAt(0, 4)
	p1 := pts.StructAt(1, 4)
	assert.Equal(t, int16(1), p0.Int16(0))
	assert.Equal(t, int16(2), p0.Int16(2))
	assert.Equal(t, int16(3), p1.Int16(0))
	assert.Equal(t, int16(4), p1.Int16(2))
}

func TestMissingOffsetFields(t *testing.T) {
	buf := buildPayload(t, `info T { s:string; v:[int]; } Main T; {}`)
	root := access.Root(buf)
	_, ok := root.StringField(4)
	assert.False(t, ok)
	_, ok = root.VectorField(6)
	assert.False(t, ok)
	_, ok = root.TableField(4)
	assert.False(t, ok)
}
