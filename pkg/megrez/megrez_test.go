package megrez

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megrez-io/megrez-go/pkg/megrez/access"
)

const monsterSchema = `
namespace demo;

enum Color:byte { Red = 1, Blue = 4 }

info Monster {
	hp:short = 100;
	name:string;
	color:Color = Blue;
}
Main Monster;
`

func TestParseSchemaOnly(t *testing.T) {
	res, err := Parse(monsterSchema)
	require.NoError(t, err)
	assert.Nil(t, res.Payload)
	require.NotNil(t, res.Schema)
	assert.Equal(t, "Monster", res.Schema.Root)
	assert.Equal(t, []string{"demo"}, res.Schema.Namespace)

	monster := res.Schema.Struct("Monster")
	require.NotNil(t, monster)
	assert.False(t, monster.Fixed)
	require.Len(t, monster.Fields, 3)
	assert.Equal(t, "hp", monster.Fields[0].Name)
	assert.Equal(t, "short", monster.Fields[0].Type)
	assert.Equal(t, "100", monster.Fields[0].Default)
	assert.Equal(t, uint16(4), monster.Fields[0].Offset)
	assert.Equal(t, "Color", res.Schema.Enums[0].Name)
	assert.Equal(t, "4", monster.Fields[2].Default, "enum default resolved to its integer")
}

func TestParseWithPayload(t *testing.T) {
	res, err := Parse(monsterSchema + `{ hp:50, name:"grue" }`)
	require.NoError(t, err)
	require.NotNil(t, res.Payload)

	root := access.Root(res.Payload)
	assert.Equal(t, int16(50), root.Int16Field(4, 100))
	name, ok := root.StringField(6)
	require.True(t, ok)
	assert.Equal(t, "grue", name)
	assert.Equal(t, int8(4), root.Int8Field(8, 4))
}

func TestParseErrorSurface(t *testing.T) {
	res, err := Parse("info T { a:int; }\nMain T;\n{ b:1 }")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.EqualError(t, err, "Line 3: Unknown field: b")
}

func TestFingerprintIgnoresFormatting(t *testing.T) {
	a, err := Parse(monsterSchema)
	require.NoError(t, err)
	b, err := Parse("namespace demo;\n\n// comments vanish\nenum Color : byte { Red = 1 , Blue = 4 }\ninfo Monster { hp : short = 100 ; name : string ; color : Color = Blue ; }\nMain Monster ;")
	require.NoError(t, err)
	assert.Equal(t, a.Schema.Canonical(), b.Schema.Canonical())
	assert.Equal(t, a.Schema.Fingerprint(), b.Schema.Fingerprint())
}

func TestFingerprintSeparatesSchemas(t *testing.T) {
	a, err := Parse(`info T { x:int; } Main T;`)
	require.NoError(t, err)
	b, err := Parse(`info T { x:long; } Main T;`)
	require.NoError(t, err)
	assert.NotEqual(t, a.Schema.Fingerprint(), b.Schema.Fingerprint())
}

func TestTypeRendering(t *testing.T) {
	res, err := Parse(`
		union Any { A }
		info A { x:int; }
		struct V { x:float; }
		info T { v:[int]; names:[string]; pos:V; a:A; u:Any; tbls:[A]; }
	`)
	require.NoError(t, err)
	tt := res.Schema.Struct("T")
	require.NotNil(t, tt)
	byName := map[string]string{}
	for _, f := range tt.Fields {
		byName[f.Name] = f.Type
	}
	assert.Equal(t, "[int]", byName["v"])
	assert.Equal(t, "[string]", byName["names"])
	assert.Equal(t, "V", byName["pos"])
	assert.Equal(t, "A", byName["a"])
	assert.Equal(t, "Any", byName["u"])
	assert.Equal(t, "utype", byName["u_type"])
	assert.Equal(t, "[A]", byName["tbls"])
}
