package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Schema {
	return &Schema{
		Namespace: []string{"demo", "game"},
		Enums: []*Enum{{
			Name:       "Color",
			Underlying: "byte",
			Values:     []EnumValue{{Name: "Red", Value: 1}, {Name: "Blue", Value: 4}},
		}},
		Structs: []*Struct{{
			Name:     "Monster",
			MinAlign: 1,
			Fields: []Field{
				{Name: "hp", Type: "short", Default: "100", Offset: 4},
				{Name: "name", Type: "string", Default: "0", Offset: 6},
			},
		}},
		Root: "Monster",
	}
}

func TestCanonicalRendering(t *testing.T) {
	got := sample().Canonical()
	want := "namespace demo.game;\n" +
		"enum Color:byte{Red=1,Blue=4}\n" +
		"info Monster{hp:short=100@4;name:string=0@6}\n" +
		"Main Monster;\n"
	assert.Equal(t, want, got)
}

func TestFingerprintStable(t *testing.T) {
	a := sample().Fingerprint()
	b := sample().Fingerprint()
	assert.Equal(t, a, b)

	changed := sample()
	changed.Structs[0].Fields[0].Default = "50"
	assert.NotEqual(t, a, changed.Fingerprint())
}

func TestLookups(t *testing.T) {
	s := sample()
	require.NotNil(t, s.Struct("Monster"))
	assert.Nil(t, s.Struct("Nope"))
	require.NotNil(t, s.Enum("Color"))
	assert.Nil(t, s.Enum("Nope"))
}
