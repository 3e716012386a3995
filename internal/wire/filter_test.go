package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterEqualityEncoding(t *testing.T) {
	p := Equality{Attribute: "uid", Value: "jdoe"}.encode()
	assert.Equal(t, classContext, p.ClassType)
	assert.Equal(t, FilterEqualityMatch, p.Tag)
	require.Len(t, p.Children, 2)
	assert.Equal(t, "uid", p.Children[0].Value)
	assert.Equal(t, "jdoe", p.Children[1].Value)
}

func TestFilterGreaterOrEqualAndLessOrEqualAndApprox(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		tag  int
	}{
		{"ge", GreaterOrEqual{Attribute: "age", Value: "21"}, FilterGreaterOrEqual},
		{"le", LessOrEqual{Attribute: "age", Value: "65"}, FilterLessOrEqual},
		{"approx", Approx{Attribute: "sn", Value: "Smith"}, FilterApproxMatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.f.encode()
			assert.Equal(t, tc.tag, p.Tag)
			require.Len(t, p.Children, 2)
		})
	}
}

func TestFilterPresentEncoding(t *testing.T) {
	p := Present{Attribute: "mail"}.encode()
	assert.Equal(t, classContext, p.ClassType)
	assert.Equal(t, FilterPresent, p.Tag)
	assert.Equal(t, "mail", p.Value)
}

func TestFilterAndOrNotNesting(t *testing.T) {
	inner := Equality{Attribute: "cn", Value: "Alice"}
	and := And{Filters: []Filter{inner, Present{Attribute: "mail"}}}
	p := and.encode()
	assert.Equal(t, FilterAnd, p.Tag)
	require.Len(t, p.Children, 2)

	or := Or{Filters: []Filter{inner}}
	assert.Equal(t, FilterOr, or.encode().Tag)

	not := Not{Filter: inner}
	notPacket := not.encode()
	assert.Equal(t, FilterNot, notPacket.Tag)
	require.Len(t, notPacket.Children, 1)
}

func TestSubstringsEncodingOmitsUnsetEnds(t *testing.T) {
	f := Substrings{
		Attribute: "cn",
		Any:       []string{"mid"},
	}
	p := f.encode()
	require.Len(t, p.Children, 2)
	seq := p.Children[1]
	require.Len(t, seq.Children, 1, "no initial/final children when unset")
	assert.Equal(t, SubstringAny, seq.Children[0].Tag)
	assert.Equal(t, "mid", seq.Children[0].Value)
}

func TestSubstringsEncodingWithInitialAndFinal(t *testing.T) {
	f := Substrings{
		Attribute:  "cn",
		Initial:    "Al",
		HasInitial: true,
		Any:        []string{"ic"},
		Final:      "e",
		HasFinal:   true,
	}
	seq := f.encode().Children[1]
	require.Len(t, seq.Children, 3)
	assert.Equal(t, SubstringInitial, seq.Children[0].Tag)
	assert.Equal(t, SubstringAny, seq.Children[1].Tag)
	assert.Equal(t, SubstringFinal, seq.Children[2].Tag)
}

func TestExtensibleEncodingOmitsEmptyFields(t *testing.T) {
	f := Extensible{Value: "Smith"}
	p := f.encode()
	require.Len(t, p.Children, 1, "only matchValue when MatchingRule and Attribute are empty")
	assert.Equal(t, "Smith", p.Children[0].Value)
}

func TestExtensibleEncodingWithAllFields(t *testing.T) {
	f := Extensible{
		MatchingRule: "caseExactMatch",
		Attribute:    "cn",
		Value:        "Alice",
		DNAttributes: true,
	}
	p := f.encode()
	require.Len(t, p.Children, 4)
	assert.Equal(t, "caseExactMatch", p.Children[0].Value)
	assert.Equal(t, "cn", p.Children[1].Value)
	assert.Equal(t, "Alice", p.Children[2].Value)
	assert.Equal(t, true, p.Children[3].Value)
}
