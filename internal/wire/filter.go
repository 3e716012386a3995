package wire

import ber "github.com/go-asn1-ber/asn1-ber"

// Filter-choice tag numbers, RFC 4511 §4.5.1.
const (
	FilterAnd             = 0
	FilterOr              = 1
	FilterNot             = 2
	FilterEqualityMatch   = 3
	FilterSubstrings      = 4
	FilterGreaterOrEqual  = 5
	FilterLessOrEqual     = 6
	FilterPresent         = 7
	FilterApproxMatch     = 8
	FilterExtensibleMatch = 9
)

// Substring-choice tag numbers within SubstringFilter.substrings, RFC 4511 §4.5.1.
const (
	SubstringInitial = 0
	SubstringAny     = 1
	SubstringFinal   = 2
)

// Filter is an LDAP search filter tree (RFC 4511 §4.5.1). Callers build one
// from the filter types the ldapc package re-exports and pass it to
// Search verbatim; this package only knows how to turn it into BER.
type Filter interface {
	encode() *ber.Packet
}

// Encode renders f as the Filter CHOICE packet used inside a SearchRequest.
func Encode(f Filter) *ber.Packet {
	return f.encode()
}

// And is the `(&...)` filter: every sub-filter must match.
type And struct{ Filters []Filter }

func (f And) encode() *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, FilterAnd, nil, "and")
	for _, sub := range f.Filters {
		p.AppendChild(sub.encode())
	}
	return p
}

// Or is the `(|...)` filter: at least one sub-filter must match.
type Or struct{ Filters []Filter }

func (f Or) encode() *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, FilterOr, nil, "or")
	for _, sub := range f.Filters {
		p.AppendChild(sub.encode())
	}
	return p
}

// Not is the `(!...)` filter: negates a single sub-filter.
type Not struct{ Filter Filter }

func (f Not) encode() *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, FilterNot, nil, "not")
	p.AppendChild(f.Filter.encode())
	return p
}

// attributeValueAssertion builds the common `type=value` SEQUENCE shared by
// EqualityMatch, GreaterOrEqual, LessOrEqual and ApproxMatch.
func attributeValueAssertion(tag int, description, attr, value string) *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, tag, nil, description)
	p.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, attr, "attributeDesc"))
	p.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, value, "assertionValue"))
	return p
}

// Equality is the `(attr=value)` filter.
type Equality struct{ Attribute, Value string }

func (f Equality) encode() *ber.Packet {
	return attributeValueAssertion(FilterEqualityMatch, "equalityMatch", f.Attribute, f.Value)
}

// GreaterOrEqual is the `(attr>=value)` filter.
type GreaterOrEqual struct{ Attribute, Value string }

func (f GreaterOrEqual) encode() *ber.Packet {
	return attributeValueAssertion(FilterGreaterOrEqual, "greaterOrEqual", f.Attribute, f.Value)
}

// LessOrEqual is the `(attr<=value)` filter.
type LessOrEqual struct{ Attribute, Value string }

func (f LessOrEqual) encode() *ber.Packet {
	return attributeValueAssertion(FilterLessOrEqual, "lessOrEqual", f.Attribute, f.Value)
}

// Approx is the `(attr~=value)` filter.
type Approx struct{ Attribute, Value string }

func (f Approx) encode() *ber.Packet {
	return attributeValueAssertion(FilterApproxMatch, "approxMatch", f.Attribute, f.Value)
}

// Present is the `(attr=*)` filter.
type Present struct{ Attribute string }

func (f Present) encode() *ber.Packet {
	return ber.NewString(classContext, typePrimitive, FilterPresent, f.Attribute, "present")
}

// Substrings is the `(attr=init*any*...*final)` filter. Initial and Final
// are encoded only when HasInitial and HasFinal are set, respectively; Any
// may hold zero or more pieces.
type Substrings struct {
	Attribute           string
	Initial             string
	Any                 []string
	Final               string
	HasInitial, HasFinal bool
}

func (f Substrings) encode() *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, FilterSubstrings, nil, "substrings")
	p.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, f.Attribute, "type"))
	seq := ber.Encode(classUniversal, typeConstructed, ber.TagSequence, nil, "substrings")
	if f.HasInitial {
		seq.AppendChild(ber.NewString(classContext, typePrimitive, SubstringInitial, f.Initial, "initial"))
	}
	for _, any := range f.Any {
		seq.AppendChild(ber.NewString(classContext, typePrimitive, SubstringAny, any, "any"))
	}
	if f.HasFinal {
		seq.AppendChild(ber.NewString(classContext, typePrimitive, SubstringFinal, f.Final, "final"))
	}
	p.AppendChild(seq)
	return p
}

// Extensible is the `(attr:dn:matchingRule:=value)` filter, RFC 4511's
// MatchingRuleAssertion. MatchingRule and Attribute are optional; at least
// one of them must be present per RFC 4511 §4.5.1 (this package does not
// enforce that - the server rejects a violation with ResultProtocolError).
type Extensible struct {
	MatchingRule string
	Attribute    string
	Value        string
	DNAttributes bool
}

func (f Extensible) encode() *ber.Packet {
	p := ber.Encode(classContext, typeConstructed, FilterExtensibleMatch, nil, "extensibleMatch")
	if f.MatchingRule != "" {
		p.AppendChild(ber.NewString(classContext, typePrimitive, 1, f.MatchingRule, "matchingRule"))
	}
	if f.Attribute != "" {
		p.AppendChild(ber.NewString(classContext, typePrimitive, 2, f.Attribute, "type"))
	}
	p.AppendChild(ber.NewString(classContext, typePrimitive, 3, f.Value, "matchValue"))
	if f.DNAttributes {
		p.AppendChild(ber.NewBoolean(classContext, typePrimitive, 4, true, "dnAttributes"))
	}
	return p
}
