package wire

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Scope is the SearchRequest.scope ENUMERATED, RFC 4511 §4.5.1.
type Scope int64

const (
	ScopeBaseObject   Scope = 0
	ScopeSingleLevel  Scope = 1
	ScopeWholeSubtree Scope = 2
)

// DerefAliases is the SearchRequest.derefAliases ENUMERATED, RFC 4511 §4.5.1.
type DerefAliases int64

const (
	NeverDerefAliases   DerefAliases = 0
	DerefInSearching    DerefAliases = 1
	DerefFindingBaseObj DerefAliases = 2
	DerefAlways         DerefAliases = 3
)

// SearchRequest holds everything needed to build a SearchRequest protocolOp,
// RFC 4511 §4.5.1. SizeLimit and TimeLimit of 0 mean "no client-requested
// limit"; TypesOnly requests attribute types without values.
type SearchRequest struct {
	BaseObject   string
	Scope        Scope
	DerefAliases DerefAliases
	SizeLimit    int64
	TimeLimit    int64
	TypesOnly    bool
	Filter       Filter
	Attributes   []string
}

// EncodeSearchRequest builds the SearchRequest protocolOp.
func EncodeSearchRequest(r SearchRequest) *ber.Packet {
	req := ber.Encode(classApplication, typeConstructed, TagSearchRequest, nil, "SearchRequest")
	req.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, r.BaseObject, "baseObject"))
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagEnumerated, int64(r.Scope), "scope"))
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagEnumerated, int64(r.DerefAliases), "derefAliases"))
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagInteger, r.SizeLimit, "sizeLimit"))
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagInteger, r.TimeLimit, "timeLimit"))
	req.AppendChild(ber.NewBoolean(classUniversal, typePrimitive, ber.TagBoolean, r.TypesOnly, "typesOnly"))
	if r.Filter != nil {
		req.AppendChild(r.Filter.encode())
	} else {
		req.AppendChild(Present{Attribute: "objectClass"}.encode())
	}
	attrs := ber.Encode(classUniversal, typeConstructed, ber.TagSequence, nil, "attributes")
	for _, a := range r.Attributes {
		attrs.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, a, "attribute"))
	}
	req.AppendChild(attrs)
	return req
}

// SearchResultEntry is a decoded SearchResultEntry protocolOp, RFC 4511 §4.5.2.
type SearchResultEntry struct {
	ObjectName string
	Attributes []PartialAttribute
}

// PartialAttribute is one `type: values` pair from a SearchResultEntry.
type PartialAttribute struct {
	Type   string
	Values [][]byte
}

// DecodeSearchResultEntry parses a SearchResultEntry protocolOp.
func DecodeSearchResultEntry(op *ber.Packet) (*SearchResultEntry, error) {
	if len(op.Children) != 2 {
		return nil, fmt.Errorf("wire: SearchResultEntry has %d children, want 2", len(op.Children))
	}
	dn, ok := op.Children[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("wire: SearchResultEntry.objectName is not a string")
	}
	entry := &SearchResultEntry{ObjectName: dn}
	for _, attrPacket := range op.Children[1].Children {
		if len(attrPacket.Children) != 2 {
			return nil, fmt.Errorf("wire: PartialAttribute has %d children, want 2", len(attrPacket.Children))
		}
		name, ok := attrPacket.Children[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("wire: PartialAttribute.type is not a string")
		}
		attr := PartialAttribute{Type: name}
		for _, valuePacket := range attrPacket.Children[1].Children {
			attr.Values = append(attr.Values, valuePacket.ByteValue)
		}
		entry.Attributes = append(entry.Attributes, attr)
	}
	return entry, nil
}

// DecodeSearchResultReference parses a SearchResultReference protocolOp,
// RFC 4511 §4.5.3: a SEQUENCE OF LDAP URLs.
func DecodeSearchResultReference(op *ber.Packet) ([]string, error) {
	refs := make([]string, 0, len(op.Children))
	for _, child := range op.Children {
		s, ok := child.Value.(string)
		if !ok {
			return nil, fmt.Errorf("wire: SearchResultReference entry is not a string")
		}
		refs = append(refs, s)
	}
	return refs, nil
}

// DecodeSearchResultDone parses a SearchResultDone protocolOp, which is a
// bare LDAPResult (RFC 4511 §4.5.2).
func DecodeSearchResultDone(op *ber.Packet) (LDAPResult, error) {
	result, _, err := DecodeLDAPResult(op)
	if err != nil {
		return LDAPResult{}, fmt.Errorf("wire: decoding SearchResultDone: %w", err)
	}
	return result, nil
}
