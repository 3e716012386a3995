package ldapc

import "github.com/smnsjas/go-ldapc/internal/wire"

// RawEntry is the server's SearchResultEntry translated into plain Go
// values, before per-record mapping (design §3): a DN plus an ordered list
// of attributes, each an ordered list of octet-string values in server
// wire order. Duplicate attribute names within one entry are preserved as
// separate Attribute entries rather than merged or rejected (§9).
type RawEntry struct {
	DN         string
	Attributes []Attribute
}

// Attribute is one `type: values` pair from a directory entry.
type Attribute struct {
	Type   string
	Values [][]byte
}

// Values returns the values of the first attribute whose Type matches name
// under the comparison rule decided in DESIGN.md (ASCII case-insensitive,
// per RFC 4512's attribute-description grammar), or nil if none match.
func (e RawEntry) Values(name string) [][]byte {
	for _, attr := range e.Attributes {
		if attributeNamesEqual(attr.Type, name) {
			return attr.Values
		}
	}
	return nil
}

func attributeNamesEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if asciiLower(a[i]) != asciiLower(b[i]) {
			return false
		}
	}
	return true
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func rawEntryFromWire(src *wire.SearchResultEntry) RawEntry {
	entry := RawEntry{DN: src.ObjectName}
	for _, attr := range src.Attributes {
		entry.Attributes = append(entry.Attributes, Attribute{Type: attr.Type, Values: attr.Values})
	}
	return entry
}
