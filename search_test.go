package ldapc

import (
	"net"
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/smnsjas/go-ldapc/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSearchResultEntry(server net.Conn, messageID uint32, dn string, attrs []wire.PartialAttribute) error {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagSearchResultEntry, nil, "SearchResultEntry")
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, dn, "objectName"))
	attrsPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "attributes")
	for _, a := range attrs {
		attrPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "partialAttribute")
		attrPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, a.Type, "type"))
		valsPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, "vals")
		for _, v := range a.Values {
			valPacket := ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(v), "value")
			valPacket.ByteValue = v
			valsPacket.AppendChild(valPacket)
		}
		attrPacket.AppendChild(valsPacket)
		attrsPacket.AppendChild(attrPacket)
	}
	op.AppendChild(attrsPacket)
	_, err := server.Write(wire.Envelope(messageID, op))
	return err
}

func writeSearchResultDone(server net.Conn, messageID uint32, code wire.ResultCode, diagnostic string) error {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagSearchResultDone, nil, "SearchResultDone")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(code), "resultCode"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, diagnostic, "diagnosticMessage"))
	_, err := server.Write(wire.Envelope(messageID, op))
	return err
}

func writeSearchResultReference(server net.Conn, messageID uint32, uris ...string) error {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagSearchResultReference, nil, "SearchResultReference")
	for _, uri := range uris {
		op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, uri, "uri"))
	}
	_, err := server.Write(wire.Envelope(messageID, op))
	return err
}

func TestSearchRawEntryDecodesAllEntriesThenDone(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() {
		msg, err := wire.ReadMessage(server)
		if err != nil {
			errc <- err
			return
		}
		if err := writeSearchResultEntry(server, msg.ID, "cn=Alice,dc=example,dc=com", []wire.PartialAttribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice")}},
		}); err != nil {
			errc <- err
			return
		}
		if err := writeSearchResultReference(server, msg.ID, "ldap://other.example.com/"); err != nil {
			errc <- err
			return
		}
		if err := writeSearchResultEntry(server, msg.ID, "cn=Bob,dc=example,dc=com", []wire.PartialAttribute{
			{Type: "cn", Values: [][]byte{[]byte("Bob")}},
		}); err != nil {
			errc <- err
			return
		}
		errc <- writeSearchResultDone(server, msg.ID, wire.ResultSuccess, "")
	}()

	results, err := Search[RawEntry](conn, "dc=example,dc=com", ScopeWholeSubtree, NeverDerefAliases, Present{Attribute: "objectClass"})
	require.NoError(t, err)

	var dns []string
	for entry, entryErr, ok := results.Next(); ok; entry, entryErr, ok = results.Next() {
		require.NoError(t, entryErr)
		dns = append(dns, entry.DN)
	}
	require.NoError(t, results.Err())
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"cn=Alice,dc=example,dc=com", "cn=Bob,dc=example,dc=com"}, dns)
}

func TestSearchTerminatesOnNonSuccessDone(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() {
		msg, err := wire.ReadMessage(server)
		if err != nil {
			errc <- err
			return
		}
		errc <- writeSearchResultDone(server, msg.ID, wire.ResultSizeLimitExceeded, "too many entries")
	}()

	results, err := Search[RawEntry](conn, "dc=example,dc=com", ScopeWholeSubtree, NeverDerefAliases, Present{Attribute: "objectClass"})
	require.NoError(t, err)

	_, entryErr, ok := results.Next()
	require.True(t, ok)
	require.Error(t, entryErr)
	var searchErr *SearchResultError
	require.ErrorAs(t, entryErr, &searchErr)
	assert.Equal(t, searchKindSizeLimitExceeded, searchErr.Kind)
	require.NoError(t, <-errc)

	_, _, ok = results.Next()
	assert.False(t, ok)
}

func TestSearchMappedEntryUsesDescriptorAttributes(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() {
		msg, err := wire.ReadMessage(server)
		if err != nil {
			errc <- err
			return
		}
		if err := writeSearchResultEntry(server, msg.ID, "cn=Alice,dc=example,dc=com", []wire.PartialAttribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice")}},
			{Type: "mail", Values: [][]byte{[]byte("alice@example.com")}},
			{Type: "isAdmin", Values: [][]byte{[]byte("TRUE")}},
		}); err != nil {
			errc <- err
			return
		}
		errc <- writeSearchResultDone(server, msg.ID, wire.ResultSuccess, "")
	}()

	results, err := Search[person](conn, "dc=example,dc=com", ScopeWholeSubtree, NeverDerefAliases, Present{Attribute: "objectClass"})
	require.NoError(t, err)

	entry, entryErr, ok := results.Next()
	require.True(t, ok)
	require.NoError(t, entryErr)
	assert.Equal(t, "Alice", entry.CN)
	assert.True(t, entry.Admin)
	require.NoError(t, <-errc)
}
