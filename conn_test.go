package ldapc

import (
	"net"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/smnsjas/go-ldapc/internal/wire"
)

// pipeStream adapts a net.Conn (typically one end of net.Pipe) to the
// Stream interface for tests, with a caller-chosen confidentiality marker.
type pipeStream struct {
	net.Conn
	confidential bool
}

func (p *pipeStream) Confidential() bool       { return p.confidential }
func (p *pipeStream) NeedsSecurityLayer() bool { return !p.confidential }
func (p *pipeStream) ChannelBindings() []byte  { return nil }
func (p *pipeStream) netConn() net.Conn        { return p.Conn }

// newTestConnPair returns a Conn wired to one end of an in-memory pipe and
// the raw net.Conn for the other end, which test bodies drive as a fake
// server: read the request with wire.ReadMessage, write a canned response
// with wire.Envelope.
func newTestConnPair(confidential bool) (*Conn[Unbound, ConfidentialStream], net.Conn) {
	client, server := net.Pipe()
	stream := &pipeStream{Conn: client, confidential: confidential}
	return NewUnboundConfidential(stream), server
}

func newTestConnPairNotConfidential() (*Conn[Unbound, NotConfidential], net.Conn) {
	client, server := net.Pipe()
	stream := &pipeStream{Conn: client, confidential: false}
	return newConn[Unbound, NotConfidential](stream, Unbound{}), server
}

// respondBindResponse reads one request off server and writes back a
// BindResponse with the given result code, echoing the request's message ID.
func respondBindResponse(server net.Conn, code wire.ResultCode, diagnostic string) error {
	msg, err := wire.ReadMessage(server)
	if err != nil {
		return err
	}
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagBindResponse, nil, "BindResponse")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(code), "resultCode"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, diagnostic, "diagnosticMessage"))
	_, err = server.Write(wire.Envelope(msg.ID, op))
	return err
}

// writeReferralBindResponse writes a BindResponse carrying a referral URI,
// for tests that exercise SimpleBindError.Referral.
func writeReferralBindResponse(server net.Conn, messageID uint32) error {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagBindResponse, nil, "BindResponse")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(wire.ResultReferral), "resultCode"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "try elsewhere", "diagnosticMessage"))
	referral := ber.Encode(ber.ClassContext, ber.TypeConstructed, 3, nil, "referral")
	referral.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "ldap://other.example.com/", "uri"))
	op.AppendChild(referral)
	_, err := server.Write(wire.Envelope(messageID, op))
	return err
}
