package wire

import (
	"errors"
	"fmt"
	"io"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// ErrIncomplete is returned by PeekMessageLength when buf does not yet hold a
// full BER TLV. Callers should read more bytes and retry; it is not a
// protocol error.
var ErrIncomplete = errors.New("wire: incomplete BER header")

// PeekMessageLength inspects the leading bytes of buf, which must begin with
// an LDAPMessage SEQUENCE tag, and reports the total number of bytes (tag +
// length + content) the encoded message occupies, once buf holds all of
// them. It decodes only the tag and length octets, so it can be called on a
// partially-filled read buffer: a buffer shorter than the header or than the
// whole message yields ErrIncomplete rather than an error, letting the
// caller distinguish "need more bytes" from "this is not BER".
//
// LDAP messages are always definite-length encoded (asn1-ber, like every
// other BER/DER LDAP codec, never emits the indefinite form), so this need
// not handle 0x80 ("indefinite length") as anything but malformed input.
func PeekMessageLength(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, ErrIncomplete
	}
	// Tag octet: LDAPMessage is always a universal constructed SEQUENCE
	// (tag 16), which fits the low tag number form (bits 0-4 != 0x1F), so
	// the tag is always exactly one byte.
	if buf[0]&0x1F == 0x1F {
		return 0, fmt.Errorf("wire: high-tag-number form not supported for LDAPMessage")
	}
	headerLen := 2
	first := buf[1]
	var contentLen int
	if first&0x80 == 0 {
		contentLen = int(first)
	} else {
		numLenBytes := int(first & 0x7F)
		if numLenBytes == 0 {
			return 0, fmt.Errorf("wire: indefinite-length BER is not supported")
		}
		if numLenBytes > 4 {
			return 0, fmt.Errorf("wire: BER length field too large (%d bytes)", numLenBytes)
		}
		if len(buf) < 2+numLenBytes {
			return 0, ErrIncomplete
		}
		for i := 0; i < numLenBytes; i++ {
			contentLen = contentLen<<8 | int(buf[2+i])
		}
		headerLen = 2 + numLenBytes
	}
	total := headerLen + contentLen
	if len(buf) < total {
		return 0, ErrIncomplete
	}
	return total, nil
}

// Message is a decoded LDAPMessage envelope: a message ID plus exactly one
// protocolOp child, carried as its raw BER packet so that bind.go/search.go/
// extended.go can interpret it according to ProtocolOp.Tag.
type Message struct {
	ID       uint32
	Op       *ber.Packet
	Controls *ber.Packet // nil if the message carried no controls
}

// DecodeMessage decodes exactly one LDAPMessage from buf. buf must hold at
// least the number of bytes reported by PeekMessageLength; trailing bytes
// beyond the message are ignored, so callers typically pass
// buf[:n] where n came from PeekMessageLength.
func DecodeMessage(buf []byte) (*Message, error) {
	packet := ber.DecodePacket(buf)
	if packet == nil {
		return nil, fmt.Errorf("wire: failed to decode LDAPMessage")
	}
	if len(packet.Children) < 2 {
		return nil, fmt.Errorf("wire: LDAPMessage has %d children, want at least 2", len(packet.Children))
	}
	idPacket := packet.Children[0]
	id, ok := idPacket.Value.(int64)
	if !ok {
		return nil, fmt.Errorf("wire: LDAPMessage.messageID is not an integer")
	}
	if id < 0 {
		return nil, fmt.Errorf("wire: LDAPMessage.messageID is negative")
	}
	msg := &Message{
		ID: uint32(id),
		Op: packet.Children[1],
	}
	if len(packet.Children) > 2 {
		msg.Controls = packet.Children[2]
	}
	return msg, nil
}

// Envelope wraps a protocolOp packet (built by bind.go/search.go/extended.go)
// in an LDAPMessage SEQUENCE with the given message ID and returns the
// wire bytes ready to write to the connection.
func Envelope(messageID uint32, op *ber.Packet) []byte {
	msg := ber.Encode(classUniversal, typeConstructed, ber.TagSequence, nil, "LDAPMessage")
	msg.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagInteger, int64(messageID), "MessageID"))
	msg.AppendChild(op)
	return msg.Bytes()
}

// ReadMessage reads exactly one full LDAPMessage from r, using peek to
// buffer across short reads. It is a convenience for callers that want
// blocking, whole-message semantics instead of driving PeekMessageLength
// themselves (the search iterator does the latter so that bytes read past
// one message stay buffered for the next).
func ReadMessage(r io.Reader) (*Message, error) {
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)
	for {
		n, err := PeekMessageLength(buf)
		if err == nil {
			for len(buf) < n {
				m, rerr := r.Read(chunk)
				if m > 0 {
					buf = append(buf, chunk[:m]...)
				}
				if rerr != nil {
					if m == 0 {
						return nil, rerr
					}
				}
			}
			return DecodeMessage(buf[:n])
		}
		if !errors.Is(err, ErrIncomplete) {
			return nil, err
		}
		m, rerr := r.Read(chunk)
		if m > 0 {
			buf = append(buf, chunk[:m]...)
		}
		if rerr != nil {
			if m == 0 {
				return nil, rerr
			}
		}
	}
}
