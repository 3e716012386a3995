package security

import (
	"encoding/binary"
	"errors"
)

// SecurityLayer is the RFC 4752 §3.1 security-layer selection octet. Only
// the two values this client ever offers or selects are named; the
// integrity-only bit (0x02) is never offered, per the wire vocabulary this
// module exposes.
type SecurityLayer byte

const (
	SecurityLayerNone          SecurityLayer = 0x01
	SecurityLayerConfidentiality SecurityLayer = 0x04
)

// NegotiationResult is what a successful NegotiateSecurityLayer call
// produces: the wrapped reply to send back to the server, the layer this
// client selected, and the buffer size negotiated for it.
type NegotiationResult struct {
	Reply         []byte
	Layer         SecurityLayer
	MaxBufferSize uint32
}

// ErrNonzeroBufferSize is returned when the server's negotiation message
// offers no security layer (offer_bitmask == 0) but names a nonzero
// maximum buffer size, which RFC 4752 §3.1 does not allow.
var ErrNonzeroBufferSize = errors.New("security: server advertised no security layer but a nonzero buffer size")

// ErrNoValidSecurityLayerOffered is returned when the server's offered
// layer bitmask does not include the layer this client decided to select.
var ErrNoValidSecurityLayerOffered = errors.New("security: server did not offer the security layer this client selected")

// DecryptError wraps a failure to GSS-unwrap the server's negotiation
// message.
type DecryptError struct{ Err error }

func (e *DecryptError) Error() string { return "security: decrypt negotiation data: " + e.Err.Error() }
func (e *DecryptError) Unwrap() error { return e.Err }

// EncryptError wraps a failure to GSS-wrap this client's negotiation reply.
type EncryptError struct{ Err error }

func (e *EncryptError) Error() string { return "security: encrypt negotiation data: " + e.Err.Error() }
func (e *EncryptError) Unwrap() error { return e.Err }

// ChannelBindingError wraps a failure that occurred while folding
// channel-binding bytes into the AP-REQ authenticator checksum.
type ChannelBindingError struct{ Err error }

func (e *ChannelBindingError) Error() string {
	return "security: failed to get channel bindings: " + e.Err.Error()
}
func (e *ChannelBindingError) Unwrap() error { return e.Err }

// parseServerNegotiation decodes the 4-octet cleartext negotiation payload
// into its offer bitmask and 3-octet maximum buffer size (RFC 4752 §3.1,
// spec step 3.2: "Server max buffer = u32 big-endian of [0, hi, mid, lo]").
func parseServerNegotiation(payload []byte) (offerBitmask byte, serverMaxBuffer uint32, err error) {
	if len(payload) != 4 {
		return 0, 0, errors.New("negotiation payload must be exactly 4 octets")
	}
	offerBitmask = payload[0]
	serverMaxBuffer = binary.BigEndian.Uint32([]byte{0, payload[1], payload[2], payload[3]})
	if offerBitmask == 0 && serverMaxBuffer != 0 {
		return 0, 0, ErrNonzeroBufferSize
	}
	return offerBitmask, serverMaxBuffer, nil
}

// decideSecurityLayer implements spec step 3.4: pick NoSecurity when the
// transport is already confidential (TLS), else pick Confidentiality; fail
// if the server's offer bitmask doesn't include the chosen layer.
func decideSecurityLayer(streamConfidential bool, offerBitmask byte) (SecurityLayer, error) {
	layer := SecurityLayerConfidentiality
	if streamConfidential {
		layer = SecurityLayerNone
	}
	if offerBitmask&byte(layer) == 0 {
		return 0, ErrNoValidSecurityLayerOffered
	}
	return layer, nil
}

// negotiatedBufferSize implements spec step 3.5: min(server_max, caller_max).
func negotiatedBufferSize(serverMax, callerMax uint32) uint32 {
	if serverMax < callerMax {
		return serverMax
	}
	return callerMax
}
