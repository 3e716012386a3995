package wire

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// StartTLSOID is the LDAP StartTLS extended operation's requestName,
// RFC 4511 §4.14.1 / RFC 4346.
const StartTLSOID = "1.3.6.1.4.1.1466.20037"

// EncodeExtendedRequest builds an ExtendedRequest protocolOp, RFC 4511 §4.12.
// value is nil when the extended operation carries no requestValue (as
// StartTLS does not).
func EncodeExtendedRequest(name string, value []byte) *ber.Packet {
	req := ber.Encode(classApplication, typeConstructed, TagExtendedRequest, nil, "ExtendedRequest")
	req.AppendChild(ber.NewString(classContext, typePrimitive, TagExtendedRequestName, name, "requestName"))
	if value != nil {
		req.AppendChild(ber.NewString(classContext, typePrimitive, TagExtendedRequestValue, string(value), "requestValue"))
	}
	return req
}

// ExtendedResponse is a decoded ExtendedResponse protocolOp, RFC 4511 §4.12.
type ExtendedResponse struct {
	LDAPResult
	ResponseName  string
	HasResponseName bool
	ResponseValue []byte
	HasResponseValue bool
}

// DecodeExtendedResponse parses an ExtendedResponse protocolOp.
func DecodeExtendedResponse(op *ber.Packet) (*ExtendedResponse, error) {
	result, rest, err := DecodeLDAPResult(op)
	if err != nil {
		return nil, fmt.Errorf("wire: decoding ExtendedResponse: %w", err)
	}
	resp := &ExtendedResponse{LDAPResult: result}
	for _, field := range rest {
		switch {
		case field.ClassType == classContext && field.Tag == TagExtendedResponseName:
			resp.HasResponseName = true
			if s, ok := field.Value.(string); ok {
				resp.ResponseName = s
			} else {
				resp.ResponseName = string(field.ByteValue)
			}
		case field.ClassType == classContext && field.Tag == TagExtendedResponseValue:
			resp.HasResponseValue = true
			resp.ResponseValue = field.ByteValue
		}
	}
	return resp, nil
}
