package wire

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// ldapVersion is the only protocol version this module speaks, RFC 4511 §4.2.
const ldapVersion = 3

// EncodeSimpleBindRequest builds a BindRequest protocolOp for the "simple"
// authentication choice (RFC 4511 §4.2): a plaintext username/password pair.
func EncodeSimpleBindRequest(username, password string) *ber.Packet {
	req := ber.Encode(classApplication, typeConstructed, TagBindRequest, nil, "BindRequest")
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagInteger, int64(ldapVersion), "version"))
	req.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, username, "name"))
	req.AppendChild(ber.NewString(classContext, typePrimitive, TagAuthSimple, password, "simple"))
	return req
}

// EncodeSaslBindRequest builds a BindRequest using the SASL authentication
// choice (RFC 4511 §4.2, RFC 4513 §5.2): a mechanism name plus an optional
// mechanism-specific credentials blob. bindDN is usually empty for SASL
// binds; the mechanism is expected to establish identity on its own.
func EncodeSaslBindRequest(bindDN, mechanism string, credentials []byte) *ber.Packet {
	req := ber.Encode(classApplication, typeConstructed, TagBindRequest, nil, "BindRequest")
	req.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagInteger, int64(ldapVersion), "version"))
	req.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, bindDN, "name"))

	sasl := ber.Encode(classContext, typeConstructed, TagAuthSasl, nil, "sasl")
	sasl.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, mechanism, "mechanism"))
	if credentials != nil {
		credPacket := ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, string(credentials), "credentials")
		credPacket.ByteValue = credentials
		sasl.AppendChild(credPacket)
	}
	req.AppendChild(sasl)
	return req
}

// LDAPResult mirrors the LDAPResult SEQUENCE shared by BindResponse,
// SearchResultDone, ExtendedResponse and every other non-search response
// PDU (RFC 4511 §4.1.9).
type LDAPResult struct {
	ResultCode        ResultCode
	MatchedDN         string
	DiagnosticMessage string
	Referral          []string
}

// BindResponse is a decoded BindResponse protocolOp (RFC 4511 §4.2.2): an
// LDAPResult plus an optional serverSaslCredentials field used by
// multi-step SASL mechanisms such as GSSAPI.
type BindResponse struct {
	LDAPResult
	ServerSaslCreds []byte
	HasServerSaslCreds bool
}

// DecodeLDAPResult parses the common LDAPResult prefix found in
// BindResponse, SearchResultDone and ExtendedResponse. extra returns
// whichever child packets followed the four mandatory LDAPResult fields,
// so callers can decode message-specific trailing fields (serverSaslCreds,
// responseName/responseValue).
func DecodeLDAPResult(op *ber.Packet) (LDAPResult, []*ber.Packet, error) {
	if len(op.Children) < 3 {
		return LDAPResult{}, nil, fmt.Errorf("wire: LDAPResult has %d children, want at least 3", len(op.Children))
	}
	code, ok := op.Children[0].Value.(int64)
	if !ok {
		return LDAPResult{}, nil, fmt.Errorf("wire: LDAPResult.resultCode is not an integer")
	}
	matchedDN, ok := op.Children[1].Value.(string)
	if !ok {
		return LDAPResult{}, nil, fmt.Errorf("wire: LDAPResult.matchedDN is not a string")
	}
	diagnostic, ok := op.Children[2].Value.(string)
	if !ok {
		return LDAPResult{}, nil, fmt.Errorf("wire: LDAPResult.diagnosticMessage is not a string")
	}
	result := LDAPResult{
		ResultCode:        ResultCode(code),
		MatchedDN:         matchedDN,
		DiagnosticMessage: diagnostic,
	}
	rest := op.Children[3:]
	if len(rest) > 0 && rest[0].Tag == 3 && rest[0].ClassType == classContext {
		for _, referral := range rest[0].Children {
			if s, ok := referral.Value.(string); ok {
				result.Referral = append(result.Referral, s)
			}
		}
		rest = rest[1:]
	}
	return result, rest, nil
}

// DecodeBindResponse parses a BindResponse protocolOp.
func DecodeBindResponse(op *ber.Packet) (*BindResponse, error) {
	result, rest, err := DecodeLDAPResult(op)
	if err != nil {
		return nil, fmt.Errorf("wire: decoding BindResponse: %w", err)
	}
	resp := &BindResponse{LDAPResult: result}
	if len(rest) > 0 && rest[0].Tag == 7 && rest[0].ClassType == classContext {
		resp.HasServerSaslCreds = true
		resp.ServerSaslCreds = rest[0].Data.Bytes()
	}
	return resp, nil
}

// EncodeUnbindRequest builds the UnbindRequest protocolOp, which RFC 4511
// §4.3 defines as `[APPLICATION 2] NULL` - no body, just the tag.
func EncodeUnbindRequest() *ber.Packet {
	return ber.Encode(classApplication, typePrimitive, TagUnbindRequest, nil, "UnbindRequest")
}
