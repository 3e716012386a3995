package wire

import (
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeExtendedRequestOmitsValueWhenNil(t *testing.T) {
	req := EncodeExtendedRequest(StartTLSOID, nil)
	require.Len(t, req.Children, 1)
	assert.Equal(t, StartTLSOID, req.Children[0].Value)
}

func TestEncodeExtendedRequestIncludesValueWhenSet(t *testing.T) {
	req := EncodeExtendedRequest("1.2.3.4", []byte("payload"))
	require.Len(t, req.Children, 2)
	assert.Equal(t, "payload", req.Children[1].Value)
}

func TestDecodeExtendedResponseWithNameAndValue(t *testing.T) {
	op := ber.Encode(classApplication, typeConstructed, TagExtendedResponse, nil, "ExtendedResponse")
	op.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagEnumerated, int64(ResultSuccess), "resultCode"))
	op.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, "", "diagnosticMessage"))
	op.AppendChild(ber.NewString(classContext, typePrimitive, TagExtendedResponseName, StartTLSOID, "responseName"))
	valuePacket := ber.NewString(classContext, typePrimitive, TagExtendedResponseValue, "", "responseValue")
	valuePacket.ByteValue = []byte{0x01, 0x02}
	op.AppendChild(valuePacket)

	resp, err := DecodeExtendedResponse(op)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, resp.ResultCode)
	require.True(t, resp.HasResponseName)
	assert.Equal(t, StartTLSOID, resp.ResponseName)
	require.True(t, resp.HasResponseValue)
	assert.Equal(t, []byte{0x01, 0x02}, resp.ResponseValue)
}

func TestDecodeExtendedResponseWithoutOptionalFields(t *testing.T) {
	op := ber.Encode(classApplication, typeConstructed, TagExtendedResponse, nil, "ExtendedResponse")
	op.AppendChild(ber.NewInteger(classUniversal, typePrimitive, ber.TagEnumerated, int64(ResultProtocolError), "resultCode"))
	op.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(classUniversal, typePrimitive, ber.TagOctetString, "unsupported operation", "diagnosticMessage"))

	resp, err := DecodeExtendedResponse(op)
	require.NoError(t, err)
	assert.Equal(t, ResultProtocolError, resp.ResultCode)
	assert.False(t, resp.HasResponseName)
	assert.False(t, resp.HasResponseValue)
}
