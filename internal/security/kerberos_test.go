package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandshakePayloadEncodesSecLayerAndMaxSizeBigEndian(t *testing.T) {
	payload := handshakePayload(0x04, 0x00012345, nil)
	assert.Equal(t, []byte{0x04, 0x01, 0x23, 0x45}, payload)
}

func TestHandshakePayloadCarriesMaxSizeInLowerThreeOctets(t *testing.T) {
	payload := handshakePayload(1, 0x00ABCDEF, nil)
	assert.Equal(t, []byte{1, 0xAB, 0xCD, 0xEF}, payload)
}

func TestHandshakePayloadAppendsAuthzID(t *testing.T) {
	payload := handshakePayload(0, 0, []byte("admin@EXAMPLE.COM"))
	assert.Equal(t, byte(0), payload[0])
	assert.Equal(t, []byte{0, 0, 0}, payload[1:4])
	assert.Equal(t, "admin@EXAMPLE.COM", string(payload[4:]))
}

func TestHandshakePayloadWithoutAuthzIDHasNoTrailingBytes(t *testing.T) {
	payload := handshakePayload(0, 0, []byte{})
	assert.Len(t, payload, 4)
}
