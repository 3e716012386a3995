package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerNegotiationDecodesBitmaskAndMaxBuffer(t *testing.T) {
	bitmask, max, err := parseServerNegotiation([]byte{0x04, 0x00, 0x10, 0x00})
	assert.NoError(t, err)
	assert.Equal(t, byte(0x04), bitmask)
	assert.Equal(t, uint32(0x1000), max)
}

func TestParseServerNegotiationRejectsWrongLength(t *testing.T) {
	_, _, err := parseServerNegotiation([]byte{0x04, 0x00, 0x10})
	assert.Error(t, err)
}

func TestParseServerNegotiationRejectsNonzeroBufferWithNoLayerOffered(t *testing.T) {
	_, _, err := parseServerNegotiation([]byte{0x00, 0x00, 0x10, 0x00})
	assert.ErrorIs(t, err, ErrNonzeroBufferSize)
}

func TestDecideSecurityLayerPicksConfidentialityOverPlainTCP(t *testing.T) {
	layer, err := decideSecurityLayer(false, byte(SecurityLayerNone)|byte(SecurityLayerConfidentiality))
	assert.NoError(t, err)
	assert.Equal(t, SecurityLayerConfidentiality, layer)
}

func TestDecideSecurityLayerPicksNoSecurityOverTLS(t *testing.T) {
	layer, err := decideSecurityLayer(true, byte(SecurityLayerNone)|byte(SecurityLayerConfidentiality))
	assert.NoError(t, err)
	assert.Equal(t, SecurityLayerNone, layer)
}

func TestDecideSecurityLayerFailsWhenServerDidNotOfferChosenLayer(t *testing.T) {
	_, err := decideSecurityLayer(false, byte(SecurityLayerNone))
	assert.True(t, errors.Is(err, ErrNoValidSecurityLayerOffered))
}

func TestNegotiatedBufferSizeIsTheMinimum(t *testing.T) {
	assert.Equal(t, uint32(100), negotiatedBufferSize(100, 65535))
	assert.Equal(t, uint32(65535), negotiatedBufferSize(1<<20, 65535))
}
