package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNTLMProviderStartsIncomplete(t *testing.T) {
	p := NewNTLMProvider(NTLMCredentials{Domain: "EXAMPLE", Username: "jdoe", Password: "secret"})
	assert.False(t, p.Complete())
}

func TestNTLMProviderFirstStepReturnsNegotiateAndContinues(t *testing.T) {
	p := NewNTLMProvider(NTLMCredentials{Domain: "EXAMPLE", Username: "jdoe", Password: "secret"})
	token, continueNeeded, err := p.Step(nil, nil)
	assert.NoError(t, err)
	assert.True(t, continueNeeded)
	assert.NotEmpty(t, token)
	assert.False(t, p.Complete())
}

func TestNTLMProviderCloseClearsLastChallenge(t *testing.T) {
	p := NewNTLMProvider(NTLMCredentials{Domain: "EXAMPLE", Username: "jdoe", Password: "secret"})
	_, _, err := p.Step(nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.Nil(t, p.lastChallenge)
}
