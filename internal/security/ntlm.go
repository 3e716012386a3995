package security

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/Azure/go-ntlmssp"
	ntlmcbt "github.com/smnsjas/go-ntlm-cbt"
)

// NTLMCredentials are the identity NTLMProvider authenticates as.
type NTLMCredentials struct {
	Domain   string
	Username string
	Password string
}

// NTLMProvider implements Provider for the NTLM mechanism, with optional
// Channel Binding Tokens (RFC 5929's NTLM analogue, MS-NLMP §3.1.5.1)
// derived from a TLS server certificate.
//
// RFC 4511's SASL mechanism registry has no NTLM entry, and RFC 2222/4422
// do not define one either: NTLM is not a usable LDAP bind mechanism, it
// is only ever layered under a different transport's auth header (as the
// teacher's WSMan client uses it). This provider exists and is tested for
// completeness of the security-provider surface (design note, DESIGN.md),
// but no bind entry point in this module constructs one.
type NTLMProvider struct {
	creds           NTLMCredentials
	channelBindings *ntlmcbt.GSSChannelBindings
	lastChallenge   []byte
	complete        bool
}

// NewNTLMProvider creates a provider for the given credentials. Call
// WithChannelBinding afterwards to derive a CBT from a TLS peer
// certificate.
func NewNTLMProvider(creds NTLMCredentials) *NTLMProvider {
	return &NTLMProvider{creds: creds}
}

// WithChannelBinding computes a Channel Binding Token from cert's
// tls-server-end-point hash (RFC 5929 §4.1) and attaches it to subsequent
// Step calls, protecting the handshake against NTLM relay.
func (p *NTLMProvider) WithChannelBinding(cert *x509.Certificate) *NTLMProvider {
	p.channelBindings = ntlmcbt.ComputeTLSServerEndpoint(cert)
	return p
}

func (p *NTLMProvider) Complete() bool { return p.complete }

// Step produces the Negotiate message on the first call, and the
// Authenticate message (with CBT folded in, if configured) once given
// the server's Challenge message.
func (p *NTLMProvider) Step(_ context.Context, serverToken []byte) ([]byte, bool, error) {
	if len(serverToken) == 0 {
		negotiate, err := ntlmssp.NewNegotiateMessage(p.creds.Domain, "")
		if err != nil {
			return nil, false, fmt.Errorf("security: build NTLM negotiate message: %w", err)
		}
		return negotiate, true, nil
	}

	p.lastChallenge = serverToken

	if p.channelBindings != nil {
		negotiator := ntlmcbt.NewNegotiator(p.channelBindings)
		username := p.creds.Username
		if p.creds.Domain != "" {
			username = p.creds.Domain + "\\" + p.creds.Username
		}
		authenticate, err := negotiator.ChallengeResponse(serverToken, username, p.creds.Password)
		if err != nil {
			return nil, false, fmt.Errorf("security: build NTLM authenticate message with CBT: %w", err)
		}
		p.complete = true
		return authenticate, false, nil
	}

	authenticate, err := ntlmssp.ProcessChallenge(serverToken, p.creds.Username, p.creds.Password)
	if err != nil {
		return nil, false, fmt.Errorf("security: build NTLM authenticate message: %w", err)
	}
	p.complete = true
	return authenticate, false, nil
}

func (p *NTLMProvider) Close() error {
	p.lastChallenge = nil
	return nil
}
