//go:build windows

package security

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/binary"
	"fmt"

	"github.com/alexbrainman/sspi"
	"github.com/alexbrainman/sspi/kerberos"
)

// SSPIProvider implements Provider for RFC 4752's GSSAPI mechanism using
// Windows' native SSPI, giving single-sign-on against Active Directory
// with the logged-on user's credentials. Like KerberosProvider, it folds
// RFC 5929 channel-binding bytes into its security context when
// NewSSPIProviderWithChannelBinding supplies them.
type SSPIProvider struct {
	creds           *sspi.Credentials
	ctx             *kerberos.ClientContext
	targetSPN       string
	channelBindings []byte
	complete        bool

	negotiatedSecLayer SecurityLayer
	negotiatedMaxSize  uint32
}

// NewSSPIProvider acquires the current logged-on user's credential handle
// for targetSPN (an LDAP service principal).
func NewSSPIProvider(targetSPN string) (*SSPIProvider, error) {
	creds, err := kerberos.AcquireCurrentUserCredentials()
	if err != nil {
		return nil, fmt.Errorf("security: acquire current user credentials: %w", err)
	}
	return &SSPIProvider{creds: creds, targetSPN: targetSPN}, nil
}

// NewSSPIProviderWithChannelBinding is NewSSPIProvider plus an RFC 5929
// tls-server-end-point channel binding derived from the TLS server's leaf
// certificate.
func NewSSPIProviderWithChannelBinding(targetSPN string, cert *x509.Certificate) (*SSPIProvider, error) {
	p, err := NewSSPIProvider(targetSPN)
	if err != nil {
		return nil, err
	}
	hash := certificateEndPointHash(cert)
	if hash == nil {
		return nil, fmt.Errorf("security: unsupported certificate signature algorithm for channel binding")
	}
	binding := append([]byte("tls-server-end-point:"), hash...)
	p.channelBindings = secChannelBindingsStructure(binding)
	return p, nil
}

func (p *SSPIProvider) Complete() bool { return p.complete }

// Step initiates or advances the SSPI security context. See RFC 4752 §3.1.
func (p *SSPIProvider) Step(_ context.Context, serverToken []byte) ([]byte, bool, error) {
	const iscFlags = sspi.ISC_REQ_INTEGRITY | sspi.ISC_REQ_CONFIDENTIALITY | sspi.ISC_REQ_MUTUAL_AUTH

	if serverToken == nil {
		var ctx *kerberos.ClientContext
		var completed bool
		var output []byte
		var err error
		if len(p.channelBindings) > 0 {
			ctx, completed, output, err = kerberos.NewClientContextWithChannelBindings(p.creds, p.targetSPN, iscFlags, p.channelBindings)
		} else {
			ctx, completed, output, err = kerberos.NewClientContextWithFlags(p.creds, p.targetSPN, iscFlags)
		}
		if err != nil {
			return nil, false, fmt.Errorf("security: initialize security context: %w", err)
		}
		p.ctx = ctx
		p.complete = completed
		return output, !completed, nil
	}

	completed, output, err := p.ctx.Update(serverToken)
	if err != nil {
		return nil, false, fmt.Errorf("security: update security context: %w", err)
	}
	if err := p.ctx.VerifyFlags(); err != nil {
		return nil, false, fmt.Errorf("security: verify security context flags: %w", err)
	}
	p.complete = completed
	return output, !completed, nil
}

// NegotiateSecurityLayer implements the RFC 4752 §3.1 security-layer
// handshake over SSPI's DecryptMessage/EncryptMessage. See
// KerberosProvider.NegotiateSecurityLayer for the shared decision logic
// (design §4.4.3 step 3.4): NoSecurity when streamConfidential, else
// Confidentiality, with min(server_max, callerMaxBufferSize) negotiated.
func (p *SSPIProvider) NegotiateSecurityLayer(serverToken []byte, authzID string, streamConfidential bool, callerMaxBufferSize uint32) (*NegotiationResult, error) {
	const wrapNoEncrypt = 0x80000001 // SECQOP_WRAP_NO_ENCRYPT

	_, payload, err := p.ctx.DecryptMessage(serverToken, 0)
	if err != nil {
		return nil, &DecryptError{Err: err}
	}
	offerBitmask, serverMaxBuffer, err := parseServerNegotiation(payload)
	if err != nil {
		return nil, err
	}

	layer, err := decideSecurityLayer(streamConfidential, offerBitmask)
	if err != nil {
		return nil, err
	}
	maxSize := negotiatedBufferSize(serverMaxBuffer, callerMaxBufferSize)

	reply, err := p.ctx.EncryptMessage(handshakePayload(byte(layer), maxSize, []byte(authzID)), wrapNoEncrypt, 0)
	if err != nil {
		return nil, &EncryptError{Err: err}
	}

	p.negotiatedSecLayer = layer
	p.negotiatedMaxSize = maxSize
	return &NegotiationResult{Reply: reply, Layer: layer, MaxBufferSize: maxSize}, nil
}

// Wrap seals a buffer of outbound plaintext with the negotiated SSPI
// security context.
func (p *SSPIProvider) Wrap(plaintext []byte) ([]byte, error) {
	reply, err := p.ctx.EncryptMessage(plaintext, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("security: wrap: %w", err)
	}
	return reply, nil
}

// Unwrap opens a buffer of inbound ciphertext with the negotiated SSPI
// security context.
func (p *SSPIProvider) Unwrap(ciphertext []byte) ([]byte, error) {
	_, payload, err := p.ctx.DecryptMessage(ciphertext, 0)
	if err != nil {
		return nil, fmt.Errorf("security: unwrap: %w", err)
	}
	return payload, nil
}

// MaxWrappedSize returns the receive-buffer size negotiated in
// NegotiateSecurityLayer.
func (p *SSPIProvider) MaxWrappedSize() uint32 { return p.negotiatedMaxSize }

func (p *SSPIProvider) Close() error {
	if p.ctx != nil {
		_ = p.ctx.Release()
	}
	return p.creds.Release()
}

// secChannelBindingsStructure builds the Windows SEC_CHANNEL_BINDINGS
// structure SSPI expects, grounded on the equivalent helper in an LDAP
// GSSAPI/SSPI client (createChannelBindingsStructure).
func secChannelBindingsStructure(applicationData []byte) []byte {
	const headerSize = 32
	buf := make([]byte, headerSize+len(applicationData))
	binary.LittleEndian.PutUint32(buf[24:], uint32(len(applicationData)))
	binary.LittleEndian.PutUint32(buf[28:], uint32(headerSize))
	copy(buf[headerSize:], applicationData)
	return buf
}

// certificateEndPointHash is this package's counterpart of the ldapc
// package's TLS channel-binding hash selection (stream.go), written in
// terms of crypto.Hash for parity with the SSPI client this is grounded
// on. It also maps the RSA-PSS variants to their own hash, and returns nil
// for a signature algorithm it does not list.
func certificateEndPointHash(cert *x509.Certificate) []byte {
	var hashFunc crypto.Hash
	switch cert.SignatureAlgorithm {
	case x509.SHA384WithRSA, x509.SHA384WithRSAPSS, x509.ECDSAWithSHA384:
		hashFunc = crypto.SHA384
	case x509.SHA512WithRSA, x509.SHA512WithRSAPSS, x509.ECDSAWithSHA512:
		hashFunc = crypto.SHA512
	case x509.SHA256WithRSA, x509.SHA256WithRSAPSS, x509.ECDSAWithSHA256, x509.DSAWithSHA256,
		x509.MD5WithRSA, x509.SHA1WithRSA, x509.ECDSAWithSHA1, x509.DSAWithSHA1:
		hashFunc = crypto.SHA256
	default:
		return nil
	}
	hasher := hashFunc.New()
	hasher.Write(cert.Raw)
	return hasher.Sum(nil)
}
