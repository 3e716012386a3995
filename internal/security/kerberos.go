package security

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-krb5/krb5/client"
	"github.com/go-krb5/krb5/config"
	"github.com/go-krb5/krb5/credentials"
	"github.com/go-krb5/krb5/gssapi"
	"github.com/go-krb5/krb5/iana/flags"
	"github.com/go-krb5/krb5/keytab"
	"github.com/go-krb5/krb5/messages"
	"github.com/go-krb5/krb5/spnego"
)

// KerberosConfig selects how the pure-Go Kerberos client obtains its
// initial credentials, mirroring the three sources a kinit-equivalent
// would accept.
type KerberosConfig struct {
	Realm        string
	Krb5ConfPath string // defaults to $KRB5_CONFIG, then /etc/krb5.conf
	KeytabPath   string
	CCachePath   string
	Username     string
	Password     string
}

// KerberosProvider implements Provider for RFC 4752's GSSAPI SASL
// mechanism using the pure-Go go-krb5/krb5 client. Unlike the WSMan/HTTP
// GSSAPI path this module's teacher uses, LDAP's SASL framing already
// names the mechanism in BindRequest.sasl.mechanism, so the tokens
// exchanged here are raw GSS-API tokens (AP-REQ, then AP-REP) with no
// SPNEGO wrapper - see the raw-token GSSAPI client this is grounded on.
//
// Channel bindings (RFC 5929) are folded into the AP-REQ authenticator
// checksum when WithChannelBindings has been called before the first
// Step: this mirrors the WithChannelBinding(s) convention the NTLM and
// SSPI providers in this package already use.
type KerberosProvider struct {
	client          *client.Client
	clientContext   *spnego.ClientContext
	targetSPN       string
	channelBindings []byte

	negotiatedSecLayer SecurityLayer
	negotiatedMaxSize  uint32
	complete           bool
}

// NewKerberosProvider loads krb5.conf, obtains a TGT via whichever of
// cfg's credential sources is set (keytab first, then ccache, then
// password), and returns a provider ready to authenticate to targetSPN
// (an LDAP service principal, typically "ldap/dc1.example.com").
func NewKerberosProvider(cfg KerberosConfig, targetSPN string) (*KerberosProvider, error) {
	confPath := cfg.Krb5ConfPath
	if confPath == "" {
		confPath = os.Getenv("KRB5_CONFIG")
		if confPath == "" {
			confPath = "/etc/krb5.conf"
		}
	}
	conf, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("security: load krb5.conf from %s: %w", confPath, err)
	}

	var cl *client.Client
	switch {
	case cfg.KeytabPath != "":
		kt, err := keytab.Load(cfg.KeytabPath)
		if err != nil {
			return nil, fmt.Errorf("security: load keytab from %s: %w", cfg.KeytabPath, err)
		}
		cl = client.NewWithKeytab(cfg.Username, cfg.Realm, kt, conf, client.DisablePAFXFAST(true))
	case cfg.CCachePath != "":
		cc, err := credentials.LoadCCache(cfg.CCachePath)
		if err != nil {
			return nil, fmt.Errorf("security: load ccache from %s: %w", cfg.CCachePath, err)
		}
		cl, err = client.NewFromCCache(cc, conf, client.DisablePAFXFAST(true))
		if err != nil {
			return nil, fmt.Errorf("security: client from ccache: %w", err)
		}
	case cfg.Password != "":
		cl = client.NewWithPassword(cfg.Username, cfg.Realm, cfg.Password, conf, client.DisablePAFXFAST(true))
	default:
		return nil, fmt.Errorf("security: no kerberos credential source given (keytab, ccache or password)")
	}

	if err := cl.Login(); err != nil {
		return nil, fmt.Errorf("security: kerberos login: %w", err)
	}

	return &KerberosProvider{client: cl, targetSPN: targetSPN}, nil
}

// WithChannelBindings records the RFC 5929 channel-binding bytes (e.g.
// tls-server-end-point, from Stream.ChannelBindings) to be folded into
// the AP-REQ authenticator checksum on the next Step call. Call it before
// the first Step; it has no effect afterward.
func (p *KerberosProvider) WithChannelBindings(bindings []byte) *KerberosProvider {
	p.channelBindings = bindings
	return p
}

// Complete reports whether the AP-REQ/AP-REP mutual-authentication
// exchange has finished. It does not cover the security-layer
// negotiation; see NegotiateSecurityLayer for that final step.
func (p *KerberosProvider) Complete() bool { return p.complete }

// Step drives the two-leg mutual-authentication exchange: the first call
// (serverToken nil) returns the client's AP-REQ; the second call, given
// the server's AP-REP, verifies it and completes the context.
func (p *KerberosProvider) Step(_ context.Context, serverToken []byte) ([]byte, bool, error) {
	if p.clientContext == nil {
		return p.initialToken()
	}
	return p.processAPRep(serverToken)
}

func (p *KerberosProvider) initialToken() ([]byte, bool, error) {
	tkt, sessionKey, err := p.client.GetServiceTicket(p.targetSPN)
	if err != nil {
		return nil, false, fmt.Errorf("security: get service ticket for %s: %w", p.targetSPN, err)
	}

	gssFlags := []int{gssapi.ContextFlagInteg, gssapi.ContextFlagConf, gssapi.ContextFlagMutual}
	apOptions := []int{flags.APOptionMutualRequired}

	krb5Token, err := spnego.NewKRB5TokenAPREQ(p.client, tkt, sessionKey, gssFlags, apOptions)
	if err != nil {
		return nil, false, fmt.Errorf("security: build AP-REQ token: %w", err)
	}
	if len(p.channelBindings) > 0 {
		// Fold the stream's channel-binding bytes (RFC 5929) into the
		// AP-REQ authenticator checksum, mirroring SetMutualAuthRequired
		// and friends below: a setter applied before the token is sent.
		if err := krb5Token.SetChannelBindings(p.channelBindings); err != nil {
			return nil, false, &ChannelBindingError{Err: err}
		}
	}

	flagsUint := uint32(gssapi.ContextFlagInteg | gssapi.ContextFlagConf | gssapi.ContextFlagMutual)
	clientCtx := spnego.NewClientContext(sessionKey, flagsUint, krb5Token.InitialSeqNum())
	clientCtx.SetMutualAuthRequired(true)
	if err := clientCtx.SetInProgress(); err != nil {
		return nil, false, fmt.Errorf("security: set context in progress: %w", err)
	}
	p.clientContext = clientCtx

	tokenBytes, err := krb5Token.Marshal()
	if err != nil {
		return nil, false, fmt.Errorf("security: marshal AP-REQ token: %w", err)
	}
	return tokenBytes, true, nil
}

func (p *KerberosProvider) processAPRep(serverToken []byte) ([]byte, bool, error) {
	var apRep messages.APRep
	if err := apRep.Unmarshal(serverToken); err != nil {
		return nil, false, fmt.Errorf("security: unmarshal AP-REP: %w", err)
	}
	if err := p.clientContext.ProcessAPRep(&apRep); err != nil {
		return nil, false, fmt.Errorf("security: process AP-REP: %w", err)
	}
	if err := p.clientContext.SetEstablished(); err != nil {
		return nil, false, fmt.Errorf("security: set context established: %w", err)
	}
	p.complete = true
	return nil, false, nil
}

// NegotiateSecurityLayer implements the final leg of RFC 4752 §3.1: the
// server's last SASL credential is a signed, 4-octet cleartext payload
// naming the security layers it supports and its maximum receive buffer;
// the client replies in kind, naming the layer it selects.
//
// Per design §4.4.3 step 3.4, this provider selects NoSecurity when
// streamConfidential is true (the Conn's own transport, e.g. TLS, already
// protects the wire) and Confidentiality otherwise, failing with
// ErrNoValidSecurityLayerOffered if the server didn't offer that layer.
// callerMaxBufferSize is the caller's own receive-buffer ceiling; the
// buffer size actually negotiated is min(server_max, callerMaxBufferSize).
func (p *KerberosProvider) NegotiateSecurityLayer(serverToken []byte, authzID string, streamConfidential bool, callerMaxBufferSize uint32) (*NegotiationResult, error) {
	payload, err := p.clientContext.UnwrapSealed(serverToken)
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

	reply, err := p.clientContext.WrapSealed(handshakePayload(byte(layer), maxSize, []byte(authzID)))
	if err != nil {
		return nil, &EncryptError{Err: err}
	}

	p.negotiatedSecLayer = layer
	p.negotiatedMaxSize = maxSize
	return &NegotiationResult{Reply: reply, Layer: layer, MaxBufferSize: maxSize}, nil
}

// handshakePayload builds the cleartext security-layer selection message
// defined in RFC 4752 §3.1, grounded on the equivalent SSPI client's
// construction of the same four-octet-plus-authzid structure.
func handshakePayload(secLayer byte, maxSize uint32, authzid []byte) []byte {
	payload := make([]byte, 4, 4+len(authzid))
	binary.BigEndian.PutUint32(payload, maxSize)
	payload[0] = secLayer
	payload = append(payload, authzid...)
	return payload
}

// Wrap seals a buffer of outbound plaintext with the negotiated GSSAPI
// confidentiality layer (design §4.4.3 step 4). It is only meaningful
// once NegotiateSecurityLayer has selected SecurityLayerConfidentiality.
func (p *KerberosProvider) Wrap(plaintext []byte) ([]byte, error) {
	wrapped, err := p.clientContext.WrapSealed(plaintext)
	if err != nil {
		return nil, fmt.Errorf("security: wrap: %w", err)
	}
	return wrapped, nil
}

// Unwrap opens a buffer of inbound ciphertext with the negotiated GSSAPI
// confidentiality layer.
func (p *KerberosProvider) Unwrap(ciphertext []byte) ([]byte, error) {
	plaintext, err := p.clientContext.UnwrapSealed(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("security: unwrap: %w", err)
	}
	return plaintext, nil
}

// MaxWrappedSize returns the receive-buffer size negotiated in
// NegotiateSecurityLayer.
func (p *KerberosProvider) MaxWrappedSize() uint32 { return p.negotiatedMaxSize }

// Close releases the Kerberos client's ticket cache and any established
// security context.
func (p *KerberosProvider) Close() error {
	p.clientContext = nil
	p.client.Destroy()
	return nil
}
