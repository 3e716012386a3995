package ldapc

import (
	"context"
	"errors"
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/security"
	"github.com/smnsjas/go-ldapc/internal/wire"
)

const saslMechanismGSSAPI = "GSSAPI"

// defaultMaxReceiveBufferSize is the RFC 4752 §3.1 default a caller gets
// when KerberosBindOptions.MaxReceiveBufferSize is left at zero.
const defaultMaxReceiveBufferSize = 65535

// KerberosBindOptions configures the SASL GSSAPI bind (RFC 4752). Exactly
// one of KeytabPath, CCachePath or Password should be set, in that order
// of precedence, matching internal/security.KerberosConfig.
type KerberosBindOptions struct {
	Realm        string
	Krb5ConfPath string
	KeytabPath   string
	CCachePath   string
	Username     string
	Password     string

	// TargetSPN is the LDAP server's service principal name, typically
	// "ldap/<fqdn>".
	TargetSPN string

	// AuthzID is the optional SASL authorization identity to request;
	// pass "" to bind as the Kerberos principal's own identity.
	AuthzID string

	// MaxReceiveBufferSize is this client's ceiling on the GSSAPI
	// security-layer buffer size (RFC 4752 §3.1); the size actually
	// negotiated is min(server's max, this value). Zero means
	// defaultMaxReceiveBufferSize (65535).
	MaxReceiveBufferSize uint32
}

// BindKerberos performs a SASL GSSAPI bind (RFC 4752) over the pure-Go
// Kerberos client in internal/security. It runs the full exchange: the
// client's AP-REQ (with channel bindings folded into the authenticator
// checksum when the stream supplies any, RFC 5929), the server's AP-REP,
// and the RFC 4752 §3.1 security-layer negotiation (design §4.4.3 step
// 3): NoSecurity when the stream is already confidential, Confidentiality
// otherwise. When Confidentiality is selected, the returned Conn's stream
// is replaced with a GSS-wrap/unwrap overlay (step 4), so the result is
// always confidential regardless of what it started as - the same
// pattern StartTLS uses to upgrade a Conn's confidentiality marker.
func BindKerberos[C Confidentiality](ctx context.Context, conn *Conn[Unbound, C], opts KerberosBindOptions) (*Conn[BoundKerberos, ConfidentialStream], error) {
	maxBufferSize := opts.MaxReceiveBufferSize
	if maxBufferSize == 0 {
		maxBufferSize = defaultMaxReceiveBufferSize
	}

	provider, err := security.NewKerberosProvider(security.KerberosConfig{
		Realm:        opts.Realm,
		Krb5ConfPath: opts.Krb5ConfPath,
		KeytabPath:   opts.KeytabPath,
		CCachePath:   opts.CCachePath,
		Username:     opts.Username,
		Password:     opts.Password,
	}, opts.TargetSPN)
	if err != nil {
		return nil, &KerberosBindError{Kind: kerbKindInitializeSecurityContext, Err: err}
	}
	provider.WithChannelBindings(conn.stream.ChannelBindings())

	token, _, err := provider.Step(ctx, nil)
	if err != nil {
		_ = provider.Close()
		var cbErr *security.ChannelBindingError
		if errors.As(err, &cbErr) {
			return nil, &KerberosBindError{Kind: kerbKindFailedToGetChannelBindings, Err: err}
		}
		return nil, &KerberosBindError{Kind: kerbKindInitializeSecurityContext, Err: err}
	}

	resp, err := saslBindStep(conn, token)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	if resp.ResultCode != wire.ResultSaslBindInProgress {
		_ = provider.Close()
		return nil, kerberosDoneError(resp)
	}
	if !resp.HasServerSaslCreds {
		_ = provider.Close()
		return nil, &KerberosBindError{Kind: kerbKindServerSentNoCredentials}
	}

	if _, _, err := provider.Step(ctx, resp.ServerSaslCreds); err != nil {
		_ = provider.Close()
		return nil, &KerberosBindError{Kind: kerbKindServerSentInvalidNegotiationData, Err: err}
	}

	// One more empty-credential round lets the server deliver its
	// security-layer negotiation message (RFC 4752 §3.1): the AP-REP just
	// processed established mutual authentication, but the layer
	// negotiation message is a distinct piece of server SASL data.
	layerResp, err := saslBindStep(conn, []byte{})
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	if layerResp.ResultCode != wire.ResultSaslBindInProgress || !layerResp.HasServerSaslCreds {
		_ = provider.Close()
		return nil, kerberosDoneError(layerResp)
	}

	result, err := provider.NegotiateSecurityLayer(layerResp.ServerSaslCreds, opts.AuthzID, conn.stream.Confidential(), maxBufferSize)
	if err != nil {
		_ = provider.Close()
		return nil, &KerberosBindError{Kind: classifyNegotiationError(err), Err: err}
	}

	final, err := saslBindStep(conn, result.Reply)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	if final.ResultCode != wire.ResultSuccess {
		bindErr := &KerberosBindError{Kind: kerbKindDidntAcceptBind, Code: final.ResultCode, Message: final.DiagnosticMessage}
		conn.emitAudit(BindMethodKerberos, final.DiagnosticMessage, bindErr)
		_ = provider.Close()
		return nil, bindErr
	}

	finalStream := conn.stream
	if result.Layer == security.SecurityLayerConfidentiality {
		finalStream = newKerberosStream(conn.stream, provider, result.MaxBufferSize)
	} else {
		_ = provider.Close()
	}

	conn.emitAudit(BindMethodKerberos, final.DiagnosticMessage, nil)
	return &Conn[BoundKerberos, ConfidentialStream]{
		stream:        finalStream,
		nextMessageID: conn.nextMessageID,
		state: BoundKerberos{
			Diagnostic:           final.DiagnosticMessage,
			NegotiatedBufferSize: result.MaxBufferSize,
			Confidential:         true,
		},
		logger:    conn.logger,
		stats:     conn.stats,
		auditHook: conn.auditHook,
	}, nil
}

// classifyNegotiationError maps a NegotiateSecurityLayer failure onto the
// KerberosBindError kind that names it.
func classifyNegotiationError(err error) string {
	switch {
	case errors.Is(err, security.ErrNonzeroBufferSize):
		return kerbKindNonzeroBufferSize
	case errors.Is(err, security.ErrNoValidSecurityLayerOffered):
		return kerbKindNoValidSecurityLayerOffered
	default:
		var encErr *security.EncryptError
		if errors.As(err, &encErr) {
			return kerbKindFailedToEncryptNegotiationData
		}
		return kerbKindFailedToDecryptNegotiationData
	}
}

// saslBindStep sends one round of the GSSAPI BindRequest with creds as
// the mechanism-specific credentials and decodes the BindResponse.
func saslBindStep[S BindState, C Confidentiality](conn *Conn[S, C], creds []byte) (*wire.BindResponse, error) {
	op := wire.EncodeSaslBindRequest("", saslMechanismGSSAPI, creds)
	msg, err := conn.sendSingleMessage(op)
	if err != nil {
		return nil, err
	}
	if msg.Op.Tag != wire.TagBindResponse {
		return nil, &MessageError{Malformed: fmt.Errorf("expected BindResponse, got protocolOp tag %d", msg.Op.Tag)}
	}
	resp, err := wire.DecodeBindResponse(msg.Op)
	if err != nil {
		return nil, &MessageError{Malformed: err}
	}
	return resp, nil
}

// kerberosDoneError classifies a non-continuing BindResponse reached
// where the GSSAPI exchange expected another round.
func kerberosDoneError(resp *wire.BindResponse) error {
	if resp.ResultCode == wire.ResultSuccess {
		return &KerberosBindError{Kind: kerbKindServerSentInvalidNegotiationData, Err: fmt.Errorf("server accepted the bind before the security-layer negotiation completed")}
	}
	return &KerberosBindError{Kind: kerbKindDidntAcceptBind, Code: resp.ResultCode, Message: resp.DiagnosticMessage}
}
