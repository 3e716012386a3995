package ldapc

import (
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/wire"
)

// BindSimpleAnonymously performs an anonymous simple bind (RFC 4513
// §5.1.1): name and password both empty. Available on any stream - an
// anonymous bind carries no credentials to protect.
func BindSimpleAnonymously[C Confidentiality](conn *Conn[Unbound, C]) (*Conn[BoundAnonymous, C], error) {
	resp, err := simpleBind(conn, "", "")
	if err != nil {
		conn.emitAudit(BindMethodSimpleAnonymously, "", err)
		return nil, err
	}
	conn.emitAudit(BindMethodSimpleAnonymously, resp.DiagnosticMessage, nil)
	return transitionBind[C, BoundAnonymous](conn, BoundAnonymous{Diagnostic: resp.DiagnosticMessage}), nil
}

// BindSimpleUnauthenticated performs an unauthenticated simple bind (RFC
// 4513 §5.1.2): a non-empty name with an empty password. Many servers
// reject this as a matter of policy; it is provided because the wire
// protocol allows it.
func BindSimpleUnauthenticated[C Confidentiality](conn *Conn[Unbound, C], name string) (*Conn[BoundSimpleUnauthenticated, C], error) {
	if name == "" {
		return nil, ErrEmptyUsername
	}
	resp, err := simpleBind(conn, name, "")
	if err != nil {
		conn.emitAudit(BindMethodSimpleUnauthenticated, "", err)
		return nil, err
	}
	conn.emitAudit(BindMethodSimpleUnauthenticated, resp.DiagnosticMessage, nil)
	return transitionBind[C, BoundSimpleUnauthenticated](conn, BoundSimpleUnauthenticated{Diagnostic: resp.DiagnosticMessage}), nil
}

// BindSimpleAuthenticated performs a fully authenticated simple bind (RFC
// 4511 §4.2): both name and password non-empty. Sending a plaintext
// password requires a confidential stream; see UnsafeBindSimpleAuthenticated
// to bypass that precondition.
func BindSimpleAuthenticated(conn *Conn[Unbound, ConfidentialStream], name, password string) (*Conn[BoundSimpleAuthenticated, ConfidentialStream], error) {
	return bindSimpleAuthenticated(conn, name, password)
}

// UnsafeBindSimpleAuthenticated is BindSimpleAuthenticated without the
// confidentiality precondition (design §4.1: "a separate, hidden entry
// point, distinct by name, that bypasses the confidentiality precondition
// for testing or opt-in insecure deployments"). Its wire behaviour is
// otherwise identical.
func UnsafeBindSimpleAuthenticated[C Confidentiality](conn *Conn[Unbound, C], name, password string) (*Conn[BoundSimpleAuthenticated, C], error) {
	return bindSimpleAuthenticated(conn, name, password)
}

func bindSimpleAuthenticated[C Confidentiality](conn *Conn[Unbound, C], name, password string) (*Conn[BoundSimpleAuthenticated, C], error) {
	if name == "" {
		return nil, ErrEmptyUsername
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	resp, err := simpleBind(conn, name, password)
	if err != nil {
		conn.emitAudit(BindMethodSimpleAuthenticated, "", err)
		return nil, err
	}
	conn.emitAudit(BindMethodSimpleAuthenticated, resp.DiagnosticMessage, nil)
	return transitionBind[C, BoundSimpleAuthenticated](conn, BoundSimpleAuthenticated{Diagnostic: resp.DiagnosticMessage}), nil
}

// simpleBind runs the one-PDU simple-bind exchange and classifies the
// result per design §4.4.1's table. On any non-Success outcome the
// caller's connection is consumed (design §4.4.1, testable property 10):
// it returns only an error, never a usable Conn.
func simpleBind[C Confidentiality](conn *Conn[Unbound, C], name, password string) (*wire.BindResponse, error) {
	op := wire.EncodeSimpleBindRequest(name, password)
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
	if resp.HasServerSaslCreds {
		return nil, &SimpleBindError{Code: resp.ResultCode, Message: resp.DiagnosticMessage, ServerSentSaslCreds: true}
	}
	if bindErr := classifySimpleBindResult(resp); bindErr != nil {
		return nil, bindErr
	}
	return resp, nil
}

func classifySimpleBindResult(resp *wire.BindResponse) error {
	switch resp.ResultCode {
	case wire.ResultSuccess:
		return nil
	case wire.ResultReferral:
		return &SimpleBindError{
			Code:        resp.ResultCode,
			Message:     resp.DiagnosticMessage,
			Referral:    resp.Referral,
			HasReferral: len(resp.Referral) > 0,
		}
	case wire.ResultBusy, wire.ResultUnavailable:
		return &SimpleBindError{Code: resp.ResultCode, Message: resp.DiagnosticMessage}
	default:
		return &SimpleBindError{Code: resp.ResultCode, Message: resp.DiagnosticMessage}
	}
}

// transitionBind builds the post-bind Conn, reusing the prior stream and
// counters. The simple and EXTERNAL binds use it to "consume" the Unbound
// value and produce a newly-typed one, matching the typestate transition
// methods described in design §4.3 (each consumes the old value, produces
// the new one); BindKerberos and StartTLS build their new Conn directly,
// since they may replace the stream.
func transitionBind[C Confidentiality, S2 BindState](conn *Conn[Unbound, C], newState S2) *Conn[S2, C] {
	return &Conn[S2, C]{
		stream:        conn.stream,
		nextMessageID: conn.nextMessageID,
		state:         newState,
		logger:        conn.logger,
		stats:         conn.stats,
		auditHook:     conn.auditHook,
	}
}
