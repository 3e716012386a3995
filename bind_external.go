package ldapc

import (
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/wire"
)

const saslMechanismExternal = "EXTERNAL"

// BindSaslExternal performs a SASL EXTERNAL bind (RFC 4513 §5.2.1): the
// server derives the client's identity from the transport itself (a TLS
// client certificate, typically), so no credentials travel over the wire.
// authzID is the optional SASL authorization identity override; pass "" to
// let the server pick the identity implied by the transport.
//
// EXTERNAL only makes sense over a transport that has already
// authenticated the client out-of-band, so this entry point requires a
// confidential stream; see UnsafeBindSaslExternal to bypass that
// precondition (e.g. against a test server that accepts EXTERNAL over
// plain TCP).
func BindSaslExternal(conn *Conn[Unbound, ConfidentialStream], authzID string) (*Conn[BoundSaslExternal, ConfidentialStream], error) {
	return bindSaslExternal(conn, authzID)
}

// UnsafeBindSaslExternal is BindSaslExternal without the confidentiality
// precondition.
func UnsafeBindSaslExternal[C Confidentiality](conn *Conn[Unbound, C], authzID string) (*Conn[BoundSaslExternal, C], error) {
	return bindSaslExternal(conn, authzID)
}

func bindSaslExternal[C Confidentiality](conn *Conn[Unbound, C], authzID string) (*Conn[BoundSaslExternal, C], error) {
	var creds []byte
	if authzID != "" {
		creds = []byte(authzID)
	}
	op := wire.EncodeSaslBindRequest("", saslMechanismExternal, creds)
	msg, err := conn.sendSingleMessage(op)
	if err != nil {
		conn.emitAudit(BindMethodSaslExternal, "", err)
		return nil, err
	}
	if msg.Op.Tag != wire.TagBindResponse {
		tagErr := &MessageError{Malformed: fmt.Errorf("expected BindResponse, got protocolOp tag %d", msg.Op.Tag)}
		conn.emitAudit(BindMethodSaslExternal, "", tagErr)
		return nil, tagErr
	}
	resp, err := wire.DecodeBindResponse(msg.Op)
	if err != nil {
		conn.emitAudit(BindMethodSaslExternal, "", &MessageError{Malformed: err})
		return nil, &MessageError{Malformed: err}
	}
	if resp.ResultCode != wire.ResultSuccess {
		bindErr := &ExternalBindError{Code: resp.ResultCode, Message: resp.DiagnosticMessage}
		conn.emitAudit(BindMethodSaslExternal, resp.DiagnosticMessage, bindErr)
		return nil, bindErr
	}

	variant := "tcp"
	if conn.stream.Confidential() {
		variant = "tls"
	}
	conn.emitAudit(BindMethodSaslExternal, resp.DiagnosticMessage, nil)
	return transitionBind[C, BoundSaslExternal](conn, BoundSaslExternal{
		Diagnostic:       resp.DiagnosticMessage,
		TransportVariant: variant,
	}), nil
}
