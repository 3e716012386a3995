package ldapc

import (
	"crypto/tls"
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/wire"
)

// StartTLS sends the StartTLS extended operation (RFC 4511 §4.14) and, on
// a successful response, performs a TLS handshake over the existing byte
// stream in place. On any refusal or failure it returns the caller's
// original, unmodified connection alongside a *StartTLSError (design
// §4.1's Open Question 9 decision: never leave the caller with neither).
// domain is used for certificate verification when config does not
// already set ServerName.
func StartTLS[S BindState](conn *Conn[S, NotConfidential], domain string, config *tls.Config) (*Conn[S, ConfidentialStream], *Conn[S, NotConfidential], error) {
	raw, ok := conn.stream.(rawConnStream)
	if !ok {
		return nil, conn, &StartTLSError{Err: fmt.Errorf("ldapc: underlying stream does not support StartTLS")}
	}

	op := wire.EncodeExtendedRequest(wire.StartTLSOID, nil)
	msg, err := conn.sendSingleMessage(op)
	if err != nil {
		return nil, conn, &StartTLSError{Err: err}
	}
	if msg.Op.Tag != wire.TagExtendedResponse {
		return nil, conn, &StartTLSError{Err: fmt.Errorf("expected ExtendedResponse, got protocolOp tag %d", msg.Op.Tag)}
	}
	resp, err := wire.DecodeExtendedResponse(msg.Op)
	if err != nil {
		return nil, conn, &StartTLSError{Err: fmt.Errorf("decode ExtendedResponse: %w", err)}
	}
	if resp.HasResponseName && resp.ResponseName != wire.StartTLSOID {
		return nil, conn, &StartTLSError{ResponseNameMismatch: true}
	}
	if resp.ResultCode != wire.ResultSuccess {
		return nil, conn, &StartTLSError{Code: resp.ResultCode, Message: resp.DiagnosticMessage}
	}

	cfg := config
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = domain
	}
	tlsConn := tls.Client(raw.netConn(), cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, conn, &StartTLSError{Err: fmt.Errorf("TLS handshake: %w", err)}
	}

	return &Conn[S, ConfidentialStream]{
		stream:        newTLSStream(tlsConn),
		nextMessageID: conn.nextMessageID,
		state:         conn.state,
		logger:        conn.logger,
		stats:         conn.stats,
		auditHook:     conn.auditHook,
	}, nil, nil
}
