package ldapc

import "github.com/google/uuid"

// BindMethod names which bind sub-protocol produced a BindAuditEvent.
type BindMethod string

const (
	BindMethodSimpleAnonymously       BindMethod = "simple_anonymous"
	BindMethodSimpleUnauthenticated   BindMethod = "simple_unauthenticated"
	BindMethodSimpleAuthenticated     BindMethod = "simple_authenticated"
	BindMethodSaslExternal            BindMethod = "sasl_external"
	BindMethodKerberos                BindMethod = "sasl_gssapi"
)

// BindAuditEvent is reported to a connection's audit hook after every bind
// attempt, win or lose. BindKerberos reports only the answer to its final,
// security-layer BindRequest; failures before that round produce no
// event. It never carries the password or SASL token that
// was sent - only the outcome the server reported, mirroring the
// teacher's security-event logging (never content, always classification).
type BindAuditEvent struct {
	Method     BindMethod
	Success    bool
	Diagnostic string
	Err        error

	// CorrelationID identifies this bind attempt across log lines,
	// mirroring the teacher's security-event correlation id (a fresh
	// uuid per attempt rather than a caller-supplied id, since one
	// Conn only ever has one bind attempt outstanding at a time).
	CorrelationID string
}

// AuditHook receives a BindAuditEvent. Implementations must not block for
// long: it is invoked synchronously on the goroutine driving the bind.
type AuditHook func(BindAuditEvent)

// WithAuditHook installs hook on conn, replacing any previously set hook,
// and returns conn for chaining with Connect/ConnectTLS/NewUnbound*.
// The hook is carried across every subsequent bind-state transition.
func WithAuditHook[S BindState, C Confidentiality](conn *Conn[S, C], hook AuditHook) *Conn[S, C] {
	conn.auditHook = hook
	return conn
}

// emitAudit reports a bind outcome if an audit hook is installed.
func (c *Conn[S, C]) emitAudit(method BindMethod, diagnostic string, err error) {
	if c.auditHook == nil {
		return
	}
	c.auditHook(BindAuditEvent{
		Method:        method,
		Success:       err == nil,
		Diagnostic:    diagnostic,
		Err:           err,
		CorrelationID: uuid.NewString(),
	})
}
