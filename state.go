package ldapc

// BindState is the type-level tag carried by Conn[S, C]. Each concrete
// state below corresponds to one node in the connection typestate diagram
// (design §4.3); transition methods consume a Conn in one state and return
// a Conn in another, so an attempt to call an operation illegal for the
// current state is a compile error rather than a runtime check.
type BindState interface {
	bindStateName() string
}

// Unbound is the initial state: no bind has occurred yet.
type Unbound struct{}

func (Unbound) bindStateName() string { return "Unbound" }

// BoundAnonymous is reached via bind_simple_anonymously.
type BoundAnonymous struct{ Diagnostic string }

func (BoundAnonymous) bindStateName() string { return "BoundAnonymous" }

// BoundSimpleUnauthenticated is reached via bind_simple_unauthenticated: a
// non-empty name with an empty password (RFC 4513 §5.1.2 discourages this;
// the server, not this library, decides whether to honor it).
type BoundSimpleUnauthenticated struct{ Diagnostic string }

func (BoundSimpleUnauthenticated) bindStateName() string { return "BoundSimpleUnauthenticated" }

// BoundSimpleAuthenticated is reached via bind_simple_authenticated: name
// and password both non-empty.
type BoundSimpleAuthenticated struct{ Diagnostic string }

func (BoundSimpleAuthenticated) bindStateName() string { return "BoundSimpleAuthenticated" }

// BoundSaslExternal is reached via sasl_external_bind, tagged with which
// confidential transport variant carried it.
type BoundSaslExternal struct {
	Diagnostic      string
	TransportVariant string
}

func (BoundSaslExternal) bindStateName() string { return "BoundSaslExternal" }

// BoundKerberos is reached via bind_kerberos; the stream has been replaced
// per the security-layer negotiation outcome (design §4.4.3 step 4).
type BoundKerberos struct {
	Diagnostic         string
	NegotiatedBufferSize uint32
	Confidential         bool
}

func (BoundKerberos) bindStateName() string { return "BoundKerberos" }

// Bound is satisfied by every state reachable by a successful bind;
// Unbound does not implement it. No operation in this package uses it as
// a constraint: Unbind and Search accept a Conn in any state, Unbound
// included, and every bind starts from Unbound.
type Bound interface {
	BindState
	bound()
}

func (BoundAnonymous) bound()              {}
func (BoundSimpleUnauthenticated) bound()  {}
func (BoundSimpleAuthenticated) bound()    {}
func (BoundSaslExternal) bound()           {}
func (BoundKerberos) bound()               {}

// Confidentiality is the type-level tag for whether a Conn's stream may
// carry credentials without an additional SASL confidentiality layer
// (design §4.1). It gates the non-unsafe_ bind entry points at compile
// time (design §4.3, testable property 7).
type Confidentiality interface {
	confidential() bool
}

// NotConfidential marks a Conn whose stream offers no confidentiality
// (plain TCP, or a caller-supplied stream that does not claim it).
type NotConfidential struct{}

func (NotConfidential) confidential() bool { return false }

// ConfidentialStream marks a Conn whose stream is confidential: TLS of
// either variant, or post-negotiation Kerberos with a confidentiality
// layer installed.
type ConfidentialStream struct{}

func (ConfidentialStream) confidential() bool { return true }
