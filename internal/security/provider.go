// Package security implements the token exchange for LDAP's SASL
// mechanisms that require more than one round trip (RFC 4752's GSSAPI
// mechanism). It is the GSS-API analogue of internal/wire: the rest of
// the module deals in the LDAP bind sub-protocol, this package deals in
// the mechanism-specific bytes that travel inside it.
package security

import "context"

// Provider drives one SASL mechanism's client-side token exchange. It
// abstracts over pure-Go Kerberos, Windows SSPI, and (exercised only by
// its own tests, never wired to a bind path - see DESIGN.md) NTLM.
//
// # Thread safety
//
// A Provider is not safe for concurrent use; it holds the state of one
// in-progress handshake.
//
// # Flow
//
//  1. Step(ctx, nil) -> first outbound token
//  2. send the token as the SASL credential, read the server's reply
//  3. Step(ctx, serverToken) -> next outbound token, or nil once Complete
//  4. repeat until Complete reports true
type Provider interface {
	// Step consumes the server's last token (nil on the first call) and
	// produces the client's next token to send, plus whether another
	// round trip is expected.
	Step(ctx context.Context, serverToken []byte) (clientToken []byte, continueNeeded bool, err error)

	// Complete reports whether the security context has been established.
	Complete() bool

	// Close releases any resources held by the underlying mechanism
	// (a Kerberos client's ticket cache, an SSPI credential handle).
	Close() error
}

// ConfidentialityProvider is implemented by a Provider whose mechanism
// negotiated a security layer (RFC 4752 §3.3) usable to wrap and unwrap
// subsequent LDAP messages. Not every Provider reaches this: a GSSAPI
// negotiation that selects "no security layer" leaves the stream as it
// found it.
type ConfidentialityProvider interface {
	Provider

	// Wrap seals a buffer of outbound plaintext using the negotiated
	// security layer.
	Wrap(plaintext []byte) ([]byte, error)

	// Unwrap opens a buffer of inbound ciphertext using the negotiated
	// security layer.
	Unwrap(ciphertext []byte) ([]byte, error)

	// MaxWrappedSize returns the buffer size negotiated with the server
	// in the security-layer exchange.
	MaxWrappedSize() uint32
}
