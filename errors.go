package ldapc

import (
	"errors"
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/wire"
)

// MessageError is the transport-level error family returned by the message
// transport (C2): an I/O failure, a BER decode failure, or a response whose
// message id did not match the request it answers.
type MessageError struct {
	Io                 error
	Malformed          error
	UnsolicitedResponse bool
}

func (e *MessageError) Error() string {
	switch {
	case e.Io != nil:
		return fmt.Sprintf("ldapc: transport error: %v", e.Io)
	case e.Malformed != nil:
		return fmt.Sprintf("ldapc: malformed LDAP message: %v", e.Malformed)
	case e.UnsolicitedResponse:
		return "ldapc: unsolicited response (message id mismatch)"
	}
	return "ldapc: message error"
}

func (e *MessageError) Unwrap() error {
	if e.Io != nil {
		return e.Io
	}
	return e.Malformed
}

// IsMessageError reports whether err is a *MessageError.
func IsMessageError(err error) bool {
	var m *MessageError
	return errors.As(err, &m)
}

// ErrConnectionReset is returned when a read yields zero bytes (end of
// stream) where a full PDU was expected: wrapped in MessageError.Io by the
// message transport, and in a SearchResultError of kind Io by the search
// iterator.
var ErrConnectionReset = errors.New("ldapc: connection reset (zero-length read)")

// ErrEmptyUsername and ErrEmptyPassword guard the simple-bind entry points'
// preconditions (RFC 4511 §4.2 table in the bind sub-protocol design).
var (
	ErrEmptyUsername = errors.New("ldapc: username must not be empty")
	ErrEmptyPassword = errors.New("ldapc: password must not be empty")
)

// SimpleBindError is the error family for BindResponse outcomes other than
// Success on a simple bind (RFC 4511 §4.2).
type SimpleBindError struct {
	Code    wire.ResultCode
	Message string

	// Referral and HasReferral are populated only when Code is
	// wire.ResultReferral.
	Referral    []string
	HasReferral bool

	// ServerSentSaslCreds is set when the server illegally included
	// serverSaslCredentials in a simple-bind response.
	ServerSentSaslCreds bool
}

func (e *SimpleBindError) Error() string {
	if e.ServerSentSaslCreds {
		return "ldapc: simple bind response unexpectedly included server SASL credentials"
	}
	if e.Code == wire.ResultReferral {
		if e.HasReferral {
			return fmt.Sprintf("ldapc: bind referral to %v: %s", e.Referral, e.Message)
		}
		return fmt.Sprintf("ldapc: bind referral without target: %s", e.Message)
	}
	return fmt.Sprintf("ldapc: simple bind failed: %s (code=%d, message=%q)", e.Code, e.Code, e.Message)
}

// IsInvalidCredentials reports whether the server rejected the bind for bad
// credentials specifically.
func (e *SimpleBindError) IsInvalidCredentials() bool {
	return e.Code == wire.ResultInvalidCredentials
}

// IsReferral reports whether the bind was answered with a referral.
func (e *SimpleBindError) IsReferral() bool {
	return e.Code == wire.ResultReferral
}

// IsServerUnavailable reports whether the server was busy or unavailable.
func (e *SimpleBindError) IsServerUnavailable() bool {
	return e.Code == wire.ResultBusy || e.Code == wire.ResultUnavailable
}

// IsSimpleBindError reports whether err is a *SimpleBindError.
func IsSimpleBindError(err error) bool {
	var s *SimpleBindError
	return errors.As(err, &s)
}

// ExternalBindError covers any non-Success outcome of a SASL EXTERNAL bind.
// RFC 4513 treats this path as rare; the source this library follows from
// aborted unconditionally on it (design note §9 item 2), so this type
// exists to turn that into a typed error instead.
type ExternalBindError struct {
	Code    wire.ResultCode
	Message string
}

func (e *ExternalBindError) Error() string {
	return fmt.Sprintf("ldapc: SASL EXTERNAL bind failed: code=%d message=%q", e.Code, e.Message)
}

// IsExternalBindError reports whether err is an *ExternalBindError.
func IsExternalBindError(err error) bool {
	var e *ExternalBindError
	return errors.As(err, &e)
}

// KerberosBindError covers every failure mode of the SASL GSSAPI bind
// sub-protocol (RFC 4752), including the internal steps of the security-
// layer negotiation.
type KerberosBindError struct {
	// Kind names which step failed; see the Is* predicates below for the
	// supported set.
	Kind string
	// Code/Message are populated when Kind is "DidntAcceptBind".
	Code    wire.ResultCode
	Message string
	// Err wraps the underlying cause, when there is one (e.g. a GSSAPI
	// library error).
	Err error
}

const (
	kerbKindFailedToGetChannelBindings     = "FailedToGetChannelBindings"
	kerbKindInitializeSecurityContext      = "InitializeSecurityContext"
	kerbKindServerSentNoCredentials        = "ServerSentNoCredentials"
	kerbKindServerSentInvalidNegotiationData = "ServerSentInvalidNegotiationData"
	kerbKindNoValidSecurityLayerOffered     = "NoValidSecurityLayerOffered"
	kerbKindNonzeroBufferSize               = "NonzeroBufferSize"
	kerbKindFailedToDecryptNegotiationData  = "FailedToDecryptNegotiationData"
	kerbKindFailedToEncryptNegotiationData  = "FailedToEncryptNegotiationData"
	kerbKindDidntAcceptBind                 = "DidntAcceptBind"
)

func (e *KerberosBindError) Error() string {
	if e.Kind == kerbKindDidntAcceptBind {
		return fmt.Sprintf("ldapc: kerberos bind rejected: code=%d message=%q", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("ldapc: kerberos bind: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ldapc: kerberos bind: %s", e.Kind)
}

func (e *KerberosBindError) Unwrap() error { return e.Err }

// IsDidntAcceptBind reports whether the server rejected the final GSSAPI
// bind message outright.
func (e *KerberosBindError) IsDidntAcceptBind() bool { return e.Kind == kerbKindDidntAcceptBind }

// IsNoValidSecurityLayerOffered reports whether the security-layer
// negotiation failed because the server and client shared no layer.
func (e *KerberosBindError) IsNoValidSecurityLayerOffered() bool {
	return e.Kind == kerbKindNoValidSecurityLayerOffered
}

// IsKerberosBindError reports whether err is a *KerberosBindError.
func IsKerberosBindError(err error) bool {
	var k *KerberosBindError
	return errors.As(err, &k)
}

// StartTLSError is returned when the StartTLS extended operation is
// refused or fails. StartTLS returns the caller's original
// connection alongside this error so they may retry unencrypted or abort
// (RFC 4511 §4.14, testable property 9).
type StartTLSError struct {
	Code            wire.ResultCode
	Message         string
	ResponseNameMismatch bool
	Err             error
}

func (e *StartTLSError) Error() string {
	if e.ResponseNameMismatch {
		return "ldapc: StartTLS response did not echo the StartTLS OID"
	}
	if e.Err != nil {
		return fmt.Sprintf("ldapc: StartTLS failed: %v", e.Err)
	}
	return fmt.Sprintf("ldapc: StartTLS refused: code=%d message=%q", e.Code, e.Message)
}

func (e *StartTLSError) Unwrap() error { return e.Err }

// SearchResultError is the error family yielded by the search iterator
// (RFC 4511 §4.5, design §4.5 and §7).
type SearchResultError struct {
	Kind       string
	Code       wire.ResultCode
	Message    string
	MatchedDN  string
	FieldName  string
	Err        error
}

const (
	searchKindMalformedLdapMessage     = "MalformedLdapMessage"
	searchKindInvalidLdapMessage       = "InvalidLdapMessage"
	searchKindOperationsError          = "OperationsError"
	searchKindNoSuchObject             = "NoSuchObject"
	searchKindInsufficientAccessRights = "InsufficientAccessRights"
	searchKindTimeLimitExceeded        = "TimeLimitExceeded"
	searchKindSizeLimitExceeded        = "SizeLimitExceeded"
	searchKindFilterError              = "FilterError"
	searchKindMissingAttributeValue    = "MissingAttributeValue"
	searchKindTooManyValuesInScalarField = "TooManyValuesInScalarField"
	searchKindFailedToParseField       = "FailedToParseField"
	searchKindIo                       = "Io"
	searchKindOther                    = "Other"
)

func (e *SearchResultError) Error() string {
	switch e.Kind {
	case searchKindNoSuchObject:
		return fmt.Sprintf("ldapc: no such object (matchedDN=%q): %s", e.MatchedDN, e.Message)
	case searchKindMissingAttributeValue:
		return fmt.Sprintf("ldapc: missing attribute value for field %q", e.FieldName)
	case searchKindTooManyValuesInScalarField:
		return fmt.Sprintf("ldapc: too many values in scalar field %q", e.FieldName)
	case searchKindFailedToParseField:
		return fmt.Sprintf("ldapc: failed to parse field %q: %v", e.FieldName, e.Err)
	case searchKindOther:
		return fmt.Sprintf("ldapc: search failed (matchedDN=%q): code=%d message=%q", e.MatchedDN, e.Code, e.Message)
	case searchKindIo:
		return fmt.Sprintf("ldapc: search I/O error: %v", e.Err)
	case searchKindMalformedLdapMessage:
		return fmt.Sprintf("ldapc: malformed search response: %v", e.Err)
	default:
		return fmt.Sprintf("ldapc: search failed: %s", e.Kind)
	}
}

func (e *SearchResultError) Unwrap() error { return e.Err }

// IsNoSuchObject reports whether the search failed because the base or an
// intermediate object does not exist.
func (e *SearchResultError) IsNoSuchObject() bool { return e.Kind == searchKindNoSuchObject }

// IsFailedToParseField reports whether a single entry's field failed to
// parse from its octet-string value. Like MissingAttributeValue and
// TooManyValuesInScalarField, it is a per-entry mapping error that does not
// terminate the iterator (§7 policy).
func (e *SearchResultError) IsFailedToParseField() bool { return e.Kind == searchKindFailedToParseField }

// IsSearchResultError reports whether err is a *SearchResultError.
func IsSearchResultError(err error) bool {
	var s *SearchResultError
	return errors.As(err, &s)
}
