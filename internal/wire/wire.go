// Package wire encodes and decodes LDAP v3 PDUs over BER, per RFC 4511's
// ASN.1 module. It holds every PDU encoder and decoder in this module; the
// root package imports the BER codec only to pass protocolOp packets
// between its operations and this package.
package wire

import (
	"github.com/go-asn1-ber/asn1-ber"
)

// Application-class tag numbers for LdapMessage.protocolOp, per RFC 4511 §4.1.1.
const (
	TagBindRequest           = 0
	TagBindResponse          = 1
	TagUnbindRequest         = 2
	TagSearchRequest         = 3
	TagSearchResultEntry     = 4
	TagSearchResultDone      = 5
	TagSearchResultReference = 19
	TagExtendedRequest       = 23
	TagExtendedResponse      = 24
)

// Context-class tag numbers for BindRequest.authentication (CHOICE), RFC 4511 §4.2.
const (
	TagAuthSimple = 0
	TagAuthSasl   = 3
)

// Context-class tag numbers within ExtendedRequest/ExtendedResponse, RFC 4511 §4.12.
const (
	TagExtendedRequestName    = 0
	TagExtendedRequestValue   = 1
	TagExtendedResponseName   = 10
	TagExtendedResponseValue  = 11
)

// ResultCode mirrors the LDAPResult::resultCode enumeration (RFC 4511 §4.1.9).
type ResultCode int64

const (
	ResultSuccess                      ResultCode = 0
	ResultOperationsError              ResultCode = 1
	ResultProtocolError                ResultCode = 2
	ResultTimeLimitExceeded            ResultCode = 3
	ResultSizeLimitExceeded            ResultCode = 4
	ResultCompareFalse                 ResultCode = 5
	ResultCompareTrue                  ResultCode = 6
	ResultAuthMethodNotSupported       ResultCode = 7
	ResultStrongerAuthRequired         ResultCode = 8
	ResultReferral                     ResultCode = 10
	ResultAdminLimitExceeded           ResultCode = 11
	ResultUnavailableCriticalExtension ResultCode = 12
	ResultConfidentialityRequired      ResultCode = 13
	ResultSaslBindInProgress           ResultCode = 14
	ResultNoSuchAttribute              ResultCode = 16
	ResultUndefinedAttributeType       ResultCode = 17
	ResultInappropriateMatching        ResultCode = 18
	ResultConstraintViolation          ResultCode = 19
	ResultAttributeOrValueExists       ResultCode = 20
	ResultInvalidAttributeSyntax       ResultCode = 21
	ResultNoSuchObject                 ResultCode = 32
	ResultAliasProblem                 ResultCode = 33
	ResultInvalidDNSyntax              ResultCode = 34
	ResultAliasDereferencingProblem    ResultCode = 36
	ResultInappropriateAuthentication  ResultCode = 48
	ResultInvalidCredentials           ResultCode = 49
	ResultInsufficientAccessRights     ResultCode = 50
	ResultBusy                         ResultCode = 51
	ResultUnavailable                  ResultCode = 52
	ResultUnwillingToPerform           ResultCode = 53
	ResultLoopDetect                   ResultCode = 54
	ResultNamingViolation              ResultCode = 64
	ResultObjectClassViolation         ResultCode = 65
	ResultNotAllowedOnNonLeaf          ResultCode = 66
	ResultNotAllowedOnRDN              ResultCode = 67
	ResultEntryAlreadyExists           ResultCode = 68
	ResultObjectClassModsProhibited    ResultCode = 69
	ResultAffectsMultipleDSAs          ResultCode = 71
	ResultOther                        ResultCode = 80
)

// Short aliases for the BER class and type constants used by this
// package's encoders and decoders.
const (
	classUniversal   = ber.ClassUniversal
	classApplication = ber.ClassApplication
	classContext     = ber.ClassContext
	typePrimitive    = ber.TypePrimitive
	typeConstructed  = ber.TypeConstructed
)
