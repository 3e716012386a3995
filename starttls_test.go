package ldapc

import (
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/smnsjas/go-ldapc/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondExtendedResponse(server interface {
	Write([]byte) (int, error)
}, messageID uint32, code wire.ResultCode, responseName string, hasResponseName bool) error {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, wire.TagExtendedResponse, nil, "ExtendedResponse")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(code), "resultCode"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "diagnosticMessage"))
	if hasResponseName {
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, wire.TagExtendedResponseName, responseName, "responseName"))
	}
	_, err := server.Write(wire.Envelope(messageID, op))
	return err
}

func TestStartTLSRefusedByServer(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() {
		msg, err := wire.ReadMessage(server)
		if err != nil {
			errc <- err
			return
		}
		errc <- respondExtendedResponse(server, msg.ID, wire.ResultUnwillingToPerform, "", false)
	}()

	confidential, plain, err := StartTLS(conn, "dc1.example.com", nil)
	require.NoError(t, <-errc)
	require.Nil(t, confidential)
	require.NotNil(t, plain)
	require.Error(t, err)
	var tlsErr *StartTLSError
	require.ErrorAs(t, err, &tlsErr)
	assert.Equal(t, wire.ResultUnwillingToPerform, tlsErr.Code)
}

func TestStartTLSRejectsResponseNameMismatch(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() {
		msg, err := wire.ReadMessage(server)
		if err != nil {
			errc <- err
			return
		}
		errc <- respondExtendedResponse(server, msg.ID, wire.ResultSuccess, "1.2.3.4.5", true)
	}()

	confidential, plain, err := StartTLS(conn, "dc1.example.com", nil)
	require.NoError(t, <-errc)
	require.Nil(t, confidential)
	require.NotNil(t, plain)
	var tlsErr *StartTLSError
	require.ErrorAs(t, err, &tlsErr)
	assert.True(t, tlsErr.ResponseNameMismatch)
}

func TestStartTLSRequiresRawConnStream(t *testing.T) {
	client, _ := nonRawConnPipe()
	conn := newConn[Unbound, NotConfidential](client, Unbound{})

	_, plain, err := StartTLS(conn, "dc1.example.com", nil)
	require.NotNil(t, plain)
	require.Error(t, err)
}

// nonRawConnPipe builds a Stream that does not implement rawConnStream, to
// exercise StartTLS's precondition check.
func nonRawConnPipe() (Stream, Stream) {
	a, b := &opaqueStream{}, &opaqueStream{}
	return a, b
}

type opaqueStream struct{}

func (*opaqueStream) Read(p []byte) (int, error)  { return 0, nil }
func (*opaqueStream) Write(p []byte) (int, error) { return len(p), nil }
func (*opaqueStream) Close() error                { return nil }
func (*opaqueStream) Confidential() bool          { return false }
func (*opaqueStream) NeedsSecurityLayer() bool     { return true }
func (*opaqueStream) ChannelBindings() []byte     { return nil }
