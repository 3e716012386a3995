package ldapc

import (
	"testing"

	"github.com/smnsjas/go-ldapc/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindSaslExternalSuccess(t *testing.T) {
	conn, server := newTestConnPair(true)
	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultSuccess, "") }()

	bound, err := BindSaslExternal(conn, "")
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, "tls", bound.State().TransportVariant)
}

func TestBindSaslExternalFailure(t *testing.T) {
	conn, server := newTestConnPair(true)
	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultInvalidCredentials, "no cert presented") }()

	_, err := BindSaslExternal(conn, "")
	require.NoError(t, <-errc)
	require.Error(t, err)
	var bindErr *ExternalBindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, wire.ResultInvalidCredentials, bindErr.Code)
}

func TestUnsafeBindSaslExternalOverPlainStreamReportsTCPVariant(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultSuccess, "") }()

	bound, err := UnsafeBindSaslExternal(conn, "dn:cn=admin,dc=example,dc=com")
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, "tcp", bound.State().TransportVariant)
}
