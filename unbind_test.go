package ldapc

import (
	"testing"

	"github.com/smnsjas/go-ldapc/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnbindSendsRequestAndClosesStream(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	done := make(chan struct{})
	var gotTag int
	go func() {
		defer close(done)
		msg, err := wire.ReadMessage(server)
		if err == nil {
			gotTag = msg.Op.Tag
		}
		buf := make([]byte, 1)
		_, _ = server.Read(buf) // observe the client closing its half
	}()

	require.NoError(t, conn.Unbind())
	<-done
	assert.Equal(t, wire.TagUnbindRequest, gotTag)
	assert.EqualValues(t, 1, conn.Stats().MessagesSent)
}

func TestUnbindIsLegalFromAnyState(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultSuccess, "") }()

	bound, err := BindSimpleAnonymously(conn)
	require.NoError(t, err)
	require.NoError(t, <-errc)

	serverDone := make(chan error, 1)
	go func() {
		_, err := wire.ReadMessage(server)
		serverDone <- err
	}()
	require.NoError(t, bound.Unbind())
	require.NoError(t, <-serverDone)
}
