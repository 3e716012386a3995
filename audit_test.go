package ldapc

import (
	"testing"

	"github.com/smnsjas/go-ldapc/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAuditHookReportsSuccessfulBind(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	var events []BindAuditEvent
	WithAuditHook(conn, func(e BindAuditEvent) { events = append(events, e) })

	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultSuccess, "ok") }()

	_, err := BindSimpleAnonymously(conn)
	require.NoError(t, err)
	require.NoError(t, <-errc)

	require.Len(t, events, 1)
	assert.Equal(t, BindMethodSimpleAnonymously, events[0].Method)
	assert.True(t, events[0].Success)
	assert.NoError(t, events[0].Err)
}

func TestWithAuditHookReportsFailedBind(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	var events []BindAuditEvent
	WithAuditHook(conn, func(e BindAuditEvent) { events = append(events, e) })

	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultInvalidCredentials, "nope") }()

	_, err := UnsafeBindSimpleAuthenticated(conn, "cn=admin,dc=example,dc=com", "wrong")
	require.Error(t, err)
	require.NoError(t, <-errc)

	require.Len(t, events, 1)
	assert.Equal(t, BindMethodSimpleAuthenticated, events[0].Method)
	assert.False(t, events[0].Success)
	assert.Error(t, events[0].Err)
}

func TestAuditHookSurvivesBindStateTransition(t *testing.T) {
	conn, server := newTestConnPairNotConfidential()
	var calls int
	WithAuditHook(conn, func(BindAuditEvent) { calls++ })

	errc := make(chan error, 1)
	go func() { errc <- respondBindResponse(server, wire.ResultSuccess, "") }()
	bound, err := BindSimpleAnonymously(conn)
	require.NoError(t, err)
	require.NoError(t, <-errc)

	assert.Equal(t, 1, calls)
	assert.NotNil(t, bound)
	assert.NotNil(t, bound.auditHook)
}
