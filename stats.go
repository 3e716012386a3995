package ldapc

// ConnStats is a snapshot of one connection's message-transport counters
// (design §5's ambient data-model supplement). It is cheap to copy and
// safe to read at any time via Conn.Stats; the counters are not reset
// across bind-state transitions, since transitionBind carries the prior
// Conn's stats value forward.
type ConnStats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	WriteErrors      uint64
	ReadErrors       uint64
}
