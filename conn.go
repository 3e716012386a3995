package ldapc

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/smnsjas/go-ldapc/internal/log"
	"github.com/smnsjas/go-ldapc/internal/wire"
)

// Conn is an LDAP connection parameterised by its bind state S and
// confidentiality marker C. The state machine in design §4.3 is encoded
// here: transition methods are defined only on the (S, C) combinations
// for which the corresponding wire operation is legal, so calling an
// operation from the wrong state fails to compile.
type Conn[S BindState, C Confidentiality] struct {
	stream        Stream
	nextMessageID uint32
	state         S
	logger        *slog.Logger
	stats         ConnStats
	auditHook     AuditHook
}

func newConn[S BindState, C Confidentiality](stream Stream, state S) *Conn[S, C] {
	return &Conn[S, C]{
		stream:        stream,
		nextMessageID: 1,
		state:         state,
		logger:        log.New(),
	}
}

// State returns the connection's typestate value, which carries the
// diagnostic message the server returned at bind time (empty for Unbound).
func (c *Conn[S, C]) State() S { return c.state }

// Stats returns a snapshot of this connection's message-transport counters.
func (c *Conn[S, C]) Stats() ConnStats { return c.stats }

// Connect opens a plain TCP connection to addr (host:port, default LDAP
// port 389) and returns an Unbound, non-confidential connection.
func Connect(addr string) (*Conn[Unbound, NotConfidential], error) {
	conn, err := dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ldapc: connect %s: %w", addr, err)
	}
	return newConn[Unbound, NotConfidential](newTCPStream(conn), Unbound{}), nil
}

// ConnectTLS opens a TCP connection to addr and performs a TLS handshake
// (default LDAPS port 636), returning an Unbound, confidential connection.
// domain is the name used for certificate verification when config does
// not already set ServerName.
func ConnectTLS(addr, domain string, config *tls.Config) (*Conn[Unbound, ConfidentialStream], error) {
	tlsConn, err := dialTLS("tcp", addr, domain, config)
	if err != nil {
		return nil, fmt.Errorf("ldapc: connect TLS %s: %w", addr, err)
	}
	return newConn[Unbound, ConfidentialStream](newTLSStream(tlsConn), Unbound{}), nil
}

// NewUnbound wraps an already-connected, non-confidential byte stream
// (e.g. a net.Conn the caller dialed and configured itself).
func NewUnbound(conn net.Conn) *Conn[Unbound, NotConfidential] {
	return newConn[Unbound, NotConfidential](newTCPStream(conn), Unbound{})
}

// NewUnboundConfidential wraps an already-connected stream that the
// caller asserts is confidential (e.g. a pre-established TLS or Unix
// domain socket with equivalent guarantees).
func NewUnboundConfidential(stream Stream) *Conn[Unbound, ConfidentialStream] {
	return newConn[Unbound, ConfidentialStream](stream, Unbound{})
}

// allocateMessageID assigns the next outbound message id and advances the
// counter. Per design §3 / open question 1, this implementation saturates
// at math.MaxUint32 rather than wrapping to 1 or failing outright: a
// connection that has sent four billion requests is expected to have long
// since been recycled by the caller, and saturation keeps the monotone-id
// invariant (§8 property 1) intact for every id actually observed on the
// wire up to that point, at the cost of stalling rather than silently
// reusing an id after the practical limit.
func (c *Conn[S, C]) allocateMessageID() uint32 {
	id := c.nextMessageID
	if c.nextMessageID != math.MaxUint32 {
		c.nextMessageID++
	}
	return id
}

// sendSingleMessage implements C2's send_single_message: encode op, write
// it, then block until exactly one full LDAPMessage with a matching
// message id has been read. It is not re-entrant on one connection - the
// search iterator holds the connection exclusively while active (§5).
func (c *Conn[S, C]) sendSingleMessage(op *ber.Packet) (*wire.Message, error) {
	id := c.allocateMessageID()
	payload := wire.Envelope(id, op)
	c.logger.Debug("ldapc: sending message", "messageID", id, "bytes", len(payload))
	if _, err := writeAll(c.stream, payload); err != nil {
		c.stats.WriteErrors++
		return nil, &MessageError{Io: fmt.Errorf("write request: %w", err)}
	}
	c.stats.MessagesSent++

	msg, err := wire.ReadMessage(c.stream)
	if err != nil {
		c.stats.ReadErrors++
		if errors.Is(err, io.EOF) {
			err = ErrConnectionReset
		}
		return nil, &MessageError{Io: fmt.Errorf("read response: %w", err)}
	}
	c.stats.MessagesReceived++
	if msg.ID != id {
		return nil, &MessageError{UnsolicitedResponse: true}
	}
	return msg, nil
}

// writeAll retries partial writes until the full buffer has been written
// or an error occurs, per design §4.2 step 3 ("the underlying stream
// handles that").
func writeAll(w Stream, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("ldapc: zero-length write")
		}
	}
	return total, nil
}
