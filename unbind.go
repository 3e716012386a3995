package ldapc

import (
	"fmt"

	"github.com/smnsjas/go-ldapc/internal/wire"
)

// Unbind sends the UnbindRequest protocolOp (RFC 4511 §4.3) and closes the
// underlying stream. UnbindRequest has no response; per the RFC, the
// client simply closes the connection afterwards. It is legal from any
// Bound state (design §4.3's "Bound* --> Unbound via unbind" edges); the
// Conn must not be used again after this call, bound or not.
func (c *Conn[S, C]) Unbind() error {
	op := wire.EncodeUnbindRequest()
	id := c.allocateMessageID()
	payload := wire.Envelope(id, op)
	c.logger.Debug("ldapc: sending unbind", "messageID", id)
	if _, err := writeAll(c.stream, payload); err != nil {
		_ = c.stream.Close()
		return fmt.Errorf("ldapc: unbind: write: %w", err)
	}
	c.stats.MessagesSent++
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("ldapc: unbind: close: %w", err)
	}
	return nil
}
