package ldapc

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"reflect"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/smnsjas/go-ldapc/internal/wire"
)

// Re-export the wire package's scope, deref-aliases and filter vocabulary
// so callers never import internal/wire directly (design §6: "opaque LDAP
// enumerations, passed through verbatim").
type (
	Scope          = wire.Scope
	DerefAliases   = wire.DerefAliases
	Filter         = wire.Filter
	And            = wire.And
	Or             = wire.Or
	Not            = wire.Not
	Equality       = wire.Equality
	GreaterOrEqual = wire.GreaterOrEqual
	LessOrEqual    = wire.LessOrEqual
	Approx         = wire.Approx
	Present        = wire.Present
	Substrings     = wire.Substrings
	Extensible     = wire.Extensible
)

const (
	ScopeBaseObject   = wire.ScopeBaseObject
	ScopeSingleLevel  = wire.ScopeSingleLevel
	ScopeWholeSubtree = wire.ScopeWholeSubtree

	NeverDerefAliases   = wire.NeverDerefAliases
	DerefInSearching    = wire.DerefInSearching
	DerefFindingBaseObj = wire.DerefFindingBaseObj
	DerefAlways         = wire.DerefAlways
)

// SearchResults is the lazy, single-pass sequence of decoded entries
// produced by Search (C5). It holds the connection's stream exclusively
// for its lifetime (design §3, §5): no other operation may be issued on
// the connection until the iterator reaches its terminal state.
type SearchResults[T any] struct {
	stream Stream
	logger *slog.Logger
	buf    []byte
	done   bool
	err    error
}

// Search sends a SearchRequest built from base/scope/derefAliases/filter,
// requesting exactly the attributes T's descriptor names (design §4.5),
// and returns an iterator over decoded entries. It does not wait for any
// response: results stream as the iterator is driven.
func Search[T any](conn connLike, base string, scope Scope, derefAliases DerefAliases, filter Filter) (*SearchResults[T], error) {
	var zero T
	attrs := []string{"*"}
	if reflect.TypeOf(zero) != reflect.TypeOf(RawEntry{}) {
		desc, err := descriptorFor(reflect.TypeOf(zero))
		if err != nil {
			return nil, err
		}
		if len(desc.fields) > 0 {
			attrs = desc.attributeNames()
		}
	}

	req := wire.SearchRequest{
		BaseObject:   base,
		Scope:        scope,
		DerefAliases: derefAliases,
		SizeLimit:    0,
		TimeLimit:    0,
		TypesOnly:    false,
		Filter:       filter,
		Attributes:   attrs,
	}
	op := wire.EncodeSearchRequest(req)
	if err := conn.sendUnacknowledged(op); err != nil {
		return nil, err
	}
	return &SearchResults[T]{stream: conn.streamRef(), logger: conn.loggerRef()}, nil
}

// connLike is satisfied by every Conn[S, C] instantiation: Search accepts
// any bind state because the typestate diagram (design §4.3) permits
// search from any Bound* state, and Go generics cannot express "any S
// satisfying Bound, for any C" as a single concrete parameterisation of
// Conn without this indirection.
type connLike interface {
	sendUnacknowledged(op *ber.Packet) error
	streamRef() Stream
	loggerRef() *slog.Logger
}

func (c *Conn[S, C]) sendUnacknowledged(op *ber.Packet) error {
	id := c.allocateMessageID()
	payload := wire.Envelope(id, op)
	if _, err := writeAll(c.stream, payload); err != nil {
		c.stats.WriteErrors++
		return &MessageError{Io: fmt.Errorf("write search request: %w", err)}
	}
	c.stats.MessagesSent++
	return nil
}

func (c *Conn[S, C]) streamRef() Stream        { return c.stream }
func (c *Conn[S, C]) loggerRef() *slog.Logger { return c.logger }

// Next advances the iterator and reports whether it produced an item.
// item is either an entry (possibly with a non-nil, non-terminating err -
// design §7: "A search-level parse error on one entry is yielded as an
// Err from the iterator; the iterator does not terminate - the next
// next() resumes reading the following PDU") or a terminal error (a
// non-Success SearchResultDone, or a transport failure). A false return
// means the sequence is exhausted; check Err only to distinguish a clean
// SearchResultDone(Success) from a terminal error already consumed by a
// prior call whose ok was true.
func (r *SearchResults[T]) Next() (item T, err error, ok bool) {
	var zero T
	if r.done {
		return zero, nil, false
	}
	result := r.step()
	if result.skip {
		return r.Next()
	}
	if result.terminal {
		r.done = true
		r.err = result.err
		if result.err == nil {
			return zero, nil, false
		}
		return zero, result.err, true
	}
	if _, isRaw := any(zero).(RawEntry); isRaw {
		return any(*result.entry).(T), nil, true
	}
	mapped, merr := mapEntry[T](*result.entry)
	return mapped, merr, true
}

// Err returns the error that terminated the iterator, if any. It is only
// meaningful after Next has returned ok=false.
func (r *SearchResults[T]) Err() error { return r.err }

// stepResult is one dispatched protocolOp, or instructions for the
// driving loop in Next.
type stepResult struct {
	entry    *RawEntry // set only for a successfully decoded SearchResultEntry
	err      error     // non-nil when terminal is true and this is a real failure
	terminal bool      // true: iteration is over after this result
	skip     bool      // true: no item produced (e.g. a reference PDU); caller loops
}

// step decodes buffered data or reads more, dispatching one protocolOp.
func (r *SearchResults[T]) step() stepResult {
	for {
		n, perr := wire.PeekMessageLength(r.buf)
		if perr == nil {
			msg, derr := wire.DecodeMessage(r.buf[:n])
			r.buf = r.buf[n:]
			if derr != nil {
				return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindMalformedLdapMessage, Err: derr}}
			}
			return r.dispatch(msg)
		}
		if !errors.Is(perr, wire.ErrIncomplete) {
			return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindMalformedLdapMessage, Err: perr}}
		}

		chunk := make([]byte, 1024)
		readN, rerr := r.stream.Read(chunk)
		if readN > 0 {
			r.buf = append(r.buf, chunk[:readN]...)
		}
		if rerr != nil && readN == 0 {
			if errors.Is(rerr, io.EOF) {
				return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindIo, Err: ErrConnectionReset}}
			}
			return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindIo, Err: rerr}}
		}
	}
}

func (r *SearchResults[T]) dispatch(msg *wire.Message) stepResult {
	switch msg.Op.Tag {
	case wire.TagSearchResultEntry:
		raw, derr := wire.DecodeSearchResultEntry(msg.Op)
		if derr != nil {
			if r.logger != nil {
				r.logger.Warn("ldapc: failed to decode search result entry, skipping", "messageID", msg.ID, "error", derr)
			}
			return stepResult{skip: true} // malformed entry: boundary intact, skip and keep going
		}
		mapped := rawEntryFromWire(raw)
		return stepResult{entry: &mapped}
	case wire.TagSearchResultReference:
		_, _ = wire.DecodeSearchResultReference(msg.Op)
		return stepResult{skip: true}
	case wire.TagSearchResultDone:
		result, derr := wire.DecodeSearchResultDone(msg.Op)
		if derr != nil {
			return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindMalformedLdapMessage, Err: derr}}
		}
		return stepResult{terminal: true, err: searchResultDoneError(result)}
	default:
		return stepResult{terminal: true, err: &SearchResultError{Kind: searchKindInvalidLdapMessage, Err: fmt.Errorf("unexpected protocolOp tag %d", msg.Op.Tag)}}
	}
}

func searchResultDoneError(result wire.LDAPResult) error {
	switch result.ResultCode {
	case wire.ResultSuccess:
		return nil
	case wire.ResultNoSuchObject:
		return &SearchResultError{Kind: searchKindNoSuchObject, MatchedDN: result.MatchedDN, Message: result.DiagnosticMessage}
	case wire.ResultOperationsError:
		return &SearchResultError{Kind: searchKindOperationsError, Message: result.DiagnosticMessage}
	case wire.ResultInsufficientAccessRights:
		return &SearchResultError{Kind: searchKindInsufficientAccessRights, Message: result.DiagnosticMessage}
	case wire.ResultTimeLimitExceeded:
		return &SearchResultError{Kind: searchKindTimeLimitExceeded, Message: result.DiagnosticMessage}
	case wire.ResultSizeLimitExceeded:
		return &SearchResultError{Kind: searchKindSizeLimitExceeded, Message: result.DiagnosticMessage}
	case wire.ResultInappropriateMatching, wire.ResultInvalidAttributeSyntax:
		return &SearchResultError{Kind: searchKindFilterError, Message: result.DiagnosticMessage}
	default:
		return &SearchResultError{Kind: searchKindOther, Code: result.ResultCode, Message: result.DiagnosticMessage, MatchedDN: result.MatchedDN}
	}
}

// All returns an iter.Seq2 adapter over Next, for callers who prefer
// range-over-func:
//
//	for entry, err := range results.All() { ... }
func (r *SearchResults[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			entry, err, ok := r.Next()
			if !ok {
				return
			}
			if !yield(entry, err) {
				return
			}
		}
	}
}
