package ldapc

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/smnsjas/go-ldapc/internal/security"
)

// connectTimeout is the read timeout installed at connect time (design §5).
const connectTimeout = 10 * time.Second

// Stream is the byte-stream abstraction (C1): blocking read/write plus the
// three properties the rest of the library needs to enforce the
// confidentiality precondition and drive SASL channel binding.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	// Confidential reports whether credentials may cross this stream
	// without an additional SASL confidentiality layer.
	Confidential() bool

	// NeedsSecurityLayer reports whether a GSSAPI bind over this stream
	// must negotiate its own confidentiality layer. True for plain TCP,
	// false once TLS is already in force.
	NeedsSecurityLayer() bool

	// ChannelBindings returns the tls-server-end-point channel-binding
	// bytes for this stream, or nil if the stream has none (plain TCP).
	ChannelBindings() []byte
}

// tcpStream is a plain, unencrypted TCP byte stream.
type tcpStream struct {
	conn net.Conn
}

func newTCPStream(conn net.Conn) *tcpStream { return &tcpStream{conn: conn} }

func (s *tcpStream) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *tcpStream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *tcpStream) Close() error                { return s.conn.Close() }
func (s *tcpStream) Confidential() bool          { return false }
func (s *tcpStream) NeedsSecurityLayer() bool    { return true }
func (s *tcpStream) ChannelBindings() []byte     { return nil }
func (s *tcpStream) netConn() net.Conn           { return s.conn }

// rawConnStream is implemented by streams that can hand back the
// underlying net.Conn, for operations that need to layer a new protocol
// on top of an existing byte stream (StartTLS).
type rawConnStream interface {
	netConn() net.Conn
}

// tlsStream wraps a TLS connection. It supplies tls-server-end-point
// channel-binding bytes computed from the server's leaf certificate per
// RFC 5929 §4.1, the "pure-software TLS" variant B from design §3: the
// ASCII literal "tls-server-end-point:" followed by the lowercase hex of
// the certificate's signature-algorithm-matched hash.
//
// Go's crypto/tls does not expose the platform's own tls-server-end-point
// computation (variant A in design §3 is for hosts with a system TLS
// library that does), so this type always computes the hash itself; the
// two variants converge on an identical channel-binding string for any
// certificate whose signature uses SHA-256, SHA-384 or SHA-512.
type tlsStream struct {
	conn *tls.Conn
}

func newTLSStream(conn *tls.Conn) *tlsStream { return &tlsStream{conn: conn} }

func (s *tlsStream) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *tlsStream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *tlsStream) Close() error                { return s.conn.Close() }
func (s *tlsStream) Confidential() bool          { return true }
func (s *tlsStream) NeedsSecurityLayer() bool    { return false }

func (s *tlsStream) ChannelBindings() []byte {
	state := s.conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	hash := certificateEndPointHash(state.PeerCertificates[0])
	if hash == nil {
		return nil
	}
	binding := append([]byte("tls-server-end-point:"), []byte(fmt.Sprintf("%x", hash))...)
	return binding
}

// certificateEndPointHash selects the certificate hash by signature
// algorithm: SHA-384 for SHA384WithRSA and ECDSAWithSHA384, SHA-512 for
// SHA512WithRSA and ECDSAWithSHA512, and SHA-256 for every other
// algorithm, the RSA-PSS variants included. Grounded on the equivalent switch in an LDAP GSSAPI/SSPI client
// (calculateCertificateHash), generalized from crypto.Hash selection to
// Go's stdlib hash implementations directly.
func certificateEndPointHash(cert *x509.Certificate) []byte {
	switch cert.SignatureAlgorithm {
	case x509.SHA384WithRSA, x509.ECDSAWithSHA384:
		sum := sha512.Sum384(cert.Raw)
		return sum[:]
	case x509.SHA512WithRSA, x509.ECDSAWithSHA512:
		sum := sha512.Sum512(cert.Raw)
		return sum[:]
	default:
		sum := sha256.Sum256(cert.Raw)
		return sum[:]
	}
}

// kerberosStream overlays the RFC 4752 §3.1 GSSAPI confidentiality layer
// (design §4.4.3 step 4) on top of an inner byte stream: every outbound
// buffer is GSS-wrapped, then framed with a 4-byte big-endian length
// prefix naming the wrapped token's length; every inbound read reverses
// that. This framing is specific to this library's reading of spec step
// 4 and is deliberately simpler than the teacher's MS-WSMV RRC-rotated
// signature framing (wsman/auth's Wrap/Unwrap), which this client has no
// reason to reproduce - LDAP's SASL security layer has no WS-Man
// envelope to re-sign.
type kerberosStream struct {
	inner    Stream
	provider security.ConfidentialityProvider
	maxSize  uint32

	readBuf []byte
}

func newKerberosStream(inner Stream, provider security.ConfidentialityProvider, maxSize uint32) *kerberosStream {
	return &kerberosStream{inner: inner, provider: provider, maxSize: maxSize}
}

func (s *kerberosStream) Write(p []byte) (int, error) {
	wrapped, err := s.provider.Wrap(p)
	if err != nil {
		return 0, fmt.Errorf("ldapc: kerberos security layer: wrap: %w", err)
	}
	if err := s.checkFrameLength(uint32(len(wrapped))); err != nil {
		return 0, err
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(wrapped)))
	if _, err := writeAll(s.inner, header); err != nil {
		return 0, fmt.Errorf("ldapc: kerberos security layer: write length prefix: %w", err)
	}
	if _, err := writeAll(s.inner, wrapped); err != nil {
		return 0, fmt.Errorf("ldapc: kerberos security layer: write wrapped payload: %w", err)
	}
	return len(p), nil
}

func (s *kerberosStream) Read(p []byte) (int, error) {
	if len(s.readBuf) == 0 {
		plaintext, err := s.readFrame()
		if err != nil {
			return 0, err
		}
		s.readBuf = plaintext
	}
	n := copy(p, s.readBuf)
	s.readBuf = s.readBuf[n:]
	return n, nil
}

func (s *kerberosStream) readFrame() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(s.inner, header); err != nil {
		return nil, fmt.Errorf("ldapc: kerberos security layer: read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(header)
	if err := s.checkFrameLength(length); err != nil {
		return nil, err
	}
	wrapped := make([]byte, length)
	if _, err := io.ReadFull(s.inner, wrapped); err != nil {
		return nil, fmt.Errorf("ldapc: kerberos security layer: read wrapped payload: %w", err)
	}
	plaintext, err := s.provider.Unwrap(wrapped)
	if err != nil {
		return nil, fmt.Errorf("ldapc: kerberos security layer: unwrap: %w", err)
	}
	return plaintext, nil
}

func (s *kerberosStream) checkFrameLength(length uint32) error {
	if length == 0 {
		return fmt.Errorf("ldapc: kerberos security layer: zero-length frame")
	}
	if s.maxSize > 0 && length > s.maxSize {
		return fmt.Errorf("ldapc: kerberos security layer: frame of %d octets exceeds negotiated maximum %d", length, s.maxSize)
	}
	return nil
}

func (s *kerberosStream) Close() error {
	providerErr := s.provider.Close()
	innerErr := s.inner.Close()
	if providerErr != nil {
		return providerErr
	}
	return innerErr
}

func (s *kerberosStream) Confidential() bool       { return true }
func (s *kerberosStream) NeedsSecurityLayer() bool { return false }
func (s *kerberosStream) ChannelBindings() []byte  { return nil }

// dial opens a plain TCP connection with the connect-time read timeout
// applied, per design §5.
func dial(network, addr string) (net.Conn, error) {
	conn, err := net.DialTimeout(network, addr, connectTimeout)
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(connectTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func dialTLS(network, addr, domain string, config *tls.Config) (*tls.Conn, error) {
	raw, err := dial(network, addr)
	if err != nil {
		return nil, err
	}
	cfg := config.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = domain
	}
	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.Handshake(); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return tlsConn, nil
}
