package e2e

import (
	"fmt"
	"net"
	"time"

	"github.com/ehrlich-b/xddgo/internal/constants"
)

// Conn wraps a net.Conn (TCP or UDP) with the E2E framing helpers and,
// for UDP, a receive timeout standing in for the original tool's
// retry/ignore loss policy: a timed-out receive returns ErrTimeout and
// the frame is not retried (§9 Open Question: E2E transport kept on
// stdlib net with a RecvTimeout-based UDP loss policy).
type Conn struct {
	conn      net.Conn
	transport Transport
	recvTimeout time.Duration
}

// DialSource connects to a destination target's listen address for the
// given transport.
func DialSource(transport Transport, addr string) (*Conn, error) {
	network := "tcp"
	if transport == TransportUDP {
		network = "udp"
	}
	c, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("e2e: dial %s %s: %w", network, addr, err)
	}
	return &Conn{conn: c, transport: transport, recvTimeout: constants.DefaultRecvTimeout}, nil
}

// Listener is a destination-side listener: a TCP listener that hands out
// Conns through AcceptTCP, or a bound UDP packet socket, for which only
// Addr and Close are provided.
type Listener struct {
	transport Transport
	tcpLn     net.Listener
	udpConn   net.PacketConn
}

// Listen opens a destination-side listener on addr.
func Listen(transport Transport, addr string) (*Listener, error) {
	if transport == TransportUDP {
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("e2e: listen udp %s: %w", addr, err)
		}
		return &Listener{transport: transport, udpConn: pc}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("e2e: listen tcp %s: %w", addr, err)
	}
	return &Listener{transport: transport, tcpLn: ln}, nil
}

// AcceptTCP blocks for the next TCP source connection. Only valid for a
// TransportTCP listener.
func (l *Listener) AcceptTCP() (*Conn, error) {
	c, err := l.tcpLn.Accept()
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c, transport: TransportTCP}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	if l.transport == TransportUDP {
		return l.udpConn.LocalAddr()
	}
	return l.tcpLn.Addr()
}

// Close releases the listener.
func (l *Listener) Close() error {
	if l.transport == TransportUDP {
		return l.udpConn.Close()
	}
	return l.tcpLn.Close()
}

// SetRecvTimeout configures how long a UDP Conn's read waits before
// treating a frame as lost (returning ErrTimeout). No effect on TCP,
// which relies on the transport's own reliability.
func (c *Conn) SetRecvTimeout(d time.Duration) {
	c.recvTimeout = d
}

// ErrTimeout is returned by Receive when a UDP read exceeds its
// configured RecvTimeout. It is distinct from *ErrProtocol; a Worker
// Agent counts any error from its E2E receive hook, this one included,
// as an op error.
var ErrTimeout = fmt.Errorf("e2e: receive timeout")

// Send writes a DATA frame over the connection.
func (c *Conn) Send(seq, byteLocation uint64, payload []byte) error {
	return WriteFrame(c.conn, seq, byteLocation, payload)
}

// SendEOF writes a terminal EOF frame.
func (c *Conn) SendEOF(seq uint64) error {
	return WriteEOF(c.conn, seq)
}

// Receive reads the next frame, applying the configured RecvTimeout for
// UDP connections.
func (c *Conn) Receive(buf []byte) (Header, []byte, error) {
	if c.transport == TransportUDP && c.recvTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.recvTimeout)); err != nil {
			return Header{}, nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	hdr, payload, err := ReadFrame(c.conn, buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Header{}, nil, ErrTimeout
		}
		return Header{}, nil, err
	}
	return hdr, payload, nil
}

// Close releases the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// RemoteAddr returns the connection's peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
