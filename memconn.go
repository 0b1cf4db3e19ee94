package portal

import (
	"net"
	"time"
)

// bufferedPacketConn is a net.PacketConn pipe to enable testing of the
// UDP engines without sockets. Writes on one end surface as reads on
// the other, one datagram per read.
type bufferedPacketConn struct {
	conn    net.Conn
	reading bool
}

// TestNewBufferedConn creates a mem conn pair for testing; a is the
// server side, b the client side.
func TestNewBufferedConn() (a *bufferedPacketConn, b *bufferedPacketConn) {
	a = &bufferedPacketConn{}
	b = &bufferedPacketConn{}
	a.conn, b.conn = net.Pipe()
	// a sits in the server's read loop and b's first write cannot
	// block; b reads every reply before sending the next request
	a.reading = true
	b.reading = true
	return a, b
}

func (p *bufferedPacketConn) Close() error {
	return p.conn.Close()
}

func (p *bufferedPacketConn) LocalAddr() net.Addr                { return nil }
func (p *bufferedPacketConn) SetDeadline(t time.Time) error      { return nil }
func (p *bufferedPacketConn) SetReadDeadline(t time.Time) error  { return nil }
func (p *bufferedPacketConn) SetWriteDeadline(t time.Time) error { return nil }

func (p *bufferedPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	p.reading = true
	n, err := p.conn.Read(b)
	return n, nil, err
}

func (p *bufferedPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if !p.reading {
		panic("buffered conn writing without read will block forever")
	}
	n, err := p.conn.Write(b)
	return n, err
}
