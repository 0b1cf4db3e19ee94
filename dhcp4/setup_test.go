package dhcp4

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/apcore/portal"
)

var (
	mac1 = net.HardwareAddr{0x00, 0x02, 0x03, 0x04, 0x05, 0x01}
	mac2 = net.HardwareAddr{0x00, 0x02, 0x03, 0x04, 0x05, 0x02}
	mac3 = net.HardwareAddr{0x00, 0x02, 0x03, 0x04, 0x05, 0x03}

	xid1 = []byte{0x11, 0x22, 0x33, 0x44}

	netAddr = netip.MustParsePrefix("192.168.4.1/24")
)

// testConn records replies written by the handler; it never blocks.
type testConn struct {
	replies [][]byte
	dst     []net.Addr
}

func (c *testConn) ReadFrom(b []byte) (int, net.Addr, error) { return 0, nil, portal.ErrInvalidConn }
func (c *testConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	c.replies = append(c.replies, portal.CopyBytes(b))
	c.dst = append(c.dst, addr)
	return len(b), nil
}
func (c *testConn) Close() error                       { return nil }
func (c *testConn) LocalAddr() net.Addr                { return nil }
func (c *testConn) SetDeadline(t time.Time) error      { return nil }
func (c *testConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *testConn) SetWriteDeadline(t time.Time) error { return nil }

type testContext struct {
	h     *Handler
	conn  *testConn
	nowMs uint32 // fake millisecond tick counter
}

func setupTestHandler(t *testing.T) *testContext {
	t.Helper()
	tc := &testContext{conn: &testConn{}, nowMs: 1000}
	h, err := Config{
		NetAddr: netAddr,
		Conn:    tc.conn,
		Ticks:   func() uint32 { return tc.nowMs },
	}.New()
	if err != nil {
		t.Fatal("failed to create handler", err)
	}
	tc.h = h
	return tc
}

// lastReply returns the most recent reply written by the handler or
// fails the test when the count does not match.
func (tc *testContext) lastReply(t *testing.T, want int) DHCP4 {
	t.Helper()
	if len(tc.conn.replies) != want {
		t.Fatalf("reply count=%d want=%d", len(tc.conn.replies), want)
	}
	if want == 0 {
		return nil
	}
	return DHCP4(tc.conn.replies[len(tc.conn.replies)-1])
}

func discoverPacket(mac net.HardwareAddr, xid []byte) DHCP4 {
	return RequestPacket(Discover, mac, net.IPv4zero.To4(), xid, true, nil)
}

func requestPacket(mac net.HardwareAddr, reqIP net.IP, xid []byte) DHCP4 {
	return RequestPacket(Request, mac, net.IPv4zero.To4(), xid, true,
		Options{OptionRequestedIPAddress: reqIP.To4()})
}

func checkOffer(t *testing.T, p DHCP4, mt MessageType, yiaddr net.IP) {
	t.Helper()
	if err := p.IsValid(); err != nil {
		t.Fatal("invalid reply packet", err)
	}
	if p.OpCode() != BootReply {
		t.Errorf("opcode=%v want=%v", p.OpCode(), BootReply)
	}
	options := p.ParseOptions()
	if got := options[OptionMessageType]; len(got) != 1 || MessageType(got[0]) != mt {
		t.Errorf("message type=%v want=%v", got, mt)
	}
	if !p.YIAddr().Equal(yiaddr) {
		t.Errorf("yiaddr=%s want=%s", p.YIAddr(), yiaddr)
	}
}
