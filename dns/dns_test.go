package dns

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/apcore/portal"
	"golang.org/x/net/dns/dnsmessage"
)

var localIP = netip.MustParseAddr("192.168.4.1")

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

func setupTestHandler(t *testing.T) (*Handler, *testConn) {
	t.Helper()
	conn := &testConn{}
	h, err := New(localIP, conn)
	if err != nil {
		t.Fatal(err)
	}
	return h, conn
}

// query packs a standard single question A query for name.
func query(t *testing.T, name string) []byte {
	t.Helper()
	msg := dnsmessage.Message{
		Header: dnsmessage.Header{ID: 0x1234, RecursionDesired: true},
		Questions: []dnsmessage.Question{{
			Name:  dnsmessage.MustNewName(name),
			Type:  dnsmessage.TypeA,
			Class: dnsmessage.ClassINET,
		}},
	}
	b, err := msg.Pack()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAlwaysAnswersLocalAddress(t *testing.T) {
	h, conn := setupTestHandler(t)

	for _, name := range []string{"example.com.", "captive.apple.com.", "a.very.long.sub.domain.test.", "portal."} {
		conn.replies = nil
		if err := h.ProcessPacket(nil, query(t, name)); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(conn.replies) != 1 {
			t.Fatalf("%s: reply count=%d", name, len(conn.replies))
		}

		var msg dnsmessage.Message
		if err := msg.Unpack(conn.replies[0]); err != nil {
			t.Fatalf("%s: reply does not parse: %v", name, err)
		}
		if !msg.Header.Response || !msg.Header.Authoritative || !msg.Header.RecursionAvailable {
			t.Errorf("%s: header flags %+v", name, msg.Header)
		}
		if msg.Header.ID != 0x1234 {
			t.Errorf("%s: id=0x%04x", name, msg.Header.ID)
		}
		if len(msg.Questions) != 1 || msg.Questions[0].Name.String() != name {
			t.Errorf("%s: question not echoed: %+v", name, msg.Questions)
		}
		if len(msg.Answers) != 1 {
			t.Fatalf("%s: answer count=%d", name, len(msg.Answers))
		}
		answer := msg.Answers[0]
		if answer.Header.Name.String() != name {
			t.Errorf("%s: answer name=%s", name, answer.Header.Name)
		}
		if answer.Header.TTL != answerTTL {
			t.Errorf("%s: ttl=%d want=%d", name, answer.Header.TTL, answerTTL)
		}
		a, ok := answer.Body.(*dnsmessage.AResource)
		if !ok {
			t.Fatalf("%s: answer body %T", name, answer.Body)
		}
		if netip.AddrFrom4(a.A) != localIP {
			t.Errorf("%s: answer=%v want=%s", name, a.A, localIP)
		}
	}
}

func TestDropNotAQuery(t *testing.T) {
	h, conn := setupTestHandler(t)
	q := query(t, "example.com.")
	q[2] |= 0x80 // QR already set
	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for non-query")
	}
}

func TestDropNonStandardOpcode(t *testing.T) {
	h, conn := setupTestHandler(t)
	q := query(t, "example.com.")
	q[2] |= 2 << 3 // STATUS opcode
	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for non-standard query")
	}
}

func TestDropZeroQuestions(t *testing.T) {
	h, conn := setupTestHandler(t)
	q := make([]byte, headerLen) // empty header, qdcount 0
	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for zero questions")
	}
}

func TestDropShortMessage(t *testing.T) {
	h, conn := setupTestHandler(t)
	if err := h.ProcessPacket(nil, make([]byte, headerLen-1)); !errors.Is(err, portal.ErrFrameLen) {
		t.Errorf("error=%v want=%v", err, portal.ErrFrameLen)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for short message")
	}
}

func TestDropOversizedLabel(t *testing.T) {
	h, conn := setupTestHandler(t)

	q := make([]byte, 0, 100)
	q = append(q, 0x12, 0x34, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0) // header, qdcount 1
	q = append(q, 64)                                       // label length beyond the RFC limit
	for i := 0; i < 64; i++ {
		q = append(q, 'a')
	}
	q = append(q, 0, 0, 1, 0, 1)

	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for oversized label")
	}
}

func TestDropOversizedName(t *testing.T) {
	h, conn := setupTestHandler(t)

	// five 60 byte labels: each label is legal but the name span
	// exceeds 255
	q := make([]byte, 0, 400)
	q = append(q, 0x12, 0x34, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0)
	for i := 0; i < 5; i++ {
		q = append(q, 60)
		for j := 0; j < 60; j++ {
			q = append(q, 'a')
		}
	}
	q = append(q, 0, 0, 1, 0, 1)

	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for oversized name")
	}
}

func TestDropTruncatedQuestion(t *testing.T) {
	h, conn := setupTestHandler(t)

	q := query(t, "example.com.")
	q = q[:len(q)-3] // cut into qtype/qclass
	if err := h.ProcessPacket(nil, q); !errors.Is(err, portal.ErrParseFrame) {
		t.Errorf("error=%v want=%v", err, portal.ErrParseFrame)
	}
	if len(conn.replies) != 0 {
		t.Error("reply sent for truncated question")
	}
}

func TestServeAnswersOverPipe(t *testing.T) {
	serverConn, clientConn := portal.TestNewBufferedConn()
	h, err := New(localIP, serverConn)
	if err != nil {
		t.Fatal(err)
	}
	go h.Serve()
	defer h.Close()

	if _, err := clientConn.WriteTo(query(t, "portal.local."), nil); err != nil {
		t.Fatal(err)
	}
	buffer := make([]byte, 1500)
	n, _, err := clientConn.ReadFrom(buffer)
	if err != nil {
		t.Fatal(err)
	}

	var msg dnsmessage.Message
	if err := msg.Unpack(buffer[:n]); err != nil {
		t.Fatal(err)
	}
	if len(msg.Answers) != 1 {
		t.Fatalf("answer count=%d", len(msg.Answers))
	}
	if a := msg.Answers[0].Body.(*dnsmessage.AResource); netip.AddrFrom4(a.A) != localIP {
		t.Errorf("answer=%v want=%s", a.A, localIP)
	}
}
