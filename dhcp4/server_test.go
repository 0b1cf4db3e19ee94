package dhcp4

import (
	"net"
	"testing"
	"time"

	"github.com/apcore/portal"
)

// TestServeHandshake drives a full DISCOVER/OFFER REQUEST/ACK exchange
// through the serve loop over an in-memory conn.
func TestServeHandshake(t *testing.T) {
	serverConn, clientConn := portal.TestNewBufferedConn()
	h, err := Config{NetAddr: netAddr, Conn: serverConn}.New()
	if err != nil {
		t.Fatal(err)
	}
	go h.Serve()
	defer h.Close()

	buffer := make([]byte, 1500)
	exchange := func(req DHCP4) DHCP4 {
		t.Helper()
		if _, err := clientConn.WriteTo(req, nil); err != nil {
			t.Fatal(err)
		}
		clientConn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := clientConn.ReadFrom(buffer)
		if err != nil {
			t.Fatal(err)
		}
		return DHCP4(portal.CopyBytes(buffer[:n]))
	}

	offer := exchange(discoverPacket(mac1, xid1))
	checkOffer(t, offer, Offer, net.IPv4(192, 168, 4, 16).To4())

	ack := exchange(requestPacket(mac1, offer.YIAddr(), xid1))
	checkOffer(t, ack, ACK, net.IPv4(192, 168, 4, 16).To4())
}

func TestNewRejectsMissingConn(t *testing.T) {
	if _, err := (Config{NetAddr: netAddr}).New(); err == nil {
		t.Error("expected error for nil conn")
	}
}

func TestNewRejectsOversizedPool(t *testing.T) {
	conn := &testConn{}
	if _, err := (Config{NetAddr: netAddr, Conn: conn, PoolSize: 200, BaseOffset: 100}).New(); err == nil {
		t.Error("expected error for pool exceeding subnet")
	}
}
