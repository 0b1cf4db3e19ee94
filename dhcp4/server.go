// Package dhcp4 implements the DHCP server side of the access point:
// a fixed pool of addresses on the local subnet handed out to joining
// clients. The handler processes one datagram at a time and owns the
// lease table exclusively; every rejection path is a silent drop, as
// clients retransmit per protocol convention.
package dhcp4

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/apcore/portal"
	log "github.com/sirupsen/logrus"
)

// Debug enable/disable debug messages
var Debug bool

// DHCP4 port numbers
const (
	ServerPort = 67
	ClientPort = 68
)

// Config contains configuration overrides
type Config struct {
	NetAddr    netip.Prefix   // server address and netmask; also offered as router and DNS
	PoolSize   int            // number of assignable addresses
	BaseOffset int            // last octet of the first pool address
	LeaseTime  time.Duration  // defaults to 24h
	Conn       net.PacketConn // listen connection; override for testing
	Ticks      func() uint32  // millisecond tick source; override for testing
}

// Handler is the DHCP server. It reacts to delivered datagrams and
// issues replies on the injected connection; it never creates sockets.
type Handler struct {
	conn      net.PacketConn
	serverIP  [4]byte // server, router and DNS address offered to clients
	mask      net.IPMask
	base      int
	leaseTime time.Duration
	table     []Lease
	ticks     func() uint32
	closed    bool
	sync.Mutex
}

// New returns a dhcp handler with defaults matching the device: pool of
// eight addresses starting at offset 16, 24 hour leases.
func New(netAddr netip.Prefix, conn net.PacketConn) (*Handler, error) {
	return Config{NetAddr: netAddr, Conn: conn}.New()
}

// New accepts a configuration structure and returns a dhcp handler.
func (config Config) New() (*Handler, error) {
	if !config.NetAddr.IsValid() || !config.NetAddr.Addr().Is4() {
		return nil, fmt.Errorf("net addr %s: %w", config.NetAddr, portal.ErrInvalidIP)
	}
	if config.Conn == nil {
		return nil, portal.ErrInvalidConn
	}
	if config.PoolSize == 0 {
		config.PoolSize = 8
	}
	if config.BaseOffset == 0 {
		config.BaseOffset = 16
	}
	if config.BaseOffset+config.PoolSize > 255 {
		return nil, fmt.Errorf("pool size %d at offset %d exceeds subnet: %w", config.PoolSize, config.BaseOffset, portal.ErrInvalidIP)
	}
	if config.LeaseTime == 0 {
		config.LeaseTime = time.Hour * 24
	}
	if config.Ticks == nil {
		start := time.Now()
		config.Ticks = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}

	h := &Handler{
		conn:      config.Conn,
		serverIP:  config.NetAddr.Addr().As4(),
		mask:      net.CIDRMask(config.NetAddr.Bits(), 32),
		base:      config.BaseOffset,
		leaseTime: config.LeaseTime,
		table:     make([]Lease, config.PoolSize),
		ticks:     config.Ticks,
	}
	return h, nil
}

// Close releases the listen socket. Lease state is discarded.
func (h *Handler) Close() error {
	h.Lock()
	defer h.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}

// Serve reads datagrams from the connection until Close. Processing is
// strictly sequential; each datagram runs to completion before the
// next read.
func (h *Handler) Serve() error {
	buffer := make([]byte, 1500)
	for {
		n, srcAddr, err := h.conn.ReadFrom(buffer)
		if err != nil {
			h.Lock()
			closed := h.closed
			h.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("dhcp4 read: %w", err)
		}
		if err := h.ProcessPacket(srcAddr, buffer[:n]); err != nil && debugging() {
			log.WithField("error", err).Debug("dhcp4: packet dropped")
		}
	}
}

// ProcessPacket parses one inbound datagram, updates the lease table
// and sends the OFFER or ACK when one is due. The returned error is
// for the caller's accounting only; no reply is ever sent on failure.
func (h *Handler) ProcessPacket(srcAddr net.Addr, b []byte) error {
	p := DHCP4(b)
	if err := p.IsValid(); err != nil {
		return err
	}

	options := p.ParseOptions()
	t, ok := options[OptionMessageType]
	if !ok || len(t) != 1 {
		return fmt.Errorf("missing message type: %w", portal.ErrParseFrame)
	}

	var response DHCP4
	h.Lock()
	switch MessageType(t[0]) {
	case Discover:
		response = h.handleDiscover(p, options)
	case Request:
		response = h.handleRequest(p, options)
	default:
		// Decline, Release and Inform carry nothing this pool tracks.
	}
	h.Unlock()

	if response == nil {
		return nil
	}

	dstAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: ClientPort}
	if udpAddr, ok := srcAddr.(*net.UDPAddr); ok && !p.Broadcast() {
		if ip := udpAddr.IP.To4(); ip != nil && !ip.IsUnspecified() {
			dstAddr = &net.UDPAddr{IP: ip, Port: ClientPort}
		}
	}
	if debugging() {
		log.WithFields(log.Fields{"dst": dstAddr, "xid": fmt.Sprintf("% x", response.XId())}).Debug("dhcp4: send reply")
	}
	if _, err := h.conn.WriteTo(response, dstAddr); err != nil {
		return fmt.Errorf("dhcp4 send: %w", err)
	}
	return nil
}

// leaseIP returns the pool address for slot: the server address with
// the last octet replaced by base + slot.
func (h *Handler) leaseIP(slot int) net.IP {
	return net.IPv4(h.serverIP[0], h.serverIP[1], h.serverIP[2], byte(h.base+slot)).To4()
}

// chaddr6 extracts the 6 byte hardware address from the 16 byte chaddr
// field; the pool keys leases on ethernet addresses only.
func chaddr6(p DHCP4) (mac [6]byte) {
	copy(mac[:], p[28:34])
	return mac
}

func debugging() bool {
	return Debug && log.IsLevelEnabled(log.DebugLevel)
}
