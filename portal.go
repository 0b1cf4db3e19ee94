// Package portal holds the pieces shared by the access point network
// services: the device configuration, common sentinel errors and the
// in-memory packet conn used in tests.
//
// The device runs three independent protocol engines on a single
// configured interface: a DHCP server handing out leases on the local
// subnet, a captive DNS responder answering every query with the device
// address and a minimal one-request HTTP server. Each engine owns its
// own listener and state; nothing here is shared between them except
// the configured address and netmask.
package portal

import (
	"errors"
	"net"
)

// Debug enables additional logging in all packages
var Debug bool

var (
	ErrFrameLen      = errors.New("invalid frame length")
	ErrParseFrame    = errors.New("failed to parse frame")
	ErrInvalidIP     = errors.New("invalid ip")
	ErrInvalidConn   = errors.New("invalid connection")
	ErrNoLeases      = errors.New("no leases available")
	ErrHandlerClosed = errors.New("handler closed")
	ErrNotFound      = errors.New("not found")
)

// CopyBytes returns a copy of b; the engines retain client identifiers
// beyond the lifetime of the receive buffer.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	t := make([]byte, len(b))
	copy(t, b)
	return t
}

// CopyIP returns a copy of srcIP in 4-byte form when possible.
func CopyIP(srcIP net.IP) net.IP {
	if t := srcIP.To4(); t != nil {
		srcIP = t
	}
	ip := make(net.IP, len(srcIP))
	copy(ip, srcIP)
	return ip
}

// CopyMAC returns a copy of srcMAC.
func CopyMAC(srcMAC net.HardwareAddr) net.HardwareAddr {
	mac := make(net.HardwareAddr, len(srcMAC))
	copy(mac, srcMAC)
	return mac
}
