//go:build linux
// +build linux

package dhcp4

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// NewListener opens the server socket on UDP port 67 with the options
// a DHCP server needs: broadcast replies, address reuse and, when an
// interface name is given, binding to that interface so replies leave
// on the link the request arrived on.
func NewListener(ifname string) (net.PacketConn, error) {
	var serr error
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if serr != nil {
					return
				}
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
				if serr != nil {
					return
				}
				if ifname != "" {
					serr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifname)
				}
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", ServerPort))
	if err != nil {
		return nil, fmt.Errorf("dhcp4 listen port %d: %w", ServerPort, err)
	}
	return conn, nil
}
