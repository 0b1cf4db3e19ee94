//go:build linux
// +build linux

// Package netcfg assigns the portal address to the access point
// interface before the engines start. The engines never read interface
// state themselves; they receive the address as configuration.
package netcfg

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// EnsureAddr assigns prefix to the named interface and brings it up.
// Calling it with an address already present is not an error.
func EnsureAddr(nic string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(nic)
	if err != nil {
		return fmt.Errorf("netcfg: interface %s: %w", nic, err)
	}

	addr := &netlink.Addr{IPNet: &net.IPNet{
		IP:   prefix.Addr().AsSlice(),
		Mask: net.CIDRMask(prefix.Bits(), 32),
	}}
	if err := netlink.AddrAdd(link, addr); err != nil {
		if !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("netcfg: assign %s to %s: %w", prefix, nic, err)
		}
		log.WithFields(log.Fields{"interface": nic, "addr": prefix}).Debug("netcfg: address already assigned")
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("netcfg: link up %s: %w", nic, err)
	}
	log.WithFields(log.Fields{"interface": nic, "addr": prefix}).Info("netcfg: interface configured")
	return nil
}
