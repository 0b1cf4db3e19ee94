package dhcp4

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// handleDiscover selects a pool slot and stages an OFFER without
// committing the lease.
//
// Selection runs over the table exactly once, first match wins:
//  1. an entry already bound to the requester's hardware address is
//     always reused, even when found late in the scan;
//  2. otherwise the first free or expired slot seen becomes the
//     candidate; expired slots are reclaimed as they are considered.
//
// A full table produces no reply at all - the pool stays silent rather
// than NAKing, and the client keeps retrying against the same silence.
func (h *Handler) handleDiscover(p DHCP4, options Options) DHCP4 {
	mac := chaddr6(p)
	now := h.ticks()

	slot := len(h.table)
	for i := range h.table {
		if h.table[i].MAC == mac {
			// hardware address match, reuse this slot
			slot = i
			break
		}
		if slot == len(h.table) {
			if h.table[i].free() {
				slot = i
				continue
			}
			if h.table[i].expired(now) {
				// lease lapsed, reclaim the slot
				h.table[i] = Lease{}
				slot = i
			}
		}
	}
	if slot == len(h.table) {
		log.WithFields(log.Fields{"mac": net.HardwareAddr(mac[:]), "xid": p.XId()}).Info("dhcp4: discover - pool exhausted, failing silently")
		return nil
	}

	yiaddr := h.leaseIP(slot)
	if debugging() {
		log.WithFields(log.Fields{"mac": net.HardwareAddr(mac[:]), "ip": yiaddr, "xid": p.XId()}).Debug("dhcp4: discover - offer staged")
	}
	return ReplyPacket(p, Offer, net.IP(h.serverIP[:]), yiaddr, h.mask, h.leaseTime)
}
