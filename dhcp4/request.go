package dhcp4

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// handleRequest commits a lease and replies with an ACK.
//
// The requested address must sit on the local subnet (first three
// octets equal to the server's) and inside the pool. A slot that is
// free or already bound to the requesting hardware address is
// committed; a slot held by a different client is silently dropped.
// No NAK is sent in any rejection path - contention is left to the
// client's retry cycle, a deliberate simplification for a pool this
// small.
func (h *Handler) handleRequest(p DHCP4, options Options) DHCP4 {
	reqIP, ok := options[OptionRequestedIPAddress]
	if !ok || len(reqIP) != 4 {
		if debugging() {
			log.WithField("xid", p.XId()).Debug("dhcp4: request - no requested ip, dropping")
		}
		return nil
	}
	if reqIP[0] != h.serverIP[0] || reqIP[1] != h.serverIP[1] || reqIP[2] != h.serverIP[2] {
		if debugging() {
			log.WithFields(log.Fields{"ip": net.IP(reqIP), "xid": p.XId()}).Debug("dhcp4: request - not on local subnet, dropping")
		}
		return nil
	}

	slot := int(reqIP[3]) - h.base
	if slot < 0 || slot >= len(h.table) {
		if debugging() {
			log.WithFields(log.Fields{"ip": net.IP(reqIP), "xid": p.XId()}).Debug("dhcp4: request - outside pool, dropping")
		}
		return nil
	}

	mac := chaddr6(p)
	switch {
	case h.table[slot].MAC == mac:
		// same client renewing or confirming its offer
	case h.table[slot].free():
		h.table[slot].MAC = mac
	default:
		// slot held by another client; drop without NAK
		log.WithFields(log.Fields{"ip": net.IP(reqIP), "mac": net.HardwareAddr(mac[:])}).Info("dhcp4: request - address in use, dropping")
		return nil
	}
	h.table[slot].Expiry = compressExpiry(h.ticks(), h.leaseTime)

	yiaddr := h.leaseIP(slot)
	log.WithFields(log.Fields{"mac": net.HardwareAddr(mac[:]), "ip": yiaddr}).Info("dhcp4: client connected")
	return ReplyPacket(p, ACK, net.IP(h.serverIP[:]), yiaddr, h.mask, h.leaseTime)
}
