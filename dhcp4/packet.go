// dhcp4 wire format parsing and creation for the RFC 2131 fixed layout.
//
// Initial implementation inspired by code written by http://richard.warburton.it/
// see: https://github.com/krolaw/dhcp4
//
// Copyright: 2014 Skagerrak Software - http://www.skagerraksoftware.com/
package dhcp4

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/apcore/portal"
)

type OptionCode byte
type OpCode byte
type MessageType byte // Option 53

// A DHCP4 packet overlays the raw wire bytes: fixed 240 byte header
// (op, xid, flags, four addresses, 16 byte chaddr, sname, file) plus a
// variable options area starting with the magic cookie.
type DHCP4 []byte

// minPacketLen is the fixed header, the cookie and at least one option
// byte. Anything shorter is dropped unread.
const minPacketLen = 240 + 3

func (p DHCP4) IsValid() error {
	if len(p) < minPacketLen {
		return portal.ErrFrameLen
	}
	if p.HLen() > 16 {
		return portal.ErrParseFrame
	}
	return nil
}

func (p DHCP4) String() string {
	return fmt.Sprintf("opcode=%v chaddr=%s ciaddr=%s yiaddr=%s len=%d", p.OpCode(), p.CHAddr(), p.CIAddr(), p.YIAddr(), len(p))
}

func (p DHCP4) OpCode() OpCode { return OpCode(p[0]) }
func (p DHCP4) HType() byte    { return p[1] }
func (p DHCP4) HLen() byte     { return p[2] }
func (p DHCP4) Hops() byte     { return p[3] }
func (p DHCP4) XId() []byte    { return p[4:8] }
func (p DHCP4) Secs() []byte   { return p[8:10] }
func (p DHCP4) Flags() []byte  { return p[10:12] }
func (p DHCP4) CIAddr() net.IP { return net.IP(p[12:16]) }
func (p DHCP4) YIAddr() net.IP { return net.IP(p[16:20]) }
func (p DHCP4) SIAddr() net.IP { return net.IP(p[20:24]) }
func (p DHCP4) GIAddr() net.IP { return net.IP(p[24:28]) }
func (p DHCP4) CHAddr() net.HardwareAddr {
	hLen := p.HLen()
	if hLen > 16 { // Prevent chaddr exceeding p boundary
		hLen = 16
	}
	return net.HardwareAddr(p[28 : 28+hLen]) // max endPos 44
}

// BOOTP legacy
func (p DHCP4) SName() []byte { return trimNull(p[44:108]) }

// BOOTP legacy
func (p DHCP4) File() []byte { return trimNull(p[108:236]) }

func trimNull(d []byte) []byte {
	for i, v := range d {
		if v == 0 {
			return d[:i]
		}
	}
	return d
}

func (p DHCP4) Cookie() []byte { return p[236:240] }
func (p DHCP4) Options() []byte {
	if len(p) > 240 {
		return p[240:]
	}
	return nil
}

func (p DHCP4) Broadcast() bool { return p.Flags()[0] > 127 }

func (p DHCP4) SetBroadcast(broadcast bool) {
	if p.Broadcast() != broadcast {
		p.Flags()[0] ^= 128
	}
}

func (p DHCP4) SetOpCode(c OpCode) { p[0] = byte(c) }
func (p DHCP4) SetCHAddr(a net.HardwareAddr) {
	copy(p[28:44], a)
	p[2] = byte(len(a))
}
func (p DHCP4) SetHType(hType byte)     { p[1] = hType }
func (p DHCP4) SetCookie(cookie []byte) { copy(p.Cookie(), cookie) }
func (p DHCP4) SetXId(xId []byte)       { copy(p.XId(), xId) }
func (p DHCP4) SetSecs(secs []byte)     { copy(p.Secs(), secs) }
func (p DHCP4) SetFlags(flags []byte)   { copy(p.Flags(), flags) }
func (p DHCP4) SetCIAddr(ip net.IP)     { copy(p.CIAddr(), ip.To4()) }
func (p DHCP4) SetYIAddr(ip net.IP)     { copy(p.YIAddr(), ip.To4()) }
func (p DHCP4) SetSIAddr(ip net.IP)     { copy(p.SIAddr(), ip.To4()) }
func (p DHCP4) SetGIAddr(ip net.IP)     { copy(p.GIAddr(), ip.To4()) }

// Map of DHCP options
type Options map[OptionCode][]byte

// ParseOptions scans the option area into a map. The scan is bounded by
// each option's declared length and terminates at End; a truncated
// option stops the scan without error.
func (p DHCP4) ParseOptions() Options {
	opts := p.Options()
	options := make(Options, 10)
	for len(opts) >= 2 && OptionCode(opts[0]) != End {
		if OptionCode(opts[0]) == Pad {
			opts = opts[1:]
			continue
		}
		size := int(opts[1])
		if len(opts) < 2+size {
			break
		}
		options[OptionCode(opts[0])] = opts[2 : 2+size]
		opts = opts[2+size:]
	}
	return options
}

func NewPacket(opCode OpCode) DHCP4 {
	p := make(DHCP4, 241)
	p.SetOpCode(opCode)
	p.SetHType(1) // Ethernet
	p.SetCookie(magicCookie)
	p[240] = byte(End)
	return p
}

var magicCookie = []byte{99, 130, 83, 99}

// AddOption appends a DHCP option to the end of a packet
func (p *DHCP4) AddOption(o OptionCode, value []byte) {
	*p = append((*p)[:len(*p)-1], byte(o), byte(len(value))) // Strip off End, add code and length
	*p = append(*p, value...)
	*p = append(*p, byte(End)) // Add on new End
}

// RequestPacket creates a request packet that a client would send to a
// server. Used by tests to drive the handler.
func RequestPacket(mt MessageType, chAddr net.HardwareAddr, cIAddr net.IP, xId []byte, broadcast bool, options Options) DHCP4 {
	p := NewPacket(BootRequest)
	p.SetCHAddr(chAddr)
	p.SetXId(xId)
	if cIAddr != nil {
		p.SetCIAddr(cIAddr)
	}
	p.SetBroadcast(broadcast)
	p.AddOption(OptionMessageType, []byte{byte(mt)})
	for code, value := range options {
		p.AddOption(code, value)
	}
	p.PadToMinSize()
	return p
}

// ReplyPacket creates a reply packet that the server sends to a client.
// It copies across the fields that associate the reply with the request
// and appends the common option tail every OFFER and ACK carries:
// server identifier, subnet mask, router and DNS (both the server
// itself) and the lease time.
func ReplyPacket(req DHCP4, mt MessageType, serverIP net.IP, yIAddr net.IP, mask net.IPMask, leaseDuration time.Duration) DHCP4 {
	p := NewPacket(BootReply)
	p.SetXId(req.XId())
	p.SetFlags(req.Flags())
	p.SetYIAddr(yIAddr)
	p.SetGIAddr(req.GIAddr())
	p.SetCHAddr(req.CHAddr())
	p.AddOption(OptionMessageType, []byte{byte(mt)})
	p.AddOption(OptionServerIdentifier, serverIP.To4())
	p.AddOption(OptionSubnetMask, mask)
	p.AddOption(OptionRouter, serverIP.To4()) // the device acts as gateway
	p.AddOption(OptionDomainNameServer, serverIP.To4())
	p.AddOption(OptionIPAddressLeaseTime, optionsLeaseTime(leaseDuration))
	p.PadToMinSize()
	return p
}

// PadToMinSize pads a packet so that when sent over UDP, the entire
// packet is 300 bytes (BOOTP min), to be compatible with really old devices.
var padder [272]byte

func (p *DHCP4) PadToMinSize() {
	if n := len(*p); n < 272 {
		*p = append(*p, padder[:272-n]...)
	}
}

// OpCodes
const (
	BootRequest OpCode = 1 // From Client
	BootReply   OpCode = 2 // From Server
)

// DHCP Message Type 53
const (
	Discover MessageType = 1 // Broadcast Packet From Client - Can I have an IP?
	Offer    MessageType = 2 // Broadcast From Server - Here's an IP
	Request  MessageType = 3 // Broadcast From Client - I'll take that IP (Also start for renewals)
	Decline  MessageType = 4 // Broadcast From Client - Sorry I can't use that IP
	ACK      MessageType = 5 // From Server, Yes you can have that IP
	NAK      MessageType = 6 // From Server, No you cannot have that IP
	Release  MessageType = 7 // From Client, I don't need that IP anymore
	Inform   MessageType = 8 // From Client, I have this IP and there's nothing you can do about it
)

// DHCP options. Only the codes the server emits or reads are named;
// requested options outside this set are ignored rather than erroring.
const (
	End                      OptionCode = 255
	Pad                      OptionCode = 0
	OptionSubnetMask         OptionCode = 1
	OptionRouter             OptionCode = 3
	OptionDomainNameServer   OptionCode = 6
	OptionHostName           OptionCode = 12
	OptionRequestedIPAddress OptionCode = 50
	OptionIPAddressLeaseTime OptionCode = 51
	OptionMessageType        OptionCode = 53
	OptionServerIdentifier   OptionCode = 54
	OptionParameterRequest   OptionCode = 55
	OptionMaximumMessageSize OptionCode = 57
	OptionVendorClassID      OptionCode = 60
	OptionClientIdentifier   OptionCode = 61
)

// optionsLeaseTime converts a time.Duration to the 4 byte big endian
// seconds value carried by OptionIPAddressLeaseTime.
func optionsLeaseTime(d time.Duration) []byte {
	leaseBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(leaseBytes, uint32(d/time.Second))
	return leaseBytes
}
