package dhcp4

import (
	"fmt"
	"time"
)

// Lease binds a client hardware address to the pool slot it occupies.
// The zero value marks a free slot. Expiry is a compressed timestamp:
// the upper 16 bits of the millisecond tick counter at which the lease
// lapses. The table is never persisted; a restart frees every address.
type Lease struct {
	MAC    [6]byte
	Expiry uint16
}

var macZero = [6]byte{}

func (l Lease) free() bool { return l.MAC == macZero }

// expired reports whether the lease lapsed before nowMs. The stored
// expiry is widened back to milliseconds and compared with signed
// 32-bit arithmetic so the test survives tick counter wraparound.
func (l Lease) expired(nowMs uint32) bool {
	expiry := uint32(l.Expiry)<<16 | 0xffff
	return int32(expiry-nowMs) < 0
}

// compressExpiry truncates a future millisecond tick to the stored
// 16-bit representation.
func compressExpiry(nowMs uint32, d time.Duration) uint16 {
	return uint16((nowMs + uint32(d.Milliseconds())) >> 16)
}

func (l Lease) String() string {
	if l.free() {
		return "free"
	}
	return fmt.Sprintf("mac=%02x:%02x:%02x:%02x:%02x:%02x expiry=0x%04x",
		l.MAC[0], l.MAC[1], l.MAC[2], l.MAC[3], l.MAC[4], l.MAC[5], l.Expiry)
}
