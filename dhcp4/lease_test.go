package dhcp4

import (
	"net"
	"testing"
	"time"
)

func TestLeaseExpired(t *testing.T) {
	tests := []struct {
		name    string
		expiry  uint16
		nowMs   uint32
		expired bool
	}{
		{"fresh lease", compressExpiry(1000, 24*time.Hour), 1000, false},
		{"lapsed lease", 0x0100, 0x02000000, true},
		{"boundary still valid", 0x0100, 0x0100ffff, false},
		{"just past boundary", 0x0100, 0x01010000, true},
		// the tick counter wrapped: now is numerically small but later
		// than the stored expiry
		{"now wrapped, lease lapsed", 0xfff0, 0x00200000, true},
		// lease granted just before the wrap, expiry wrapped to a small
		// value while now is still large
		{"expiry wrapped, lease valid", 0x0002, 0xffff0000, false},
	}

	for _, tt := range tests {
		lease := Lease{MAC: [6]byte{1}, Expiry: tt.expiry}
		if got := lease.expired(tt.nowMs); got != tt.expired {
			t.Errorf("%s: expired=%v want=%v", tt.name, got, tt.expired)
		}
	}
}

func TestExpiryWraparoundReclaim(t *testing.T) {
	tc := setupTestHandler(t)

	// counter wrapped: now is small, the stored expiry is numerically
	// larger but in the past
	tc.nowMs = 0x00200000
	var mac [6]byte
	copy(mac[:], mac2)
	tc.h.table[0] = Lease{MAC: mac, Expiry: 0xfff0}

	if err := tc.h.ProcessPacket(nil, discoverPacket(mac1, xid1)); err != nil {
		t.Fatal(err)
	}
	checkOffer(t, tc.lastReply(t, 1), Offer, net.IPv4(192, 168, 4, 16).To4())
	if !tc.h.table[0].free() {
		t.Errorf("wrapped expired lease not reclaimed: %s", tc.h.table[0])
	}
}

func TestCompressExpiry(t *testing.T) {
	got := compressExpiry(0, 24*time.Hour)
	if want := uint16(86400000 >> 16); got != want {
		t.Errorf("compressExpiry=0x%04x want=0x%04x", got, want)
	}
	// truncation drops the low 16 bits only
	if a, b := compressExpiry(1, 24*time.Hour), compressExpiry(0xffff, 24*time.Hour); a != b && a+1 != b {
		t.Errorf("unexpected truncation: 0x%04x 0x%04x", a, b)
	}
}
