// Package dns implements the captive resolver of the access point:
// every well formed single question A query is answered with the
// device's own address, redirecting all client traffic to the local
// http server. There is no recursion, no cache and no negative
// responses; malformed or unanswerable queries are silently dropped.
package dns

import (
	"encoding/binary"
	"fmt"

	"github.com/apcore/portal"
)

// DNS overlays a raw message as specified in RFC 1035.
//
//	DNS header
//	0  1  2  3  4  5  6  7  8  9  0  1  2  3  4  5
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                      ID                       |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA|   Z    |   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    QDCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    ANCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    NSCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    ARCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
type DNS []byte

const (
	headerLen = 12

	// maxMessageSize bounds every message this responder touches;
	// larger input is processed from the copied prefix only.
	maxMessageSize = 300

	// maxNameLen is the RFC 1035 limit on a question name span.
	maxNameLen = 255

	// maxLabelLen is the RFC 1035 limit on a single label.
	maxLabelLen = 63
)

func (p DNS) IsValid() error {
	if len(p) >= headerLen {
		return nil
	}
	return portal.ErrFrameLen
}

func (p DNS) String() string {
	return fmt.Sprintf("qr=%v opcode=%d qdcount=%d ancount=%d len=%d", p.QR(), p.OpCode(), p.QDCount(), p.ANCount(), len(p))
}

func (p DNS) TransactionID() uint16 { return binary.BigEndian.Uint16(p[:2]) }
func (p DNS) QR() bool              { return p[2]&0x80 != 0 }                    // 1 - response ; 0 - query
func (p DNS) OpCode() int           { return int(p[2]>>3) & 0x0F }               // 0 for a standard query
func (p DNS) AA() bool              { return p[2]&0x04 != 0 }                    // authoritative answer
func (p DNS) TC() bool              { return p[2]&0x02 != 0 }                    // truncated answer
func (p DNS) RD() bool              { return p[2]&0x01 != 0 }                    // recursion desired
func (p DNS) RA() bool              { return p[3]&0x80 != 0 }                    // recursion available
func (p DNS) ResponseCode() int     { return int(p[3]) & 0x0F }                  // response code
func (p DNS) QDCount() uint16       { return binary.BigEndian.Uint16(p[4:6]) }   // question count
func (p DNS) ANCount() uint16       { return binary.BigEndian.Uint16(p[6:8]) }   // answer count
func (p DNS) NSCount() uint16       { return binary.BigEndian.Uint16(p[8:10]) }  // authority record count
func (p DNS) ARCount() uint16       { return binary.BigEndian.Uint16(p[10:12]) } // additional record count

// skipQuestionName walks the length prefixed labels starting at index
// and returns the offset just past the terminating zero byte. Label
// and total name length limits are enforced while scanning; the scan
// never reads past the message.
func skipQuestionName(p DNS, index int) (int, error) {
	start := index
	for {
		if index >= len(p) {
			return 0, fmt.Errorf("unterminated question name: %w", portal.ErrParseFrame)
		}
		labelLen := int(p[index])
		if labelLen == 0 {
			index++
			break
		}
		if labelLen > maxLabelLen {
			return 0, fmt.Errorf("label length %d: %w", labelLen, portal.ErrParseFrame)
		}
		index += 1 + labelLen
	}
	if index-start > maxNameLen {
		return 0, fmt.Errorf("question name span %d: %w", index-start, portal.ErrParseFrame)
	}
	return index, nil
}
