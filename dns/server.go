package dns

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/apcore/portal"
	log "github.com/sirupsen/logrus"
)

// Debug enable/disable debug messages
var Debug bool

// ServerPort is the standard DNS port.
const ServerPort = 53

// answerLen is the fixed size of the single synthesized answer record:
// compressed name pointer, type, class, TTL, rdlength and the address.
const answerLen = 2 + 2 + 2 + 4 + 2 + 4

// answerTTL is written into every answer; nothing tracks it afterwards.
const answerTTL = 60

// Config contains configuration overrides
type Config struct {
	LocalIP netip.Addr     // the address every answer carries
	Conn    net.PacketConn // listen connection; override for testing
}

// Handler answers every query with the configured local address. It is
// stateless between datagrams.
type Handler struct {
	conn    net.PacketConn
	localIP [4]byte
	closed  bool
	sync.Mutex
}

// New returns a dns handler answering with localIP.
func New(localIP netip.Addr, conn net.PacketConn) (*Handler, error) {
	return Config{LocalIP: localIP, Conn: conn}.New()
}

// New accepts a configuration structure and returns a dns handler.
func (config Config) New() (*Handler, error) {
	if !config.LocalIP.Is4() {
		return nil, fmt.Errorf("local ip %s: %w", config.LocalIP, portal.ErrInvalidIP)
	}
	if config.Conn == nil {
		return nil, portal.ErrInvalidConn
	}
	return &Handler{conn: config.Conn, localIP: config.LocalIP.As4()}, nil
}

// Close releases the listen socket.
func (h *Handler) Close() error {
	h.Lock()
	defer h.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}

// Serve reads queries from the connection until Close, answering each
// one in turn.
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
			return fmt.Errorf("dns read: %w", err)
		}
		if err := h.ProcessPacket(srcAddr, buffer[:n]); err != nil && debugging() {
			log.WithField("error", err).Debug("dns: query dropped")
		}
	}
}

// ProcessPacket validates one query and replies with an authoritative
// answer pointing at the local address. The question section is echoed
// unchanged; the answer is written in place after it using a
// compressed name pointer. Every failure is a silent drop.
func (h *Handler) ProcessPacket(srcAddr net.Addr, b []byte) error {
	if len(b) < headerLen {
		return portal.ErrFrameLen
	}

	// work on a bounded copy; oversized input is truncated like every
	// other fixed buffer in this stack
	var msg [maxMessageSize]byte
	n := copy(msg[:], b)
	p := DNS(msg[:n])

	if p.QR() {
		return fmt.Errorf("not a query: %w", portal.ErrParseFrame)
	}
	if p.OpCode() != 0 {
		return fmt.Errorf("opcode %d not a standard query: %w", p.OpCode(), portal.ErrParseFrame)
	}
	if p.QDCount() < 1 {
		return fmt.Errorf("no question: %w", portal.ErrParseFrame)
	}

	index, err := skipQuestionName(p, headerLen)
	if err != nil {
		return err
	}
	index += 4 // qtype and qclass
	if index > n {
		return fmt.Errorf("truncated question: %w", portal.ErrParseFrame)
	}
	if index+answerLen > maxMessageSize {
		return fmt.Errorf("no room for answer: %w", portal.ErrParseFrame)
	}

	// answer record: pointer to the question name, type A, class IN
	answer := msg[index:]
	answer[0] = 0xc0
	answer[1] = headerLen
	answer[2], answer[3] = 0, 1 // type A
	answer[4], answer[5] = 0, 1 // class IN
	answer[6], answer[7], answer[8], answer[9] = 0, 0, 0, answerTTL
	answer[10], answer[11] = 0, 4
	copy(answer[12:16], h.localIP[:])

	// header: response, authoritative, recursion available; one
	// question, one answer
	msg[2] = 0x80 | 0x04
	msg[3] = 0x80
	msg[4], msg[5] = 0, 1
	msg[6], msg[7] = 0, 1
	msg[8], msg[9] = 0, 0
	msg[10], msg[11] = 0, 0

	if debugging() {
		log.WithFields(log.Fields{"src": srcAddr, "len": index + answerLen}).Debug("dns: sending local answer")
	}
	if _, err := h.conn.WriteTo(msg[:index+answerLen], srcAddr); err != nil {
		return fmt.Errorf("dns send: %w", err)
	}
	return nil
}

func debugging() bool {
	return Debug && log.IsLevelEnabled(log.DebugLevel)
}
