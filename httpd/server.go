// Package httpd implements the captive portal web server. Each accepted
// connection is served by a tiny state machine that answers exactly one
// request from a bounded buffer and closes. There is no keep-alive, no
// chunked encoding and no read deadline.
package httpd

import (
	"fmt"
	"net"
	"sync"

	"github.com/apcore/portal"
	log "github.com/sirupsen/logrus"
)

// Debug enables verbose logging of connection handling.
var Debug bool

const ServerPort = 80

type Config struct {
	Listener net.Listener
	Resolver Resolver
}

// New returns an http handler serving resolver's responses on listener.
func New(listener net.Listener, resolver Resolver) (*Handler, error) {
	return Config{Listener: listener, Resolver: resolver}.New()
}

// New accepts a configuration structure and returns an http handler.
func (config Config) New() (*Handler, error) {
	if config.Listener == nil {
		return nil, portal.ErrInvalidConn
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("nil resolver: %w", portal.ErrInvalidConn)
	}
	return &Handler{listener: config.Listener, resolver: config.Resolver}, nil
}

// Handler accepts connections and serves one response per connection.
type Handler struct {
	sync.Mutex
	listener net.Listener
	resolver Resolver
	closed   bool
}

// Close stops the accept loop. In-flight connections finish their
// single response.
func (h *Handler) Close() error {
	h.Lock()
	defer h.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.listener.Close()
}

// Serve accepts connections until Close, one goroutine per connection.
func (h *Handler) Serve() error {
	for {
		rwc, err := h.listener.Accept()
		if err != nil {
			h.Lock()
			closed := h.closed
			h.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("httpd accept: %w", err)
		}
		if debugging() {
			log.WithField("remote", rwc.RemoteAddr()).Debug("httpd: accept")
		}
		c := &conn{rwc: rwc, state: stateAwaitingRequest}
		go c.serve(h.resolver)
	}
}

func debugging() bool {
	return Debug && log.IsLevelEnabled(log.DebugLevel)
}
