package httpd

import (
	"bytes"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
)

// maxRequestSize bounds the bytes read from a client. Longer requests
// are truncated; the route prefixes all fit well inside the limit.
const maxRequestSize = 512

type connState int

const (
	stateAwaitingRequest connState = iota
	stateResponseQueued
	stateClosing
)

// conn serves exactly one request. It reads at most maxRequestSize
// bytes, resolves a response, writes headers then body as two writes
// and closes. A write error at any point releases the body and closes
// immediately. No read deadline is set; an idle client holds the
// connection open until it closes its end.
type conn struct {
	rwc   net.Conn
	state connState
	buf   [maxRequestSize]byte
	resp  *Response
}

func (c *conn) serve(resolver Resolver) {
	defer c.rwc.Close()

	n, err := c.rwc.Read(c.buf[:])
	if err != nil && n == 0 {
		c.state = stateClosing
		return
	}

	request := c.buf[:n]
	if i := bytes.IndexByte(request, 0); i >= 0 {
		request = request[:i]
	}

	c.resp = resolver(string(request))
	if c.resp == nil {
		c.resp = NewResponse(500, "Internal Server Error")
		c.resp.AddHeader("Content-Type", "%s", defaultContentType)
		c.resp.Body = []byte("<html><body><h1>500 - Internal server error</h1></body></html>")
	}
	c.state = stateResponseQueued

	if err := c.writeResponse(); err != nil {
		c.resp.Body = nil
		if debugging() {
			log.WithField("error", err).Debug("httpd: write failed")
		}
	}
	c.resp = nil
	c.state = stateClosing
}

// writeResponse sends the status line plus headers in one write and the
// body in a second write, releasing the body once sent.
func (c *conn) writeResponse() error {
	var header bytes.Buffer
	fmt.Fprintf(&header, "HTTP/1.1 %d %s\r\n", c.resp.StatusCode, c.resp.StatusMessage)
	header.WriteString(c.resp.Headers())
	if !c.resp.HasHeader("Content-Length") {
		fmt.Fprintf(&header, "Content-Length: %d\r\n", len(c.resp.Body))
	}
	header.WriteString("\r\n")

	if _, err := c.rwc.Write(header.Bytes()); err != nil {
		return fmt.Errorf("httpd write headers: %w", err)
	}
	if len(c.resp.Body) > 0 {
		if _, err := c.rwc.Write(c.resp.Body); err != nil {
			return fmt.Errorf("httpd write body: %w", err)
		}
	}
	c.resp.Body = nil
	return nil
}
