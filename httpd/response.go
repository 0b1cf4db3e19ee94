package httpd

import (
	"fmt"
	"strings"
)

// maxHeaderSize bounds the header area of a response. Headers past the
// limit are truncated rather than failing the response.
const maxHeaderSize = 512

// Response holds a status line, a bounded header area and a body. The
// zero value is not usable; create one with NewResponse.
type Response struct {
	StatusCode    int
	StatusMessage string
	Body          []byte

	headers   [maxHeaderSize]byte
	headerLen int
}

func NewResponse(code int, message string) *Response {
	return &Response{StatusCode: code, StatusMessage: message}
}

// AddHeader appends "key: value\r\n" to the header area, formatting the
// value printf style. A header that does not fit is truncated at the
// capacity and the response stays valid.
func (r *Response) AddHeader(key string, format string, args ...interface{}) {
	entry := key + ": " + fmt.Sprintf(format, args...) + "\r\n"
	n := copy(r.headers[r.headerLen:], entry)
	r.headerLen += n
}

// Headers returns the accumulated header block.
func (r *Response) Headers() string {
	return string(r.headers[:r.headerLen])
}

// HasHeader reports whether a header with the given key was added.
func (r *Response) HasHeader(key string) bool {
	return strings.Contains(r.Headers(), key+":")
}

func (r *Response) String() string {
	return fmt.Sprintf("status=%d %s hlen=%d blen=%d", r.StatusCode, r.StatusMessage, r.headerLen, len(r.Body))
}
