// Package wire reads and writes the minimal HTTP/1.x framing spoken by the
// intercepting proxy over raw and TLS-wrapped sockets.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const (
	// ChunkSize is the size of each read from the underlying stream.
	ChunkSize = 1024
	// MaxHeaders is the number of header lines a request may carry.
	MaxHeaders = 16
)

// Parse errors. They are recorded on Request.Err rather than returned.
var (
	ErrNothingToRead        = errors.New("nothing to read")
	ErrIncomplete           = errors.New("incomplete request")
	ErrTooManyHeaders       = errors.New("too many headers")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMalformedHeader      = errors.New("malformed header")
)

// Version is an HTTP protocol version. The zero value means unknown.
type Version struct {
	Major uint8
	Minor uint8
}

// HTTP11 is the version used when a request carried none.
var HTTP11 = Version{Major: 1, Minor: 1}

func (v Version) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}

// IsZero reports whether the version is unknown.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Header is a single name/value pair. Order is significant.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Request is the result of one Parse call.
// Err is nil exactly when Method, Path and Version were all extracted.
type Request struct {
	Method  string
	Path    string
	Version Version
	Headers []Header
	// Body holds whatever followed the header block in the bytes read.
	Body []byte
	Err  error
}

// OK reports whether the request parsed successfully.
func (r *Request) OK() bool {
	return r.Err == nil
}

// Header returns the first value for name, compared case-insensitively.
func (r *Request) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (r *Request) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Request{error: %v}", r.Err)
	}
	return fmt.Sprintf("Request{method: %s, path: %s, version: %s}", r.Method, r.Path, r.Version)
}

// Parse reads from rd in ChunkSize reads until a short read, then parses
// the request line and headers out of the accumulated bytes.
func Parse(rd io.Reader) *Request {
	return parse(rd, false)
}

// ParseTunnel is Parse for the opening plaintext request, whose target is
// host[:port]. The port is stripped so Path carries only the host.
func ParseTunnel(rd io.Reader) *Request {
	return parse(rd, true)
}

func parse(rd io.Reader, stripPort bool) *Request {
	req := &Request{}

	buf, err := readAvailable(rd)
	if err != nil {
		req.Err = err
		return req
	}

	if err := req.parseHead(buf); err != nil {
		*req = Request{Err: err}
		return req
	}
	if stripPort {
		req.Path = hostOnly(req.Path)
	}
	return req
}

// readAvailable stops at the first read shorter than ChunkSize. A read of
// zero bytes or a read error ends the loop as a failure.
func readAvailable(rd io.Reader) ([]byte, error) {
	var all []byte
	chunk := make([]byte, ChunkSize)
	for {
		n, err := rd.Read(chunk)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, ErrNothingToRead
			}
			return nil, fmt.Errorf("read failed: %w", err)
		}
		all = append(all, chunk[:n]...)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if n < ChunkSize || err != nil {
			return all, nil
		}
	}
}

func (r *Request) parseHead(buf []byte) error {
	line, rest, ok := nextLine(buf)
	for ok && len(line) == 0 {
		line, rest, ok = nextLine(rest)
	}
	if !ok {
		return ErrIncomplete
	}

	if err := r.parseRequestLine(string(line)); err != nil {
		return err
	}

	for {
		line, rest, ok = nextLine(rest)
		if !ok {
			return ErrIncomplete
		}
		if len(line) == 0 {
			break
		}
		if len(r.Headers) == MaxHeaders {
			return fmt.Errorf("%w: limit is %d", ErrTooManyHeaders, MaxHeaders)
		}
		h, err := parseHeader(string(line))
		if err != nil {
			return err
		}
		r.Headers = append(r.Headers, h)
	}

	r.Body = rest
	return nil
}

func (r *Request) parseRequestLine(line string) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	method, target, proto := parts[0], parts[1], parts[2]

	if !httpguts.ValidHeaderFieldName(method) {
		return fmt.Errorf("%w: invalid method %q", ErrMalformedRequestLine, method)
	}
	if target == "" {
		return fmt.Errorf("%w: empty request target", ErrMalformedRequestLine)
	}

	switch proto {
	case "HTTP/1.0":
		r.Version = Version{Major: 1, Minor: 0}
	case "HTTP/1.1":
		r.Version = Version{Major: 1, Minor: 1}
	default:
		return fmt.Errorf("%w: unsupported version %q", ErrMalformedRequestLine, proto)
	}

	r.Method = method
	r.Path = target
	return nil
}

func parseHeader(line string) (Header, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok || !httpguts.ValidHeaderFieldName(name) {
		return Header{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	value = strings.Trim(value, " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return Header{}, fmt.Errorf("%w: invalid value for %s", ErrMalformedHeader, name)
	}
	return Header{Name: name, Value: value}, nil
}

// nextLine splits off one LF-terminated line, dropping a trailing CR.
func nextLine(buf []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, buf, false
	}
	return bytes.TrimSuffix(buf[:i], []byte{'\r'}), buf[i+1:], true
}

func hostOnly(target string) string {
	if host, _, err := net.SplitHostPort(target); err == nil {
		return host
	}
	return target
}
