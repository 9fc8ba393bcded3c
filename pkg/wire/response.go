package wire

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response is a canned reply: status, ordered headers and raw body.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
}

// WriteTunnelEstablished answers the opening request so the client starts
// its TLS handshake. The version is echoed from that request.
func WriteTunnelEstablished(w io.Writer, v Version) error {
	if _, err := fmt.Fprintf(w, "HTTP/%d.%d 200\r\n\r\n", v.Major, v.Minor); err != nil {
		return fmt.Errorf("failed to write tunnel response: %w", err)
	}
	return nil
}

// WriteResponse writes resp as HTTP/1.{minor}, headers in their stored
// order, a blank line, the body and a trailing CRLF. Content-Length and
// Connection: close are appended when resp does not set them.
func WriteResponse(w io.Writer, v Version, resp *Response) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "HTTP/1.%d %s\r\n", v.Minor, statusText(resp.Status))
	for _, h := range framed(resp) {
		fmt.Fprintf(bw, "%s: %s\r\n", h.Name, h.Value)
	}
	bw.WriteString("\r\n")
	bw.Write(resp.Body)
	bw.WriteString("\r\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// WriteError writes a plain-text error reply on a connection whose request
// could not be served.
func WriteError(w io.Writer, v Version, status int, message string) error {
	if v.IsZero() {
		v = HTTP11
	}
	body := message + "\n"
	headers := []Header{
		{Name: "Content-Type", Value: "text/plain; charset=utf-8"},
		{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		{Name: "Connection", Value: "close"},
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "HTTP/%d.%d %s\r\n", v.Major, v.Minor, statusText(status))
	for _, h := range headers {
		fmt.Fprintf(bw, "%s: %s\r\n", h.Name, h.Value)
	}
	bw.WriteString("\r\n")
	bw.WriteString(body)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return strconv.Itoa(code)
}

func framed(resp *Response) []Header {
	headers := resp.Headers
	var hasLength, hasConnection bool
	for _, h := range headers {
		switch {
		case strings.EqualFold(h.Name, "Content-Length"), strings.EqualFold(h.Name, "Transfer-Encoding"):
			hasLength = true
		case strings.EqualFold(h.Name, "Connection"):
			hasConnection = true
		}
	}
	if hasLength && hasConnection {
		return headers
	}

	out := make([]Header, len(headers), len(headers)+2)
	copy(out, headers)
	if !hasLength {
		out = append(out, Header{Name: "Content-Length", Value: strconv.Itoa(len(resp.Body))})
	}
	if !hasConnection {
		out = append(out, Header{Name: "Connection", Value: "close"})
	}
	return out
}
