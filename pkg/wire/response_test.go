package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTunnelEstablished(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTunnelEstablished(&buf, Version{1, 0}))
	assert.Equal(t, "HTTP/1.0 200\r\n\r\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTunnelEstablished(&buf, HTTP11))
	assert.Equal(t, "HTTP/1.1 200\r\n\r\n", buf.String())
}

func TestWriteResponseBytes(t *testing.T) {
	resp := &Response{
		Status: 201,
		Headers: []Header{
			{Name: "X-Second", Value: "2"},
			{Name: "X-First", Value: "1"},
			{Name: "Content-Length", Value: "4"},
			{Name: "Connection", Value: "keep-alive"},
		},
		Body: []byte("pong"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, Version{1, 0}, resp))
	assert.Equal(t,
		"HTTP/1.0 201 Created\r\n"+
			"X-Second: 2\r\n"+
			"X-First: 1\r\n"+
			"Content-Length: 4\r\n"+
			"Connection: keep-alive\r\n"+
			"\r\n"+
			"pong\r\n",
		buf.String())
}

func TestWriteResponseAddsFraming(t *testing.T) {
	resp := &Response{
		Status:  200,
		Headers: []Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:    []byte("pong"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, HTTP11, resp))
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\n"+
			"Content-Type: text/plain\r\n"+
			"Content-Length: 4\r\n"+
			"Connection: close\r\n"+
			"\r\n"+
			"pong\r\n",
		buf.String())

	// The registered headers are not mutated.
	assert.Len(t, resp.Headers, 1)
}

func TestWriteResponseReadableByNetHTTP(t *testing.T) {
	resp := &Response{
		Status:  404,
		Headers: []Header{{Name: "Content-Type", Value: "application/json"}},
		Body:    []byte(`{"error":"missing"}`),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, HTTP11, resp))

	parsed, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	defer parsed.Body.Close()

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, parsed.StatusCode)
	assert.Equal(t, "application/json", parsed.Header.Get("Content-Type"))
	assert.Equal(t, `{"error":"missing"}`, string(body))
	assert.True(t, parsed.Close)
}

func TestWriteResponseUnknownStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, HTTP11, &Response{Status: 599}))
	line, err := bufio.NewReader(&buf).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 599\r\n", line)
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, Version{}, http.StatusBadRequest, "incomplete request"))

	parsed, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	defer parsed.Body.Close()

	body, _ := io.ReadAll(parsed.Body)
	assert.Equal(t, http.StatusBadRequest, parsed.StatusCode)
	assert.Equal(t, 1, parsed.ProtoMinor)
	assert.Equal(t, "incomplete request\n", string(body))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteFailures(t *testing.T) {
	assert.Error(t, WriteTunnelEstablished(failingWriter{}, HTTP11))
	assert.Error(t, WriteResponse(failingWriter{}, HTTP11, &Response{Status: 200}))
	assert.Error(t, WriteError(failingWriter{}, HTTP11, 400, "bad"))
}
