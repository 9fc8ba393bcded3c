package mock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockproxy/pkg/wire"
)

func request(t *testing.T, raw string) *wire.Request {
	t.Helper()
	req := wire.Parse(strings.NewReader(raw))
	require.True(t, req.OK(), "bad fixture: %v", req.Err)
	return req
}

func TestNewDefaults(t *testing.T) {
	m := New("GET", "/ping")
	assert.Equal(t, "GET", m.Method)
	assert.Equal(t, "/ping", m.Path)
	assert.Equal(t, 200, m.Response.Status)
	assert.Empty(t, m.Response.Headers)
	assert.Empty(t, m.Response.Body)
	assert.NoError(t, m.Err())
	assert.NoError(t, m.Validate())
	assert.Equal(t, "GET /ping", m.String())
}

func TestBuilderChain(t *testing.T) {
	m := New("POST", "/submit").
		WithStatus(201).
		WithHeader("Content-Type", "application/json").
		WithHeader("X-Trace", "a").
		WithHeader("X-Trace", "b").
		WithBody(`{"ok":true}`)

	require.NoError(t, m.Err())
	assert.Equal(t, 201, m.Response.Status)
	assert.Equal(t, []wire.Header{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "X-Trace", Value: "a"},
		{Name: "X-Trace", Value: "b"},
	}, m.Response.Headers)
	assert.Equal(t, `{"ok":true}`, string(m.Response.Body))
}

func TestWithBodyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1"}`), 0600))

	m := New("POST", "/api/v8/channels/0/messages").WithBodyFromFile(path)
	require.NoError(t, m.Err())
	assert.Equal(t, `{"id":"1"}`, string(m.Response.Body))
}

func TestWithBodyFromFileMissing(t *testing.T) {
	m := New("GET", "/").WithBodyFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, m.Err(), os.ErrNotExist)
	assert.ErrorIs(t, m.Validate(), os.ErrNotExist)
}

func TestWithBodyFromJSONIsPretty(t *testing.T) {
	m := New("GET", "/geocode").WithBodyFromJSON(map[string]any{
		"status":  "OK",
		"results": []any{},
	})
	require.NoError(t, m.Err())
	assert.Equal(t, "{\n  \"results\": [],\n  \"status\": \"OK\"\n}", string(m.Response.Body))
}

func TestWithBodyFromJSONError(t *testing.T) {
	m := New("GET", "/").WithBodyFromJSON(make(chan int))
	assert.Error(t, m.Err())
}

func TestFirstErrorWins(t *testing.T) {
	m := New("GET", "/").
		WithHeader("Bad Name", "v").
		WithBodyFromJSON(make(chan int))

	var verr *ValidationError
	require.True(t, errors.As(m.Err(), &verr))
	assert.Equal(t, "response.headers", verr.Field)
}

func TestWithBodyBytesCopies(t *testing.T) {
	body := []byte("pong")
	m := New("GET", "/ping").WithBodyBytes(body)
	body[0] = 'x'
	assert.Equal(t, "pong", string(m.Response.Body))
}

func TestMatches(t *testing.T) {
	m := New("GET", "/ping")

	assert.True(t, m.Matches(request(t, "GET /ping HTTP/1.1\r\n\r\n")))
	assert.False(t, m.Matches(request(t, "get /ping HTTP/1.1\r\n\r\n")), "method is case-sensitive")
	assert.False(t, m.Matches(request(t, "POST /ping HTTP/1.1\r\n\r\n")))
	assert.False(t, m.Matches(request(t, "GET /ping?x=1 HTTP/1.1\r\n\r\n")), "no query normalization")
	assert.False(t, m.Matches(request(t, "GET /ping/ HTTP/1.1\r\n\r\n")))
	assert.False(t, m.Matches(wire.Parse(strings.NewReader(""))))
	assert.False(t, m.Matches(nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mock  *Mock
		field string
	}{
		{"bad method", New("GE T", "/"), "method"},
		{"empty path", New("GET", ""), "path"},
		{"status too low", New("GET", "/").WithStatus(99), "response.status"},
		{"status too high", New("GET", "/").WithStatus(600), "response.status"},
		{"header value with newline", &Mock{
			Method:   "GET",
			Path:     "/",
			Response: Response{Status: 200, Headers: []wire.Header{{Name: "X", Value: "a\r\nb"}}},
		}, "response.headers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			require.True(t, errors.As(tt.mock.Validate(), &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestClone(t *testing.T) {
	m := New("GET", "/").WithHeader("X-A", "1").WithBody("body")
	c := m.Clone()

	m.Response.Headers[0].Value = "changed"
	m.Response.Body[0] = 'B'

	assert.Equal(t, "1", c.Response.Headers[0].Value)
	assert.Equal(t, "body", string(c.Response.Body))
}
