// Package mock defines the (method, path) → response rules served by the
// intercepting proxy and the ordered registry that holds them.
package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/getmockd/mockproxy/pkg/wire"
)

// Response is the canned reply written for a matching request.
type Response = wire.Response

// Mock is a single rule. Method and Path are compared exactly; the query
// string is part of Path.
//
// Mocks are built with a fluent API and must not be modified once
// registered with a proxy:
//
//	m := mock.New("GET", "/ping").
//	    WithHeader("Content-Type", "text/plain").
//	    WithBody("pong")
type Mock struct {
	Method   string
	Path     string
	Response Response

	err error // first error encountered during building
}

// New creates a mock answering 200 with an empty body.
func New(method, path string) *Mock {
	return &Mock{
		Method:   method,
		Path:     path,
		Response: Response{Status: http.StatusOK},
	}
}

// setError records the first error encountered during building.
func (m *Mock) setError(err error) {
	if m.err == nil {
		m.err = err
	}
}

// Err returns the first error encountered during building.
func (m *Mock) Err() error {
	return m.err
}

// WithStatus sets the response status code.
func (m *Mock) WithStatus(status int) *Mock {
	m.Response.Status = status
	return m
}

// WithHeader appends a response header. Headers are written in the order
// they were added; repeated names are allowed.
func (m *Mock) WithHeader(name, value string) *Mock {
	if err := validateHeader(name, value); err != nil {
		m.setError(fmt.Errorf("WithHeader: %w", err))
		return m
	}
	m.Response.Headers = append(m.Response.Headers, wire.Header{Name: name, Value: value})
	return m
}

// WithBody sets the raw response body.
func (m *Mock) WithBody(body string) *Mock {
	m.Response.Body = []byte(body)
	return m
}

// WithBodyBytes sets the raw response body.
func (m *Mock) WithBodyBytes(body []byte) *Mock {
	m.Response.Body = append([]byte(nil), body...)
	return m
}

// WithBodyFromFile loads the response body from a file.
func (m *Mock) WithBodyFromFile(path string) *Mock {
	data, err := os.ReadFile(path)
	if err != nil {
		m.setError(fmt.Errorf("WithBodyFromFile: %w", err))
		return m
	}
	m.Response.Body = data
	return m
}

// WithBodyFromJSON serializes value as pretty-printed JSON (two-space
// indent) and uses it as the body. No Content-Type header is implied.
func (m *Mock) WithBodyFromJSON(value any) *Mock {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		m.setError(fmt.Errorf("WithBodyFromJSON: failed to marshal body: %w", err))
		return m
	}
	m.Response.Body = data
	return m
}

// Matches reports whether req has exactly this mock's method and path.
func (m *Mock) Matches(req *wire.Request) bool {
	return req != nil && req.OK() && m.Method == req.Method && m.Path == req.Path
}

// Clone returns a deep copy of the mock.
func (m *Mock) Clone() *Mock {
	c := *m
	c.Response.Headers = append([]wire.Header(nil), m.Response.Headers...)
	c.Response.Body = append([]byte(nil), m.Response.Body...)
	return &c
}

func (m *Mock) String() string {
	return m.Method + " " + m.Path
}
