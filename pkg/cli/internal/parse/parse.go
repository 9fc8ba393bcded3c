// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"fmt"
	"strings"
	"unicode"
)

// MockSpec is a mock given on the command line.
type MockSpec struct {
	Method  string
	Path    string
	Body    string
	HasBody bool
}

// Mock parses "METHOD PATH", "METHOD PATH=BODY" or "METHOD PATH =BODY".
// An '=' inside a query string belongs to the path, so a path with a query
// takes its body after whitespace: "GET /geo?q=paris =BODY". The method is
// kept as written and the body verbatim.
func Mock(s string) (MockSpec, error) {
	invalid := fmt.Errorf("invalid mock %q: expected \"METHOD PATH[=BODY]\"", s)

	method, rest := cutSpace(strings.TrimSpace(s))
	if method == "" || rest == "" {
		return MockSpec{}, invalid
	}
	path, tail := cutSpace(rest)

	spec := MockSpec{Method: method, Path: path}
	if i := bodySeparator(path); i >= 0 {
		spec.Path = path[:i]
		spec.Body, spec.HasBody = rest[i+1:], true
	} else if tail != "" {
		if tail[0] != '=' {
			return MockSpec{}, invalid
		}
		spec.Body, spec.HasBody = tail[1:], true
	}

	if spec.Path == "" {
		return MockSpec{}, invalid
	}
	return spec, nil
}

// bodySeparator returns the index of the first '=' in path that comes
// before any '?', or -1.
func bodySeparator(path string) int {
	i := strings.IndexByte(path, '=')
	if q := strings.IndexByte(path, '?'); q >= 0 && q < i {
		return -1
	}
	return i
}

// cutSpace splits s at its first run of whitespace.
func cutSpace(s string) (before, after string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
