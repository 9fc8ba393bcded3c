package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFirstMatchWins(t *testing.T) {
	first := New("GET", "/dup").WithBody("first")
	second := New("GET", "/dup").WithBody("second")
	r := NewRegistry(New("GET", "/other"), first, second)

	got := r.Match(request(t, "GET /dup HTTP/1.1\r\n\r\n"))
	require.NotNil(t, got)
	assert.Equal(t, "first", string(got.Response.Body))
	assert.Equal(t, 3, r.Len())
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry(New("POST", "/submit"))
	assert.Nil(t, r.Match(request(t, "GET /submit HTTP/1.1\r\n\r\n")))

	empty := NewRegistry()
	assert.Nil(t, empty.Match(request(t, "GET / HTTP/1.1\r\n\r\n")))
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	a, b, c := New("GET", "/a"), New("GET", "/b"), New("GET", "/c")
	r := NewRegistry(a, b)
	r.Add(c)

	all := r.All()
	assert.Equal(t, []*Mock{a, b, c}, all)

	// Mutating the returned slice does not affect the registry.
	all[0] = nil
	assert.Same(t, a, r.All()[0])
}

func TestRegistrySnapshotIsIndependent(t *testing.T) {
	m := New("GET", "/ping").WithBody("pong")
	r := NewRegistry(m)
	snap := r.Snapshot()

	r.Add(New("GET", "/late"))
	m.WithBody("changed")

	assert.Equal(t, 1, snap.Len())
	got := snap.Match(request(t, "GET /ping HTTP/1.1\r\n\r\n"))
	require.NotNil(t, got)
	assert.Equal(t, "pong", string(got.Response.Body))
	assert.Nil(t, snap.Match(request(t, "GET /late HTTP/1.1\r\n\r\n")))
}
