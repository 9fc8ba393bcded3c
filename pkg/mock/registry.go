package mock

import "github.com/getmockd/mockproxy/pkg/wire"

// Registry is an ordered list of mocks. Lookup is first-match-wins in
// registration order.
//
// A Registry is not safe for concurrent mutation; the proxy takes a
// Snapshot when it starts serving.
type Registry struct {
	mocks []*Mock
}

// NewRegistry returns a registry holding mocks in the given order.
func NewRegistry(mocks ...*Mock) *Registry {
	r := &Registry{}
	for _, m := range mocks {
		r.Add(m)
	}
	return r
}

// Add appends m.
func (r *Registry) Add(m *Mock) {
	r.mocks = append(r.mocks, m)
}

// Len returns the number of registered mocks.
func (r *Registry) Len() int {
	return len(r.mocks)
}

// All returns the registered mocks in order.
func (r *Registry) All() []*Mock {
	return append([]*Mock(nil), r.mocks...)
}

// Match returns the first mock whose method and path equal the request's,
// or nil when nothing matches.
func (r *Registry) Match(req *wire.Request) *Mock {
	for _, m := range r.mocks {
		if m.Matches(req) {
			return m
		}
	}
	return nil
}

// Snapshot returns an independent deep copy. Later changes to r or to the
// registered mocks are not visible through the copy.
func (r *Registry) Snapshot() *Registry {
	out := &Registry{mocks: make([]*Mock, len(r.mocks))}
	for i, m := range r.mocks {
		out.mocks[i] = m.Clone()
	}
	return out
}
