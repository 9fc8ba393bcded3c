package testing

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/getmockd/mockproxy/pkg/wire"
)

// RequestLog is one decrypted request seen by the proxy.
type RequestLog struct {
	// Host is the tunnel target, without its port
	Host string
	// Method is the HTTP method (GET, POST, etc.)
	Method string
	// Path is the request target as sent, including any query string
	Path string
	// Headers are the request headers in wire order
	Headers []wire.Header
	// Body is whatever arrived with the request head
	Body string
	// Matched reports whether a mock answered the request
	Matched bool
}

// Header returns the first value of the named header, ignoring case.
func (r *RequestLog) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Query returns the parsed query string of Path.
func (r *RequestLog) Query() url.Values {
	_, rawQuery, _ := strings.Cut(r.Path, "?")
	values, _ := url.ParseQuery(rawQuery)
	return values
}

// AssertHost asserts the request was tunnelled to host.
func (r *RequestLog) AssertHost(t testing.TB, expected string) {
	t.Helper()
	if r.Host != expected {
		t.Errorf("request host mismatch\nexpected: %q\nactual: %q", expected, r.Host)
	}
}

// AssertBody asserts that the request body exactly matches the expected string.
func (r *RequestLog) AssertBody(t testing.TB, expected string) {
	t.Helper()
	if r.Body != expected {
		t.Errorf("request body does not match\nexpected: %q\nactual: %q", expected, r.Body)
	}
}

// AssertBodyContains asserts that the request body contains substr.
func (r *RequestLog) AssertBodyContains(t testing.TB, substr string) {
	t.Helper()
	if !strings.Contains(r.Body, substr) {
		t.Errorf("request body does not contain %q\nbody: %s", substr, r.Body)
	}
}

// AssertJSONBody asserts that the request body is JSON equal to expected.
// expected can be a string, []byte, or any value that will be JSON encoded.
func (r *RequestLog) AssertJSONBody(t testing.TB, expected any) {
	t.Helper()

	want, err := normalizeJSON(expected)
	if err != nil {
		t.Errorf("failed to parse expected JSON: %v", err)
		return
	}

	var got any
	if err := json.Unmarshal([]byte(r.Body), &got); err != nil {
		t.Errorf("request body is not valid JSON: %v\nbody: %s", err, r.Body)
		return
	}

	if !reflect.DeepEqual(got, want) {
		wantBytes, _ := json.MarshalIndent(want, "", "  ")
		gotBytes, _ := json.MarshalIndent(got, "", "  ")
		t.Errorf("request body does not match expected JSON\nexpected:\n%s\nactual:\n%s", wantBytes, gotBytes)
	}
}

func normalizeJSON(v any) (any, error) {
	var data []byte
	switch v := v.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssertHeader asserts that the request carried the header with the expected value.
func (r *RequestLog) AssertHeader(t testing.TB, name, expected string) {
	t.Helper()

	actual, ok := r.Header(name)
	if !ok {
		t.Errorf("request does not have header %q", name)
		return
	}
	if actual != expected {
		t.Errorf("header %q value mismatch\nexpected: %q\nactual: %q", name, expected, actual)
	}
}

// AssertQueryParam asserts that the request had the query parameter with
// the expected value.
func (r *RequestLog) AssertQueryParam(t testing.TB, key, expected string) {
	t.Helper()

	q := r.Query()
	if !q.Has(key) {
		t.Errorf("request does not have query parameter %q", key)
		return
	}
	if actual := q.Get(key); actual != expected {
		t.Errorf("query parameter %q value mismatch\nexpected: %q\nactual: %q", key, expected, actual)
	}
}

// AssertCalled asserts that at least one request had method and path.
func (f *Fixture) AssertCalled(t testing.TB, method, path string) {
	t.Helper()
	if f.countCalls(method, path) == 0 {
		t.Errorf("expected %s %s to be called, but it was not\nrequests: %v", method, path, f.summary())
	}
}

// AssertCalledTimes asserts the exact number of requests with method and path.
func (f *Fixture) AssertCalledTimes(t testing.TB, method, path string, times int) {
	t.Helper()
	if n := f.countCalls(method, path); n != times {
		t.Errorf("expected %s %s to be called %d times, got %d", method, path, times, n)
	}
}

// AssertNotCalled asserts that no request had method and path.
func (f *Fixture) AssertNotCalled(t testing.TB, method, path string) {
	t.Helper()
	if n := f.countCalls(method, path); n != 0 {
		t.Errorf("expected %s %s not to be called, but it was called %d times", method, path, n)
	}
}

// AssertAllMatched asserts that every request was answered by a mock.
func (f *Fixture) AssertAllMatched(t testing.TB) {
	t.Helper()
	for _, r := range f.Requests() {
		if !r.Matched {
			t.Errorf("no mock matched %s %s (host %s)", r.Method, r.Path, r.Host)
		}
	}
}

// LastRequest returns the most recent request with method and path, or
// nil if there was none.
func (f *Fixture) LastRequest(method, path string) *RequestLog {
	requests := f.Requests()
	for i := len(requests) - 1; i >= 0; i-- {
		if requests[i].Method == method && requests[i].Path == path {
			return &requests[i]
		}
	}
	return nil
}

func (f *Fixture) countCalls(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *Fixture) summary() []string {
	requests := f.Requests()
	out := make([]string, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}
