package testing

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getmockd/mockproxy/pkg/ca"
	"github.com/getmockd/mockproxy/pkg/logging"
	"github.com/getmockd/mockproxy/pkg/mock"
	"github.com/getmockd/mockproxy/pkg/proxy"
	"github.com/getmockd/mockproxy/pkg/wire"
)

// stopTimeout bounds how long cleanup waits for a connection in flight.
const stopTimeout = 5 * time.Second

var (
	sharedOnce      sync.Once
	sharedAuthority *ca.Authority
	sharedErr       error
)

// authority returns a root CA shared by every fixture in the test binary.
// It uses 2048-bit keys, which is enough for loopback tests.
func authority() (*ca.Authority, error) {
	sharedOnce.Do(func() {
		sharedAuthority, sharedErr = ca.Generate(ca.WithKeyBits(2048))
	})
	return sharedAuthority, sharedErr
}

// Fixture is a mock proxy bound to a test. It is stopped automatically when
// the test completes.
type Fixture struct {
	t       testing.TB
	opts    []proxy.Option
	pending []*mock.Mock
	proxy   *proxy.Proxy
	logs    *testWriter

	mu       sync.Mutex
	requests []RequestLog
}

// New creates a fixture. Mocks are added with Mock or Add and take effect
// when Start is called.
func New(t testing.TB, opts ...proxy.Option) *Fixture {
	t.Helper()
	return &Fixture{t: t, opts: opts}
}

// Start creates a fixture serving mocks and starts it.
func Start(t testing.TB, mocks ...*mock.Mock) *Fixture {
	t.Helper()
	f := New(t)
	f.Add(mocks...)
	f.Start()
	return f
}

// Mock registers a new mock for method and path and returns it so the
// response can be configured fluently before Start.
func (f *Fixture) Mock(method, path string) *mock.Mock {
	m := mock.New(method, path)
	f.Add(m)
	return m
}

// Add registers existing mocks, in order.
func (f *Fixture) Add(mocks ...*mock.Mock) {
	if f.proxy != nil {
		f.t.Fatalf("mockproxy: cannot add mocks after Start")
	}
	f.pending = append(f.pending, mocks...)
}

// Start starts the proxy and registers cleanup. Calling it again is a no-op.
func (f *Fixture) Start() {
	f.t.Helper()
	if f.proxy != nil {
		return
	}

	a, err := authority()
	if err != nil {
		f.t.Fatalf("mockproxy: failed to create CA: %v", err)
	}

	f.logs = &testWriter{t: f.t}
	opts := []proxy.Option{
		proxy.WithAuthority(a),
		proxy.WithListenAddr(proxy.DefaultFallbackAddr),
		proxy.WithReadTimeout(stopTimeout),
		proxy.WithLogger(logging.New(logging.Config{
			Level:  logging.LevelDebug,
			Format: logging.FormatText,
			Output: f.logs,
		})),
		proxy.WithObserver(f.record),
	}
	p, err := proxy.New(append(opts, f.opts...)...)
	if err != nil {
		f.t.Fatalf("mockproxy: %v", err)
	}
	for _, m := range f.pending {
		if err := p.Register(m); err != nil {
			f.t.Fatalf("mockproxy: %v", err)
		}
	}
	if err := p.Start(); err != nil {
		f.t.Fatalf("mockproxy: failed to start: %v", err)
	}
	f.proxy = p
	f.t.Cleanup(f.Stop)
}

// Stop stops the proxy. It is registered with t.Cleanup by Start.
func (f *Fixture) Stop() {
	if f.proxy == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := f.proxy.Stop(ctx); err != nil {
		f.t.Logf("mockproxy: stop: %v", err)
	}
	f.logs.close()
}

func (f *Fixture) record(ex proxy.Exchange) {
	log := RequestLog{
		Host:    ex.Host,
		Method:  ex.Request.Method,
		Path:    ex.Request.Path,
		Headers: append([]wire.Header(nil), ex.Request.Headers...),
		Body:    string(ex.Request.Body),
		Matched: ex.Mock != nil,
	}

	f.mu.Lock()
	f.requests = append(f.requests, log)
	f.mu.Unlock()
}

// Proxy returns the running proxy.
func (f *Fixture) Proxy() *proxy.Proxy {
	f.t.Helper()
	if f.proxy == nil {
		f.t.Fatalf("mockproxy: fixture not started")
	}
	return f.proxy
}

// URL returns the proxy's address as http://host:port.
func (f *Fixture) URL() string {
	return f.Proxy().URL()
}

// Transport returns an HTTP transport that routes through the proxy and
// trusts only its root certificate. Keep-alives are disabled because the
// proxy closes every connection after one exchange.
func (f *Fixture) Transport() *http.Transport {
	p := f.Proxy()
	proxyURL, err := url.Parse(p.URL())
	if err != nil {
		f.t.Fatalf("mockproxy: %v", err)
	}
	return &http.Transport{
		Proxy:             http.ProxyURL(proxyURL),
		TLSClientConfig:   &tls.Config{RootCAs: p.Authority().CertPool()},
		DisableKeepAlives: true,
	}
}

// Client returns an HTTP client using Transport.
func (f *Fixture) Client() *http.Client {
	return &http.Client{Transport: f.Transport(), Timeout: 10 * time.Second}
}

// Env returns the current environment plus the proxy variables, suitable
// for exec.Cmd.Env. The root certificate is written to a temporary file
// for SSL_CERT_FILE.
func (f *Fixture) Env() []string {
	p := f.Proxy()
	certFile := filepath.Join(f.t.TempDir(), ca.CertFile)
	if err := os.WriteFile(certFile, p.Certificate(), 0644); err != nil {
		f.t.Fatalf("mockproxy: failed to write certificate: %v", err)
	}

	env := make([]string, 0, len(os.Environ())+8)
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if isProxyVar(name) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, p.Environ(certFile)...)
}

func isProxyVar(name string) bool {
	switch strings.ToUpper(name) {
	case "HTTPS_PROXY", "HTTP_PROXY", "NO_PROXY", "SSL_CERT_FILE":
		return true
	}
	return false
}

// Requests returns every tunnelled request seen so far, in order.
func (f *Fixture) Requests() []RequestLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RequestLog(nil), f.requests...)
}

// Reset forgets recorded requests. Mocks are unchanged.
func (f *Fixture) Reset() {
	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()
}

// testWriter forwards proxy log lines to t.Log until closed.
type testWriter struct {
	mu     sync.Mutex
	t      testing.TB
	closed bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (w *testWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
