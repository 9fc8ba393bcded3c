// Package proxy provides a TLS-intercepting mock proxy for tests.
//
// A Proxy owns a freshly generated root CA. Clients route HTTPS traffic
// through the proxy's address and trust Certificate(); each tunnelled
// request is answered from the registered mocks without ever contacting a
// real upstream.
//
// Connections are served strictly one at a time, in accept order, by a
// single background goroutine. A slow or silent client therefore stalls
// the proxy unless read/write timeouts are configured.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/getmockd/mockproxy/pkg/ca"
	"github.com/getmockd/mockproxy/pkg/logging"
	"github.com/getmockd/mockproxy/pkg/mock"
	"github.com/getmockd/mockproxy/pkg/wire"
)

const (
	// DefaultListenAddr is the address the proxy tries first.
	DefaultListenAddr = "127.0.0.1:1234"
	// DefaultFallbackAddr is used when DefaultListenAddr cannot be bound.
	DefaultFallbackAddr = "127.0.0.1:0"
)

// Errors returned by the proxy.
var (
	ErrNoAddress  = errors.New("proxy: no listening address available")
	ErrNotStarted = errors.New("proxy: not started")
)

type options struct {
	listenAddr       string
	fallbackAddr     string
	readTimeout      time.Duration
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	logger           *slog.Logger
	authority        *ca.Authority
	observer         func(Exchange)
	bind             func(network, address string) (net.Listener, error)
}

// Option configures a Proxy.
type Option func(*options)

// WithListenAddr sets the preferred listen address.
func WithListenAddr(addr string) Option {
	return func(o *options) {
		o.listenAddr = addr
	}
}

// WithFallbackAddr sets the address bound when the preferred one fails.
func WithFallbackAddr(addr string) Option {
	return func(o *options) {
		o.fallbackAddr = addr
	}
}

// WithReadTimeout bounds each read from a client. Zero blocks forever.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WithWriteTimeout bounds each write to a client. Zero blocks forever.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithHandshakeTimeout bounds the TLS handshake. Zero blocks forever.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}

// WithLogger sets the logger. Nil means logging.Nop().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAuthority uses an existing root CA instead of generating one.
func WithAuthority(a *ca.Authority) Option {
	return func(o *options) {
		o.authority = a
	}
}

// WithObserver registers fn to be called, on the serving goroutine, for
// every tunnelled request that was parsed successfully.
func WithObserver(fn func(Exchange)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Exchange describes one tunnelled request.
type Exchange struct {
	// Host is the tunnel target without its port.
	Host string
	// Request is the decrypted inner request.
	Request *wire.Request
	// Mock is the mock that answered, or nil if none matched.
	Mock *mock.Mock
}

// Proxy is a single interception session. Mocks are registered before
// Start; afterwards the set is fixed.
type Proxy struct {
	mu       sync.Mutex
	cfg      options
	logger   *slog.Logger
	ca       *ca.Authority
	registry *mock.Registry

	started  bool
	stopping bool
	addr     net.Addr
	listener net.Listener
	active   net.Conn
	done     chan struct{}
}

// New creates a proxy and its root CA identity. No I/O is performed.
func New(opts ...Option) (*Proxy, error) {
	cfg := options{
		listenAddr:   DefaultListenAddr,
		fallbackAddr: DefaultFallbackAddr,
		bind:         net.Listen,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Nop()
	}

	authority := cfg.authority
	if authority == nil {
		var err error
		authority, err = ca.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to create root CA: %w", err)
		}
	}

	return &Proxy{
		cfg:      cfg,
		logger:   logger,
		ca:       authority,
		registry: mock.NewRegistry(),
	}, nil
}

// Register appends m to the mock list. It returns the mock's validation
// error, if any, without registering it.
//
// Register panics if the proxy has already been started.
func (p *Proxy) Register(m *mock.Mock) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		panic("proxy: cannot add mocks to a started proxy")
	}
	if m == nil {
		return errors.New("proxy: nil mock")
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mock %s: %w", m, err)
	}
	p.registry.Add(m)
	return nil
}

// Mocks returns the registered mocks in registration order.
func (p *Proxy) Mocks() []*mock.Mock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry.All()
}

// Start binds the listener and begins serving in a background goroutine.
// It returns once the listener is bound, so Address is valid afterwards,
// or with ErrNoAddress if neither address could be bound.
//
// Start panics if the proxy has already been started.
func (p *Proxy) Start() error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		panic("proxy: tried to start an already started proxy")
	}
	p.started = true
	mocks := p.registry.Snapshot()
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	ready := make(chan net.Listener, 1)
	go p.run(mocks, ready, done)

	if ln := <-ready; ln == nil {
		return ErrNoAddress
	}
	return nil
}

// run is the background worker: bind, report the listener, serve.
func (p *Proxy) run(mocks *mock.Registry, ready chan<- net.Listener, done chan struct{}) {
	defer close(done)

	ln, err := p.listen()
	if err != nil {
		p.logger.Error("failed to bind listener", "error", err)
		ready <- nil
		return
	}

	// Publish before signalling so a concurrent Stop always finds it.
	p.mu.Lock()
	p.listener = ln
	p.addr = ln.Addr()
	stopping := p.stopping
	p.mu.Unlock()
	if stopping {
		_ = ln.Close()
	}
	ready <- ln

	p.logger.Info("proxy listening", "addr", ln.Addr().String(), "mocks", mocks.Len())
	p.serve(ln, mocks)
}

func (p *Proxy) listen() (net.Listener, error) {
	ln, err := p.cfg.bind("tcp", p.cfg.listenAddr)
	if err == nil {
		return ln, nil
	}
	p.logger.Warn("preferred address unavailable, falling back",
		"addr", p.cfg.listenAddr,
		"fallback", p.cfg.fallbackAddr,
		"error", err,
	)

	ln, fallbackErr := p.cfg.bind("tcp", p.cfg.fallbackAddr)
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	return ln, nil
}

// Stop closes the listener and waits for the worker to exit. A connection
// still being served when ctx expires is force-closed.
// Stop returns ErrNotStarted before Start; later calls are no-ops.
func (p *Proxy) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.stopping = true
	ln, done := p.listener, p.done
	p.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	if p.active != nil {
		_ = p.active.Close()
	}
	p.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		p.logger.Warn("proxy worker did not exit after force close")
	}
	return ctx.Err()
}

// Started reports whether Start has been called.
func (p *Proxy) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Address returns the local listening address.
//
// Address panics if the proxy is not listening.
func (p *Proxy) Address() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addr == nil {
		panic("proxy: server should be listening")
	}
	return p.addr
}

// URL returns the proxy's own plaintext address as http://host:port, for
// use as an HTTP client's proxy setting.
func (p *Proxy) URL() string {
	return "http://" + p.Address().String()
}

// Certificate returns the PEM-encoded root CA certificate that clients
// must trust.
func (p *Proxy) Certificate() []byte {
	return p.ca.CertificatePEM()
}

// Authority returns the proxy's root CA.
func (p *Proxy) Authority() *ca.Authority {
	return p.ca
}

func (p *Proxy) setActive(conn net.Conn) {
	p.mu.Lock()
	p.active = conn
	p.mu.Unlock()
}
