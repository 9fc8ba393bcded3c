package proxy

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/mockproxy/pkg/mock"
	"github.com/getmockd/mockproxy/pkg/wire"
)

// serve accepts connections until the listener is closed, serving each one
// to completion before accepting the next.
func (p *Proxy) serve(ln net.Listener, mocks *mock.Registry) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				p.logger.Info("proxy stopped")
				return
			}
			p.logger.Error("could not accept connection", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		p.handleConn(conn, mocks)
	}
}

// handleConn walks one connection through parse, tunnel, parse, match and
// respond. Every failure ends only this connection.
func (p *Proxy) handleConn(conn net.Conn, mocks *mock.Registry) {
	log := p.logger.With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())

	p.setActive(conn)
	defer p.setActive(nil)
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			log.Error("connection handler panicked", "panic", r)
		}
	}()

	p.armRead(conn)
	outer := wire.ParseTunnel(conn)
	if !outer.OK() {
		p.reject(conn, outer, log)
		return
	}
	log.Debug("request received", "method", outer.Method, "host", outer.Path)

	tlsConn, err := p.openTunnel(conn, outer)
	if err != nil {
		log.Warn("could not open tunnel", "host", outer.Path, "error", err)
		return
	}
	defer func() { _ = tlsConn.Close() }()

	p.armRead(conn)
	inner := wire.Parse(tlsConn)
	if !inner.OK() {
		log.Warn("could not parse tunnelled request", "host", outer.Path, "error", inner.Err)
		return
	}

	m := mocks.Match(inner)
	if p.cfg.observer != nil {
		p.cfg.observer(Exchange{Host: outer.Path, Request: inner, Mock: m})
	}
	if m == nil {
		log.Info("no mock matched", "method", inner.Method, "host", outer.Path, "path", inner.Path)
		return
	}

	p.armWrite(conn)
	if err := wire.WriteResponse(tlsConn, inner.Version, &m.Response); err != nil {
		log.Warn("could not write response", "path", inner.Path, "error", err)
		return
	}
	log.Info("mock served",
		"method", inner.Method,
		"host", outer.Path,
		"path", inner.Path,
		"status", m.Response.Status,
	)
}

// reject answers a malformed opening request with 400. Nothing is written
// when the client sent no bytes at all.
func (p *Proxy) reject(conn net.Conn, req *wire.Request, log *slog.Logger) {
	if errors.Is(req.Err, wire.ErrNothingToRead) {
		log.Debug("client closed without sending a request")
		return
	}
	log.Warn("could not parse request", "error", req.Err)

	p.armWrite(conn)
	if err := wire.WriteError(conn, req.Version, http.StatusBadRequest, req.Err.Error()); err != nil {
		log.Debug("could not write error response", "error", err)
	}
}

func (p *Proxy) armRead(conn net.Conn) {
	if p.cfg.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(p.cfg.readTimeout))
	}
}

func (p *Proxy) armWrite(conn net.Conn) {
	if p.cfg.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(p.cfg.writeTimeout))
	}
}
