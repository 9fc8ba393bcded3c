package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/getmockd/mockproxy/pkg/wire"
)

// openTunnel acknowledges the opening request in plaintext, mints a leaf
// for the requested host and performs a server-side TLS handshake on the
// same socket.
func (p *Proxy) openTunnel(conn net.Conn, outer *wire.Request) (*tls.Conn, error) {
	p.armWrite(conn)
	if err := wire.WriteTunnelEstablished(conn, outer.Version); err != nil {
		return nil, err
	}

	identity, err := p.ca.Identity(outer.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity for %s: %w", outer.Path, err)
	}

	//nolint:gosec // G402: MinVersion left at the default so any client the tests use can connect
	tlsConn := tls.Server(conn, &tls.Config{
		Certificates: []tls.Certificate{identity},
	})

	ctx := context.Background()
	if p.cfg.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.handshakeTimeout)
		defer cancel()
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake for %s failed: %w", outer.Path, err)
	}
	return tlsConn, nil
}
