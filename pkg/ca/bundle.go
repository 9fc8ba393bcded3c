package ca

import (
	"crypto/rsa"
	"crypto/tls"
	"fmt"

	"software.sslmate.com/src/go-pkcs12"
)

// bundlePassword only satisfies the PKCS#12 format; it is not a secret.
const bundlePassword = "mockproxy"

// Bundle serializes the leaf into a password-protected PKCS#12 archive.
func Bundle(leaf *Leaf) ([]byte, error) {
	if leaf == nil || leaf.Cert == nil || leaf.Key == nil {
		return nil, ErrNoCA
	}
	data, err := pkcs12.Modern.Encode(leaf.Key, leaf.Cert, nil, bundlePassword)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PKCS#12 bundle for %q: %w", leaf.Cert.Subject.CommonName, err)
	}
	return data, nil
}

// Unbundle loads a PKCS#12 archive produced by Bundle as a TLS server identity.
func Unbundle(data []byte) (tls.Certificate, error) {
	key, cert, chain, err := pkcs12.DecodeChain(data, bundlePassword)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to decode PKCS#12 bundle: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("%w: %T", ErrUnexpectedKey, key)
	}

	out := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  rsaKey,
		Leaf:        cert,
	}
	for _, c := range chain {
		out.Certificate = append(out.Certificate, c.Raw)
	}
	return out, nil
}

// Identity issues a leaf for commonName and round-trips it through a
// PKCS#12 bundle, returning the server identity for a TLS handshake.
func (a *Authority) Identity(commonName string) (tls.Certificate, error) {
	leaf, err := a.IssueLeaf(commonName)
	if err != nil {
		return tls.Certificate{}, err
	}
	data, err := Bundle(leaf)
	if err != nil {
		return tls.Certificate{}, err
	}
	return Unbundle(data)
}
