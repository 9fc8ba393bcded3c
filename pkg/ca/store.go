package ca

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// File names used by Save and Load.
const (
	CertFile = "ca.crt"
	KeyFile  = "ca.key"
)

// Exists checks if the CA certificate and key exist in dir.
func Exists(dir string) bool {
	_, certErr := os.Stat(filepath.Join(dir, CertFile))
	_, keyErr := os.Stat(filepath.Join(dir, KeyFile))
	return certErr == nil && keyErr == nil
}

// Save writes the root certificate and key as PEM files into dir.
// The key file is created with 0600 permissions.
func (a *Authority) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create CA directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, CertFile), a.CertificatePEM(), 0644); err != nil { //nolint:gosec // public certificate
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(a.key),
	})
	if err := os.WriteFile(filepath.Join(dir, KeyFile), keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write CA key: %w", err)
	}
	return nil
}

// Load reads a root certificate and key previously written by Save.
func Load(dir string) (*Authority, error) {
	certPEM, err := os.ReadFile(filepath.Join(dir, CertFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	cert, err := DecodeCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}

	keyPEM, err := os.ReadFile(filepath.Join(dir, KeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA key: %w", err)
	}
	key, err := decodeKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}

	return New(cert, key)
}

// Ensure loads the CA from dir, generating and saving a new one if absent.
func Ensure(dir string, opts ...Option) (*Authority, error) {
	if Exists(dir) {
		return Load(dir)
	}
	a, err := Generate(opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Save(dir); err != nil {
		return nil, err
	}
	return a, nil
}

// DecodeCertificatePEM decodes a PEM-encoded certificate.
func DecodeCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: unexpected block type %s", ErrInvalidPEM, block.Type)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func decodeKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrUnexpectedKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %s", ErrInvalidPEM, block.Type)
	}
}
