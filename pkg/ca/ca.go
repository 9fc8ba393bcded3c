// Package ca provides the root certificate authority used for TLS interception.
package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	// DefaultOrganization is the organization name for generated certificates.
	DefaultOrganization = "mockproxy Local CA"
	// DefaultCommonName is the subject CN of the root certificate.
	DefaultCommonName = "mockproxy Root"
	// DefaultValidityDays is the default validity period for root certificates.
	DefaultValidityDays = 3650 // 10 years
	// DefaultLeafValidityDays is the validity period for issued leaf certificates.
	DefaultLeafValidityDays = 30
	// DefaultKeyBits is the RSA key size of the root.
	DefaultKeyBits = 4096
	// DefaultLeafKeyBits is the RSA key size of issued leaves.
	DefaultLeafKeyBits = 2048
)

// Errors returned by the authority.
var (
	ErrNoCA          = errors.New("certificate authority not initialized")
	ErrInvalidPEM    = errors.New("invalid PEM data")
	ErrUnexpectedKey = errors.New("unexpected private key type")
	ErrKeyMismatch   = errors.New("private key does not match certificate")
)

// Authority is a self-signed root that signs per-host leaf certificates.
// It is immutable after construction and safe for concurrent use.
type Authority struct {
	cert     *x509.Certificate
	key      *rsa.PrivateKey
	leafBits int
}

// Leaf holds a certificate issued by an Authority and its private key.
type Leaf struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

type options struct {
	keyBits      int
	leafBits     int
	validityDays int
	subject      pkix.Name
}

// Option configures root generation.
type Option func(*options)

// WithKeyBits sets the RSA key size of the root.
func WithKeyBits(bits int) Option {
	return func(o *options) {
		o.keyBits = bits
	}
}

// WithLeafKeyBits sets the RSA key size of issued leaves.
func WithLeafKeyBits(bits int) Option {
	return func(o *options) {
		o.leafBits = bits
	}
}

// WithValidityDays sets how long the root stays valid.
func WithValidityDays(days int) Option {
	return func(o *options) {
		o.validityDays = days
	}
}

// WithSubject replaces the distinguished name of the root.
func WithSubject(name pkix.Name) Option {
	return func(o *options) {
		o.subject = name
	}
}

// WithOrganization replaces only the organization of the root subject.
func WithOrganization(org string) Option {
	return func(o *options) {
		o.subject.Organization = []string{org}
	}
}

// Generate creates a fresh RSA key pair and a self-signed root certificate.
func Generate(opts ...Option) (*Authority, error) {
	o := options{
		keyBits:      DefaultKeyBits,
		leafBits:     DefaultLeafKeyBits,
		validityDays: DefaultValidityDays,
		subject: pkix.Name{
			Country:      []string{"US"},
			Province:     []string{"CA"},
			Organization: []string{DefaultOrganization},
			CommonName:   DefaultCommonName,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	key, err := rsa.GenerateKey(rand.Reader, o.keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate root key: %w", err)
	}

	serialNumber, err := newSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               o.subject,
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.AddDate(0, 0, o.validityDays),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create root certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}

	return &Authority{cert: cert, key: key, leafBits: o.leafBits}, nil
}

// New wraps an existing root certificate and key.
func New(cert *x509.Certificate, key *rsa.PrivateKey) (*Authority, error) {
	if cert == nil || key == nil {
		return nil, ErrNoCA
	}
	if !cert.IsCA {
		return nil, fmt.Errorf("certificate %q is not a CA", cert.Subject.CommonName)
	}
	if !key.PublicKey.Equal(cert.PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate %q", ErrKeyMismatch, cert.Subject.CommonName)
	}
	return &Authority{cert: cert, key: key, leafBits: DefaultLeafKeyBits}, nil
}

// Certificate returns the root certificate.
func (a *Authority) Certificate() *x509.Certificate {
	return a.cert
}

// CertificatePEM returns the root certificate in PEM format.
func (a *Authority) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: a.cert.Raw,
	})
}

// CertPool returns a pool containing only the root certificate.
func (a *Authority) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(a.cert)
	return pool
}

// IssueLeaf creates a certificate for commonName signed by the root.
// Leaves are never cached; each call mints a new key pair.
func (a *Authority) IssueLeaf(commonName string) (*Leaf, error) {
	if a == nil || a.cert == nil || a.key == nil {
		return nil, ErrNoCA
	}

	key, err := rsa.GenerateKey(rand.Reader, a.leafBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate leaf key: %w", err)
	}

	serialNumber, err := newSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: commonName,
		},
		NotBefore:          now.Add(-time.Minute),
		NotAfter:           now.AddDate(0, 0, DefaultLeafValidityDays),
		KeyUsage:           x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:        []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}
	if ip := net.ParseIP(commonName); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else if commonName != "" {
		template.DNSNames = []string{commonName}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, a.cert, &key.PublicKey, a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign leaf for %q: %w", commonName, err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse leaf for %q: %w", commonName, err)
	}

	return &Leaf{Cert: cert, Key: key}, nil
}

// TLSCertificate converts the leaf into a server identity.
func (l *Leaf) TLSCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{l.Cert.Raw},
		PrivateKey:  l.Key,
		Leaf:        l.Cert,
	}
}

func newSerial() (*big.Int, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serialNumber, nil
}
