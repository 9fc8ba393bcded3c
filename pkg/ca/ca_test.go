package ca

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAuthority uses smaller keys so the suite stays fast.
func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	a, err := Generate(WithKeyBits(2048))
	require.NoError(t, err)
	return a
}

func TestGenerateRoot(t *testing.T) {
	a := newTestAuthority(t)
	root := a.Certificate()

	assert.True(t, root.IsCA)
	assert.Equal(t, DefaultCommonName, root.Subject.CommonName)
	assert.Equal(t, []string{DefaultOrganization}, root.Subject.Organization)
	assert.Equal(t, []string{"US"}, root.Subject.Country)
	assert.Equal(t, root.Subject.String(), root.Issuer.String())
	assert.True(t, root.NotAfter.After(time.Now().AddDate(0, 0, DefaultValidityDays-1)))
	assert.NoError(t, root.CheckSignatureFrom(root))
}

func TestGenerateWithOptions(t *testing.T) {
	a, err := Generate(
		WithKeyBits(2048),
		WithValidityDays(5),
		WithSubject(pkix.Name{CommonName: "discord.com", Organization: []string{"Some organization"}}),
	)
	require.NoError(t, err)

	root := a.Certificate()
	assert.Equal(t, "discord.com", root.Subject.CommonName)
	assert.True(t, root.NotAfter.Before(time.Now().AddDate(0, 0, 6)))
}

func TestGenerateWithOrganization(t *testing.T) {
	a, err := Generate(WithKeyBits(2048), WithOrganization("Acme QA"))
	require.NoError(t, err)

	root := a.Certificate()
	assert.Equal(t, []string{"Acme QA"}, root.Subject.Organization)
	assert.Equal(t, DefaultCommonName, root.Subject.CommonName)
}

func TestIssueLeafValidatesAgainstRoot(t *testing.T) {
	a := newTestAuthority(t)

	names := []string{"example.com", "api.discord.com", "maps.googleapis.com", "localhost", "127.0.0.1"}
	for _, cn := range names {
		t.Run(cn, func(t *testing.T) {
			leaf, err := a.IssueLeaf(cn)
			require.NoError(t, err)

			assert.Equal(t, cn, leaf.Cert.Subject.CommonName)
			assert.Equal(t, a.Certificate().Subject.String(), leaf.Cert.Issuer.String())
			assert.Equal(t, x509.SHA256WithRSA, leaf.Cert.SignatureAlgorithm)

			_, err = leaf.Cert.Verify(x509.VerifyOptions{
				DNSName:   cn,
				Roots:     a.CertPool(),
				KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
			})
			assert.NoError(t, err)
		})
	}
}

func TestIssueLeafIsNeverReused(t *testing.T) {
	a := newTestAuthority(t)

	first, err := a.IssueLeaf("example.com")
	require.NoError(t, err)
	second, err := a.IssueLeaf("example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Cert.SerialNumber, second.Cert.SerialNumber)
	assert.False(t, first.Key.Equal(second.Key))
}

func TestIssueLeafWithoutAuthority(t *testing.T) {
	var a *Authority
	_, err := a.IssueLeaf("example.com")
	assert.ErrorIs(t, err, ErrNoCA)
}

func TestLeafRejectedByForeignRoot(t *testing.T) {
	a := newTestAuthority(t)
	other := newTestAuthority(t)

	leaf, err := a.IssueLeaf("example.com")
	require.NoError(t, err)

	_, err = leaf.Cert.Verify(x509.VerifyOptions{
		DNSName: "example.com",
		Roots:   other.CertPool(),
	})
	assert.Error(t, err)
}

func TestCertificatePEM(t *testing.T) {
	a := newTestAuthority(t)

	cert, err := DecodeCertificatePEM(a.CertificatePEM())
	require.NoError(t, err)
	assert.True(t, cert.Equal(a.Certificate()))

	_, err = DecodeCertificatePEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidPEM)
}

func TestNewRejectsNonCA(t *testing.T) {
	a := newTestAuthority(t)
	leaf, err := a.IssueLeaf("example.com")
	require.NoError(t, err)

	_, err = New(leaf.Cert, leaf.Key)
	assert.Error(t, err)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, ErrNoCA)
}

func TestNewRejectsMismatchedKey(t *testing.T) {
	a := newTestAuthority(t)
	b := newTestAuthority(t)

	_, err := New(a.Certificate(), b.key)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestLoadRejectsMismatchedKey(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	require.NoError(t, newTestAuthority(t).Save(dir))
	require.NoError(t, newTestAuthority(t).Save(other))

	key, err := os.ReadFile(filepath.Join(other, KeyFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), key, 0600))

	_, err = Load(dir)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = Ensure(dir, WithKeyBits(2048))
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ca")
	a := newTestAuthority(t)

	assert.False(t, Exists(dir))
	require.NoError(t, a.Save(dir))
	assert.True(t, Exists(dir))

	info, err := os.Stat(filepath.Join(dir, KeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, loaded.Certificate().Equal(a.Certificate()))

	// A leaf from the loaded authority must chain to the saved root.
	leaf, err := loaded.IssueLeaf("example.com")
	require.NoError(t, err)
	_, err = leaf.Cert.Verify(x509.VerifyOptions{DNSName: "example.com", Roots: a.CertPool()})
	assert.NoError(t, err)
}

func TestEnsureReusesExisting(t *testing.T) {
	dir := t.TempDir()

	first, err := Ensure(dir, WithKeyBits(2048))
	require.NoError(t, err)
	second, err := Ensure(dir, WithKeyBits(2048))
	require.NoError(t, err)

	assert.True(t, first.Certificate().Equal(second.Certificate()))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
