package certcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsTo2048Bits(t *testing.T) {
	ctx, err := New(0)
	require.NoError(t, err)
	require.Equal(t, 2048, ctx.PrivateKey().N.BitLen())
}

func TestRequestBuildsCSRWithSubject(t *testing.T) {
	ctx, err := New(1024)
	require.NoError(t, err)

	b64, err := ctx.Request("alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, b64)

	der, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", csr.Subject.CommonName)
}

func TestTestCertificateValidityWindow(t *testing.T) {
	ctx, err := New(1024)
	require.NoError(t, err)
	require.NoError(t, ctx.TestCertificate())

	require.True(t, ctx.Valid(0))
	require.False(t, ctx.Valid(601))

	remaining := ctx.Expires()
	require.Greater(t, remaining, 0)
	require.LessOrEqual(t, remaining, 600)
}

func TestValidWithoutCertificateIsTrue(t *testing.T) {
	ctx, err := New(1024)
	require.NoError(t, err)
	require.True(t, ctx.Valid(0))
	require.Equal(t, 0, ctx.Expires())
}

func TestImportPeerCertificateKeepsPublicKeyOnly(t *testing.T) {
	peerKey, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "peer@example.com"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &peerKey.PublicKey, peerKey)
	require.NoError(t, err)

	ctx, err := New(1024)
	require.NoError(t, err)
	require.NoError(t, ctx.Import(der))
	require.True(t, ctx.Valid(0))
	require.True(t, peerKey.PublicKey.Equal(ctx.peerPublic))
}

func TestFingerprintRequiresCertificate(t *testing.T) {
	ctx, err := New(1024)
	require.NoError(t, err)
	_, err = ctx.Fingerprint()
	require.Error(t, err)

	require.NoError(t, ctx.TestCertificate())
	fp, err := ctx.Fingerprint()
	require.NoError(t, err)
	require.Contains(t, fp, "sha-256 ")
}

func TestCipherSuitesReturnsACopy(t *testing.T) {
	suites := CipherSuites()
	require.NotEmpty(t, suites)

	suites[0] = 0
	require.NotEqual(t, suites[0], CipherSuites()[0])
}
