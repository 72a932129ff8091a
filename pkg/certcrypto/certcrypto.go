// Package certcrypto generates the RSA key pair, PKCS#10 CSR and
// self-signed test certificate this core needs for authenticated call
// setup. It is built entirely on stdlib crypto/x509 and crypto/rsa;
// see DESIGN.md for why no third-party X.509/CSR library is wired in
// here instead.
package certcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/pion/dtls/v2"
)

const defaultKeyBits = 2048

// defaultCipherSuites mirrors the VoIP-recommended DTLS cipher suite
// list a media transport would negotiate once the fingerprint this
// package produces is accepted by the peer.
var defaultCipherSuites = []dtls.CipherSuiteID{
	dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	dtls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	dtls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
}

// CipherSuites reports the cipher suites this account advertises as
// acceptable for the DTLS transport the fingerprint this Context
// produces would be used to authenticate. Negotiating and running the
// handshake itself is the media transport's job, not this package's.
func CipherSuites() []dtls.CipherSuiteID {
	return append([]dtls.CipherSuiteID(nil), defaultCipherSuites...)
}

// Context holds an account's key pair and the certificate material
// derived from it: either a server-signed client certificate we
// requested a CSR for, or an imported peer certificate (public key
// only).
type Context struct {
	key *rsa.PrivateKey

	cert *x509.Certificate
	peerPublic *rsa.PublicKey
}

// New generates an RSA key pair. keyBits defaults to 2048 when 0;
// pass 1024 only for a debug escape hatch, never in production.
func New(keyBits int) (*Context, error) {
	if keyBits == 0 {
		keyBits = defaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("certcrypto: generate key: %w", err)
	}
	return &Context{key: key}, nil
}

// Request builds a PKCS#10 CSR with CN=subject, signed by the
// account's key pair, and returns it base64-encoded DER.
func (c *Context) Request(subject string) (string, error) {
	template := x509.CertificateRequest{
		Subject: pkix.Name{CommonName: subject},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &template, c.key)
	if err != nil {
		return "", fmt.Errorf("certcrypto: create CSR: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// TestCertificate issues a self-signed certificate with subject
// CN=test@test.com, serial 1, valid for 600 seconds from now.
func (c *Context) TestCertificate() error {
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{CommonName: "test@test.com"},
		NotBefore: now,
		NotAfter: now.Add(600 * time.Second),
		SignatureAlgorithm: x509.SHA256WithRSA,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &c.key.PublicKey, c.key)
	if err != nil {
		return fmt.Errorf("certcrypto: create self-signed certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("certcrypto: parse generated certificate: %w", err)
	}
	c.cert = cert
	return nil
}

// Decode imports a server-signed client certificate for this
// account's key pair, base64-encoded DER.
func (c *Context) Decode(b64 string) error {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("certcrypto: decode base64: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("certcrypto: parse certificate: %w", err)
	}
	c.cert = cert
	return nil
}

// Import imports a peer certificate, keeping the parsed certificate
// (for Valid/Expires) and its RSA public key — this Context is not the
// signer, so no private key material exists for it.
func (c *Context) Import(der []byte) error {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("certcrypto: parse peer certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("certcrypto: peer certificate does not carry an RSA public key")
	}
	c.cert = cert
	c.peerPublic = pub
	return nil
}

// Valid reports whether now+offsetSeconds falls within the
// certificate's validity window, or true if no certificate has been
// established yet (validity could not be determined).
func (c *Context) Valid(offsetSeconds int) bool {
	if c.cert == nil {
		return true
	}
	at := time.Now().Add(time.Duration(offsetSeconds) * time.Second)
	return !at.Before(c.cert.NotBefore) && !at.After(c.cert.NotAfter)
}

// Expires returns the remaining seconds until NotAfter, or 0 if no
// certificate has been established.
func (c *Context) Expires() int {
	if c.cert == nil {
		return 0
	}
	remaining := time.Until(c.cert.NotAfter)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// Fingerprint returns the DTLS-style "sha-256 AA:BB:..." fingerprint
// of the current certificate, grounded in the same SHA-256-over-DER
// computation a WebRTC certificate helper uses for its a=fingerprint
// SDP line.
func (c *Context) Fingerprint() (string, error) {
	if c.cert == nil {
		return "", fmt.Errorf("certcrypto: no certificate established")
	}
	sum := sha256.Sum256(c.cert.Raw)
	out := make([]byte, 0, len(sum)*3-1)
	for i, b := range sum {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, []byte(fmt.Sprintf("%02X", b))...)
	}
	return "sha-256 " + string(out), nil
}

// PrivateKey exposes the account key pair for the TLS layer of the
// SIP transport to consume (interface only, per this core's scope
// boundary).
func (c *Context) PrivateKey() *rsa.PrivateKey { return c.key }
