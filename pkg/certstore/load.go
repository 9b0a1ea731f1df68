package certstore

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Store is a loaded, validated certificate/key pair, ready to back a QUIC
// listener's tls.Config. It is loaded once at endpoint construction and
// never re-read at runtime, per the concurrency model's shared-resource
// policy.
type Store struct {
	Certificate tls.Certificate
	Leaf        *x509.Certificate
}

// Load reads and validates the certificate and key files at certPath and
// keyPath. The certificate file's PEM content must decode to exactly one
// CERTIFICATE block; the key file's PEM content must decode to exactly one
// PRIVATE KEY (PKCS#8) block. Any other PEM item kind, or more than one
// item, fails validation with a descriptive error — never a panic or a
// best-effort guess.
func Load(certPath, keyPath string) (*Store, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("certstore: read certificate %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("certstore: read private key %s: %w", keyPath, err)
	}

	leaf, err := validateCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("certstore: %s: %w", certPath, err)
	}
	if err := validatePrivateKeyPEM(keyPEM); err != nil {
		return nil, fmt.Errorf("certstore: %s: %w", keyPath, err)
	}

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("certstore: build key pair: %w", err)
	}

	return &Store{Certificate: tlsCert, Leaf: leaf}, nil
}

// validateCertificatePEM requires the PEM content to decode to exactly one
// item, of type CERTIFICATE, and parses it.
func validateCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, rest := pem.Decode(data)
	if block == nil {
		return nil, ErrNoCertificate
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: got %q, want CERTIFICATE", ErrWrongPEMType, block.Type)
	}
	if next, _ := pem.Decode(rest); next != nil {
		return nil, ErrMultipleCertificates
	}
	return x509.ParseCertificate(block.Bytes)
}

// validatePrivateKeyPEM requires the PEM content to decode to exactly one
// item, of type PRIVATE KEY (PKCS#8), and that it parses as such.
func validatePrivateKeyPEM(data []byte) error {
	block, rest := pem.Decode(data)
	if block == nil {
		return ErrNoPrivateKey
	}
	if block.Type != "PRIVATE KEY" {
		return fmt.Errorf("%w: got %q, want PRIVATE KEY", ErrWrongPEMType, block.Type)
	}
	if next, _ := pem.Decode(rest); next != nil {
		return ErrMultiplePrivateKeys
	}
	_, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	return err
}

// LoadLeaf reads and validates only the certificate file at certPath,
// without requiring a paired private key — the client side only ever needs
// the server's public leaf to pin it, never the key.
func LoadLeaf(certPath string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("certstore: read certificate %s: %w", certPath, err)
	}
	leaf, err := validateCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("certstore: %s: %w", certPath, err)
	}
	return leaf, nil
}

// Exists reports whether both the certificate and key files at certPath and
// keyPath are present and pass validation, used by the generator tool to
// decide whether an overwrite confirmation is needed.
func Exists(certPath, keyPath string) bool {
	_, err := Load(certPath, keyPath)
	return err == nil
}

// ClientTLSConfig builds a tls.Config for the client side that pins the
// server's certificate by comparing the presented leaf's raw bytes
// verbatim, rather than trusting any certificate authority.
func ClientTLSConfig(pinned *x509.Certificate, nextProtos []string) *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(pinned)
	return &tls.Config{
		RootCAs:    pool,
		ServerName: pinned.Subject.CommonName,
		NextProtos: nextProtos,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 || !bytes.Equal(rawCerts[0], pinned.Raw) {
				return fmt.Errorf("certstore: server certificate does not match the pinned certificate")
			}
			return nil
		},
	}
}

// ServerTLSConfig builds a tls.Config for the server side from a loaded
// Store.
func ServerTLSConfig(store *Store, nextProtos []string) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{store.Certificate},
		NextProtos:   nextProtos,
	}
}
