package certstore

import "errors"

var (
	// ErrNoCertificate is returned when the PEM content for the
	// certificate file contains no CERTIFICATE block.
	ErrNoCertificate = errors.New("certstore: no certificate found")

	// ErrMultipleCertificates is returned when the certificate file
	// contains more than one PEM item; exactly one is required.
	ErrMultipleCertificates = errors.New("certstore: expected exactly one certificate")

	// ErrWrongPEMType is returned when a PEM block's type does not match
	// what the caller expected (e.g. a certificate found in the key file).
	ErrWrongPEMType = errors.New("certstore: unexpected PEM block type")

	// ErrNoPrivateKey is returned when the PEM content for the key file
	// contains no PRIVATE KEY block.
	ErrNoPrivateKey = errors.New("certstore: no private key found")

	// ErrMultiplePrivateKeys is returned when the key file contains more
	// than one PEM item; exactly one is required.
	ErrMultiplePrivateKeys = errors.New("certstore: expected exactly one private key")
)
