package certstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadRoundTrip(t *testing.T) {
	certPEM, keyPEM, err := GenerateCertificate()
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "pchmd.crt")
	keyPath := filepath.Join(dir, "pchmd.key")
	require.NoError(t, Write(certPath, keyPath, certPEM, keyPEM))

	store, err := Load(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost", store.Leaf.Subject.CommonName)
	assert.True(t, Exists(certPath, keyPath))
}

func TestLoadRejectsExtraPEMItems(t *testing.T) {
	certPEM, keyPEM, err := GenerateCertificate()
	require.NoError(t, err)
	certPEM2, _, err := GenerateCertificate()
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "pchmd.crt")
	keyPath := filepath.Join(dir, "pchmd.key")

	require.NoError(t, Write(certPath, keyPath, append(certPEM, certPEM2...), keyPEM))

	_, err = Load(certPath, keyPath)
	require.ErrorIs(t, err, ErrMultipleCertificates)
}

func TestLoadRejectsWrongPEMType(t *testing.T) {
	_, keyPEM, err := GenerateCertificate()
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "pchmd.crt")
	keyPath := filepath.Join(dir, "pchmd.key")

	// Write the key's bytes where the certificate is expected.
	require.NoError(t, Write(certPath, keyPath, keyPEM, keyPEM))

	_, err = Load(certPath, keyPath)
	require.ErrorIs(t, err, ErrWrongPEMType)
}

func TestExistsFalseWhenMissing(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(filepath.Join(dir, "pchmd.crt"), filepath.Join(dir, "pchmd.key")))
}

func TestLoadLeafDoesNotRequireKeyFile(t *testing.T) {
	certPEM, _, err := GenerateCertificate()
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "pchmd.crt")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o644))

	leaf, err := LoadLeaf(certPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost", leaf.Subject.CommonName)
}
