// Package certstore loads, validates and generates the self-signed
// certificate and PKCS#8 private key pchmd's transport endpoint uses for
// TLS. Files live under the platform user-config directory, resolved by
// github.com/adrg/xdg, as pchmd.crt and pchmd.key. Loading requires each
// file's PEM content to decode to exactly one item of the expected type;
// anything else fails with a descriptive error rather than a best-effort
// guess.
package certstore
