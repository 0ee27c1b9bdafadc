// Package auth issues and verifies the RS256 access tokens that secure the
// Conduit API, and hashes user passwords.
//
// KEY MATERIAL:
// The signing key lives in a password-protected PKCS#12 container (.pfx).
// LoadKeyPair reads it once at startup; the resulting *KeyPair is immutable
// and is passed explicitly to NewIssuer and NewVerifier:
//
//	kp, err := auth.LoadKeyPair(cfg.CertPath, cfg.CertPassphrase)
//	issuer := auth.NewIssuer(kp, time.Hour, "conduit")
//	verifier := auth.NewVerifier(kp, auth.DefaultFallback())
//
// TOKEN FORMAT:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"RS256","typ":"JWT"}
//	- Payload: {"iss":"conduit","sub":"jake","exp":...,"iat":...}
//	- Signature: RSASSA-PKCS1-v1_5 over SHA-256, private key
//
// Verification only needs the public half, derived from the same container.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// KeyPair is the RSA signing key and the certificate that carries its
// public half. It is read-only after construction and safe for concurrent
// use.
type KeyPair struct {
	private *rsa.PrivateKey
	cert    *x509.Certificate
}

// NewKeyPair wraps an existing key and certificate. The certificate's
// public key must match the private key.
func NewKeyPair(private *rsa.PrivateKey, cert *x509.Certificate) (*KeyPair, error) {
	if private == nil {
		return nil, ErrNoPrivateKey
	}
	if cert != nil {
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok || !pub.Equal(&private.PublicKey) {
			return nil, errors.New("auth: certificate does not match private key")
		}
	}
	return &KeyPair{private: private, cert: cert}, nil
}

// LoadKeyPair reads a PKCS#12 container from path and decrypts it with
// passphrase. Every failure is a *CertificateLoadError.
func LoadKeyPair(path, passphrase string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CertificateLoadError{Path: path, Err: err}
	}

	key, cert, _, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, &CertificateLoadError{Path: path, Err: ErrIncorrectPassphrase}
		}
		return nil, &CertificateLoadError{Path: path, Err: fmt.Errorf("decoding pkcs12: %w", err)}
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok || rsaKey == nil {
		return nil, &CertificateLoadError{Path: path, Err: ErrNoPrivateKey}
	}

	kp, err := NewKeyPair(rsaKey, cert)
	if err != nil {
		return nil, &CertificateLoadError{Path: path, Err: err}
	}
	return kp, nil
}

// GenerateKeyPair creates a fresh RSA key and a self-signed certificate for
// it. Intended for development and tests; production containers come from
// a real CA.
func GenerateKeyPair(commonName string, bits int, validFor time.Duration) (*KeyPair, error) {
	private, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("auth: generating RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("auth: generating serial number: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &private.PublicKey, private)
	if err != nil {
		return nil, fmt.Errorf("auth: creating certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing generated certificate: %w", err)
	}

	return &KeyPair{private: private, cert: cert}, nil
}

// EncodePKCS12 serialises the key pair into a password-protected container.
func (kp *KeyPair) EncodePKCS12(passphrase string) ([]byte, error) {
	if kp.cert == nil {
		return nil, errors.New("auth: key pair has no certificate to encode")
	}
	data, err := pkcs12.Modern.Encode(kp.private, kp.cert, nil, passphrase)
	if err != nil {
		return nil, fmt.Errorf("auth: encoding pkcs12: %w", err)
	}
	return data, nil
}

// WritePKCS12 writes the container to path with owner-only permissions.
func (kp *KeyPair) WritePKCS12(path, passphrase string) error {
	data, err := kp.EncodePKCS12(passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("auth: writing %s: %w", path, err)
	}
	return nil
}

// PrivateKey returns the signing key.
func (kp *KeyPair) PrivateKey() *rsa.PrivateKey { return kp.private }

// PublicKey returns the verification key.
func (kp *KeyPair) PublicKey() *rsa.PublicKey { return &kp.private.PublicKey }

// Certificate returns the leaf certificate, or nil when the pair was built
// from a bare key.
func (kp *KeyPair) Certificate() *x509.Certificate { return kp.cert }
