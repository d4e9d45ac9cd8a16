package security

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoPEM              = errors.New("security: no PEM block found")
	ErrUnsupportedKeyType = errors.New("security: unsupported private key type")
	ErrEncryptedKey       = errors.New("security: private key is encrypted and no SECRET_AES is configured")
)

// Signer signs challenges with a team private key. Stored keys are either PEM
// or hex AES-256-GCM ciphertext of the PEM.
type Signer struct {
	aesKey *[32]byte
}

func NewSigner(secretAES string) *Signer {
	s := &Signer{}
	if secretAES != "" {
		key := AESKey(secretAES)
		s.aesKey = &key
	}
	return s
}

// Sign returns the lower-case hex signature of challenge. RSA keys sign
// SHA-256(challenge) with PKCS#1 v1.5; Ed25519 keys sign the raw bytes.
func (s *Signer) Sign(challenge, storedKey string) (string, error) {
	key, err := s.PrivateKey(storedKey)
	if err != nil {
		return "", err
	}

	var sig []byte
	switch k := key.(type) {
	case *rsa.PrivateKey:
		digest := sha256.Sum256([]byte(challenge))
		sig, err = rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, digest[:])
		if err != nil {
			return "", fmt.Errorf("security: rsa sign: %w", err)
		}
	case ed25519.PrivateKey:
		sig = ed25519.Sign(k, []byte(challenge))
	default:
		return "", ErrUnsupportedKeyType
	}

	return hex.EncodeToString(sig), nil
}

// PrivateKey decodes a stored private key, decrypting it first when needed.
func (s *Signer) PrivateKey(storedKey string) (crypto.Signer, error) {
	raw := strings.TrimSpace(storedKey)
	if !strings.HasPrefix(raw, "-----BEGIN") {
		if s == nil || s.aesKey == nil {
			return nil, ErrEncryptedKey
		}
		plain, err := Open(raw, *s.aesKey)
		if err != nil {
			return nil, err
		}
		raw = string(plain)
	}
	return ParsePrivateKey([]byte(raw))
}

func ParsePrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrNoPEM
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("security: parse private key: %w", err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}

func ParsePublicKey(pemBytes []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrNoPEM
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("security: parse public key: %w", err)
	}
	return key, nil
}
