package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyPair holds PEM encoded keys: PKCS#8 private and PKIX public.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("security: generate rsa key: %w", err)
	}

	priv, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("security: marshal private key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("security: marshal public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: priv})),
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})),
	}, nil
}

const licenseKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateLicenseKey returns a random key in the XXXXX-XXXXX-XXXXX-XXXXX-XXXXX form.
func GenerateLicenseKey() (string, error) {
	buf := make([]byte, 25)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: generate license key: %w", err)
	}

	out := make([]byte, 0, 29)
	for i, b := range buf {
		if i > 0 && i%5 == 0 {
			out = append(out, '-')
		}
		out = append(out, licenseKeyAlphabet[int(b)%len(licenseKeyAlphabet)])
	}
	return string(out), nil
}
