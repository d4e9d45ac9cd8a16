package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrEmptySecret = errors.New("security: hmac secret is empty")

// KeyLookup derives the storage lookup token for a plaintext license key.
type KeyLookup struct {
	secret []byte
}

func NewKeyLookup(secret string) (*KeyLookup, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &KeyLookup{secret: []byte(secret)}, nil
}

// Token returns hex(HMAC-SHA256(secret, "<licenseKey>:<teamID>")).
func (k *KeyLookup) Token(licenseKey, teamID string) string {
	mac := hmac.New(sha256.New, k.secret)
	mac.Write([]byte(licenseKey + ":" + teamID))
	return hex.EncodeToString(mac.Sum(nil))
}
