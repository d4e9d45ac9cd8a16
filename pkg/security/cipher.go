package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidCiphertext = errors.New("security: invalid ciphertext")

// AESKey derives the 32 byte AES-256 key from the SECRET_AES value.
func AESKey(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// Seal encrypts plain with AES-256-GCM and returns hex(nonce || ciphertext).
func Seal(plain []byte, key [32]byte) (string, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce gen: %w", err)
	}
	return hex.EncodeToString(aesgcm.Seal(nonce, nonce, plain, nil)), nil
}

func Open(encHex string, key [32]byte) ([]byte, error) {
	data, err := hex.DecodeString(encHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plain, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
