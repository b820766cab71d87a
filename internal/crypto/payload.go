// Package crypto decrypts image payloads that clients encrypt in the
// browser with AES-GCM under a shared secret. The 256-bit key is derived
// from the secret via SHA-256 and the payload is base64 of
// nonce (12 bytes) + ciphertext + tag.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// DefaultAlgorithm is the only payload scheme currently supported.
	DefaultAlgorithm = "aes_gcm"

	nonceSize = 12
	tagSize   = 16
)

// ErrSecretMissing is returned when decryption is requested but no shared
// secret is configured.
var ErrSecretMissing = errors.New("image encryption secret is not configured")

// DeriveKey turns a human-readable shared secret into a 256-bit AES key.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

// DecryptImagePayload decrypts a base64-encoded AES-GCM payload and
// returns the original base64 image string the client encrypted.
func DecryptImagePayload(payloadB64, algorithm, secret string) (string, error) {
	algo := algorithm
	if algo == "" {
		algo = DefaultAlgorithm
	}
	if algo != DefaultAlgorithm {
		return "", fmt.Errorf("unsupported encryption algorithm: %s", algorithm)
	}

	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", fmt.Errorf("invalid base64 for encrypted payload: %w", err)
	}
	if len(payload) < nonceSize+tagSize {
		return "", errors.New("encrypted payload too short to contain nonce and tag")
	}

	key, err := DeriveKey(secret)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return string(plaintext), nil
}
