package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
)

func encryptForTest(t *testing.T, secret, plaintext string) string {
	t.Helper()
	key, err := DeriveKey(secret)
	if err != nil {
		t.Fatal(err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...))
}

func TestDecryptRoundTrip(t *testing.T) {
	payload := encryptForTest(t, "shared-secret", "aGVsbG8gaW1hZ2U=")

	got, err := DecryptImagePayload(payload, "", "shared-secret")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if got != "aGVsbG8gaW1hZ2U=" {
		t.Fatalf("unexpected plaintext: %q", got)
	}
}

func TestDecryptWrongSecretFails(t *testing.T) {
	payload := encryptForTest(t, "secret-a", "data")
	if _, err := DecryptImagePayload(payload, "aes_gcm", "secret-b"); err == nil {
		t.Fatal("expected authentication failure")
	}
}

func TestDecryptRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := DecryptImagePayload("abcd", "rot13", "secret"); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}

func TestDecryptRejectsShortPayload(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("tiny"))
	if _, err := DecryptImagePayload(short, "", "secret"); err == nil {
		t.Fatal("expected payload-too-short error")
	}
}

func TestMissingSecret(t *testing.T) {
	payload := encryptForTest(t, "secret", "data")
	_, err := DecryptImagePayload(payload, "", "")
	if !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}
