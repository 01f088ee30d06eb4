// Package secrets encrypts third-party OAuth tokens before they reach the
// database. AES-256-GCM with a per-call random IV; the ciphertext, IV and
// authentication tag are kept as separate base64 fields so a record can be
// inspected (and tampering detected) without decrypting.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const ivSize = 12 // GCM standard nonce size

var ErrDecrypt = errors.New("secrets: decryption failed")

// EncryptedToken is the persisted shape of an encrypted token.
type EncryptedToken struct {
	Ciphertext string `json:"encrypted"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
}

// TokenCipher performs authenticated encryption of token strings with a key
// derived from the configured server secret.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a 256-bit AES key from secret via HKDF-SHA256.
// An empty secret is refused so a misconfigured server fails at startup, not
// at the first token write.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, errors.New("secrets: encryption secret is empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("runnmate token encryption"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *TokenCipher) Encrypt(plaintext string) (EncryptedToken, error) {
	if plaintext == "" {
		return EncryptedToken{}, errors.New("secrets: plaintext is empty")
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedToken{}, fmt.Errorf("generating iv: %w", err)
	}

	// Seal appends the 16-byte auth tag to the ciphertext; split it back out
	// so the stored record carries the tag as its own field.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - c.aead.Overhead()

	return EncryptedToken{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagStart:]),
	}, nil
}

// Decrypt opens an encrypted token. Any altered field makes tag verification
// fail and ErrDecrypt is returned; no partial plaintext ever escapes.
func (c *TokenCipher) Decrypt(token EncryptedToken) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(token.Ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	iv, err := base64.StdEncoding.DecodeString(token.IV)
	if err != nil || len(iv) != ivSize {
		return "", ErrDecrypt
	}
	tag, err := base64.StdEncoding.DecodeString(token.AuthTag)
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", ErrDecrypt
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
