package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks a column value produced by Encrypt. Values without it
// are treated as legacy plaintext.
const sealedPrefix = "enc:v1:"

var ErrCiphertextTooShort = errors.New("phi decrypt: ciphertext too short")

// PHIEncryptor provides AES-256-GCM field-level encryption. The additional
// data binds a ciphertext to the row it belongs to, so a value copied onto
// another record fails to open.
type PHIEncryptor struct {
	aead cipher.AEAD
}

// NewPHIEncryptor creates a new PHIEncryptor with the given 32-byte AES-256 key.
func NewPHIEncryptor(key []byte) (*PHIEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create GCM: %w", err)
	}

	return &PHIEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext for storage in a text column.
func (e *PHIEncryptor) Encrypt(plaintext, aad string) (string, error) {
	sealed, err := e.EncryptBytes([]byte(plaintext), []byte(aad))
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt with the same aad.
func (e *PHIEncryptor) Decrypt(value, aad string) (string, error) {
	if !IsSealed(value) {
		return "", fmt.Errorf("phi decrypt: value is not sealed")
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}

	plaintext, err := e.DecryptBytes(data, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes returns nonce || ciphertext.
func (e *PHIEncryptor) EncryptBytes(data, aad []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(data)+e.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, data, aad), nil
}

func (e *PHIEncryptor) DecryptBytes(data, aad []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("phi decrypt: %w", err)
	}
	return plaintext, nil
}

// IsSealed reports whether a stored value was produced by Encrypt.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
