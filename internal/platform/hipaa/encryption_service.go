package hipaa

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// EncryptionService wraps a PHIEncryptor and adds a disabled mode for
// development environments where no key is configured.
type EncryptionService struct {
	encryptor *PHIEncryptor
}

// NewEncryptionService creates the service from a 64-character hex key. An
// empty key disables encryption with a warning; a malformed key is an error
// so the server refuses to start half-configured.
func NewEncryptionService(hexKey string, logger zerolog.Logger) (*EncryptionService, error) {
	if hexKey == "" {
		logger.Warn().Msg("PHI encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return &EncryptionService{}, nil
	}

	keyBytes, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}

	enc, err := NewPHIEncryptor(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create PHI encryptor: %w", err)
	}

	logger.Info().Msg("PHI field-level encryption enabled")
	return &EncryptionService{encryptor: enc}, nil
}

func (s *EncryptionService) IsEnabled() bool {
	return s != nil && s.encryptor != nil
}

// EncryptField seals a value, or returns it unchanged when disabled.
func (s *EncryptionService) EncryptField(value, aad string) (string, error) {
	if !s.IsEnabled() || value == "" {
		return value, nil
	}
	return s.encryptor.Encrypt(value, aad)
}

// DecryptField opens a sealed value. Plaintext rows written before the key
// was configured are returned as-is.
func (s *EncryptionService) DecryptField(value, aad string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if !s.IsEnabled() {
		return "", fmt.Errorf("phi decrypt: value is sealed but PHI_ENCRYPTION_KEY is not set")
	}
	return s.encryptor.Decrypt(value, aad)
}

// Seal encrypts an opaque payload, or returns it unchanged when disabled.
func (s *EncryptionService) Seal(data, aad []byte) ([]byte, error) {
	if !s.IsEnabled() {
		return data, nil
	}
	return s.encryptor.EncryptBytes(data, aad)
}

// Open reverses Seal.
func (s *EncryptionService) Open(data, aad []byte) ([]byte, error) {
	if !s.IsEnabled() {
		return data, nil
	}
	return s.encryptor.DecryptBytes(data, aad)
}
