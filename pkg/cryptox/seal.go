package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// sealInfo is the HKDF context string. Bump the version if the sealed
// format ever changes so old keys can't be confused with new ones.
const sealInfo = "storefront/credstore/v1"

var (
	ErrNoMasterKey = errors.New("cryptox: no master key configured")
	ErrShortSealed = errors.New("cryptox: sealed data too short")
)

// Sealer encrypts small secrets (tokens) with AES-256-GCM. The key is
// derived from arbitrary master key material with HKDF-SHA256, so a
// passphrase or the contents of a key file both work.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256 key from keyMaterial and returns a Sealer.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, ErrNoMasterKey
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// LoadKeyMaterial reads master key material from path if set, otherwise
// uses inline. Surrounding whitespace is trimmed so a trailing newline in a
// key file doesn't change the key.
func LoadKeyMaterial(path, inline string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		inline = string(data)
	}

	inline = strings.TrimSpace(inline)
	if inline == "" {
		return nil, ErrNoMasterKey
	}
	return []byte(inline), nil
}

// Seal encrypts plaintext. The output format is:
// [12-byte nonce][ciphertext][16-byte auth tag]
// aad is authenticated but not encrypted, Open must be given the same aad.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrShortSealed
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// SealString is Seal with base64url text in and out, for string stores.
func (s *Sealer) SealString(plaintext, aad string) (string, error) {
	sealed, err := s.Seal([]byte(plaintext), []byte(aad))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (s *Sealer) OpenString(sealed, aad string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	plaintext, err := s.Open(raw, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
