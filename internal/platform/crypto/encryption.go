// Package crypto seals sensitive employee fields (national id, phone) before
// they reach a store.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// sealedPrefix marks values written by SealString so rows stored before a
// key was configured still read back as plain text.
const sealedPrefix = "enc:v1:"

const keySize = 32

var (
	errNoKey    = errors.New("sealed value found but no DATA_ENCRYPTION_KEY configured")
	errTooShort = errors.New("sealed value too short")
)

// Service is an AES-256-GCM field sealer. A Service built from an empty key
// passes values through unchanged.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	raw := parseKey(key)
	if len(raw) != keySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must decode to %d bytes, got %d", keySize, len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool { return s.aead != nil }

// SealString encrypts value and encodes it for a text column.
func (s *Service) SealString(value string) (string, error) {
	if value == "" || !s.Configured() {
		return value, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	// nonce || ciphertext
	box := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// OpenString reverses SealString. Values without the sealed prefix are
// returned as they are.
func (s *Service) OpenString(value string) (string, error) {
	encoded, sealed := strings.CutPrefix(value, sealedPrefix)
	if !sealed {
		return value, nil
	}
	if !s.Configured() {
		return "", errNoKey
	}
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(box) < n {
		return "", errTooShort
	}
	plain, err := s.aead.Open(nil, box[:n], box[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

// parseKey accepts hex, padded or raw base64, or the literal key bytes.
func parseKey(key string) []byte {
	if len(key) == hex.EncodedLen(keySize) {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if raw, err := enc.DecodeString(key); err == nil {
			return raw
		}
	}
	return []byte(key)
}
