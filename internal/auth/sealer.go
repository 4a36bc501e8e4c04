package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrSealedValue = errors.New("sealed value is corrupt or was sealed with another key")

// Sealer encrypts small secrets, such as saved SMTP passwords, at rest.
type Sealer struct {
	key [32]byte
}

// NewSealer parses a hex encoded 32 byte key
func NewSealer(hexKey string) (*Sealer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(raw))
	}

	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal returns base64(nonce || box)
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrSealedValue
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedValue
	}
	return string(plain), nil
}
