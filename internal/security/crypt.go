package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// sealedPrefix marks values written by TokenSealer so rows stored before a
// key was configured can still be read back.
const sealedPrefix = "gcm1:"

func LoadKeyFromBase64(b64 string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(k) != 32 {
		return nil, errors.New("TOKEN_ENC_KEY_B64 must decode to 32 bytes")
	}
	return k, nil
}

// TokenSealer encrypts marketplace tokens before they are stored. The zero
// value has no key and passes tokens through unchanged.
type TokenSealer struct {
	aead cipher.AEAD
}

func NewTokenSealer(keyB64 string) (TokenSealer, error) {
	if keyB64 == "" {
		return TokenSealer{}, nil
	}
	key, err := LoadKeyFromBase64(keyB64)
	if err != nil {
		return TokenSealer{}, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return TokenSealer{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return TokenSealer{}, err
	}
	return TokenSealer{aead: gcm}, nil
}

func (s TokenSealer) Enabled() bool { return s.aead != nil }

// Seal returns gcm1:base64url(nonce|ciphertext). Empty input stays empty.
func (s TokenSealer) Seal(plaintext string) (string, error) {
	if s.aead == nil || plaintext == "" {
		return plaintext, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is.
func (s TokenSealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if s.aead == nil {
		return "", errors.New("token is sealed but TOKEN_ENC_KEY_B64 is not set")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}
	pt, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
