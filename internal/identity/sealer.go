package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "anon-comments/client-snapshot/v1"

// ErrUnsealable is returned when a sealed value is corrupt or was sealed
// under a different pepper
var ErrUnsealable = errors.New("identity: cannot open sealed value")

// Sealer encrypts small JSON documents at rest with a key derived from the
// pepper. Rotating the pepper makes previously sealed values unreadable.
type Sealer struct {
	key []byte
}

// NewSealer derives the encryption key from the pepper with HKDF-SHA256
func NewSealer(pepper string) (*Sealer, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(pepper), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal marshals v to JSON and encrypts it with XChaCha20-Poly1305.
// The result is base64(nonce || ciphertext).
func (s *Sealer) Seal(v interface{}) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("seal marshal: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("seal cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("seal nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal into v
func (s *Sealer) Open(sealed string, v interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return ErrUnsealable
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("open cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return ErrUnsealable
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrUnsealable
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("open unmarshal: %w", err)
	}
	return nil
}
