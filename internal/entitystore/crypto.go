package entitystore

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	verifierPlaintext = "kakeibo-store-v1"
)

var verifierAAD = []byte("store_meta/verifier")

// ErrBadPassphrase is returned by Open when the passphrase does not match
// the one the store was created with.
var ErrBadPassphrase = errors.New("store passphrase does not match")

// sealer encrypts record payloads with XChaCha20-Poly1305.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(passphrase string, salt []byte) (*sealer, error) {
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &sealer{aead: aead}, nil
}

// seal returns nonce || ciphertext. aad binds the blob to its record.
func (s *sealer) seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

func (s *sealer) open(blob, aad []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(blob) < n+s.aead.Overhead() {
		return nil, errors.New("sealed payload is truncated")
	}
	plaintext, err := s.aead.Open(nil, blob[:n], blob[n:], aad)
	if err != nil {
		return nil, fmt.Errorf("decrypt payload: %w", err)
	}
	return plaintext, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
