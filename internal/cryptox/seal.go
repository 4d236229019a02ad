// Package cryptox keeps sensitive bytes sealed in memory with a random
// per-process key, so the plaintext only exists while it is being used.
package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed is an XChaCha20-Poly1305 box together with its key and nonce.
// It is immutable after Seal returns.
type Sealed struct {
	ciphertext []byte
	key        []byte
	nonce      []byte
	size       int
}

// Seal encrypts plaintext under a freshly generated key. The caller may wipe
// plaintext afterwards; Sealed keeps no reference to it.
func Seal(plaintext []byte) (*Sealed, error) {
	key := common.GenerateRandByteArray(chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("new aead: %w", err)
	}

	nonce := common.GenerateRandByteArray(aead.NonceSize())
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Sealed{ciphertext: ciphertext, key: key, nonce: nonce, size: len(plaintext)}, nil
}

// Open returns a fresh copy of the plaintext. Wipe it with
// common.WipeByteArray when done.
func (s *Sealed) Open() ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPayloadSealed, err)
	}

	plaintext, err := aead.Open(nil, s.nonce, s.ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPayloadSealed, err)
	}
	return plaintext, nil
}

// Len is the plaintext length.
func (s *Sealed) Len() int {
	return s.size
}
