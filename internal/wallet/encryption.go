package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingvault/pkg/crypto"
	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the XChaCha20-Poly1305 nonce length.
const NonceSize = chacha20poly1305.NonceSizeX

var (
	// ErrAuthentication means the key was wrong or the ciphertext was altered.
	ErrAuthentication = errors.New("authentication failed")
	// ErrMalformed means the inputs cannot be a sealed message at all.
	ErrMalformed = errors.New("malformed ciphertext")
)

// Seal encrypts plaintext under key with XChaCha20-Poly1305.
// A fresh random nonce is drawn for every call and returned alongside the
// ciphertext; the caller stores both.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce, err = crypto.RandomBytes(NonceSize)
	if err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts a ciphertext produced by Seal.
func Open(ciphertext, key, nonce []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes", ErrMalformed, len(key))
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce is %d bytes", ErrMalformed, len(nonce))
	}
	if len(ciphertext) < chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short: %d bytes", ErrMalformed, len(ciphertext))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
