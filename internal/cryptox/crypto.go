// Package cryptox implements at-rest protection for persisted session
// tokens: argon2id key derivation from a user passphrase and AES-GCM
// sealing of the serialized token triple.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/recordbase/internal/shared"
	"golang.org/x/crypto/argon2"
)

// DeriveKey stretches a passphrase into a 256-bit AES key using argon2id.
// The salt must be random per stored blob and persisted alongside it.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-GCM under the given key. A fresh random
// 12-byte nonce is generated per call and returned separately; it is not
// secret and is stored next to the ciphertext.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = shared.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts a blob produced by Seal. A wrong key or tampered
// ciphertext fails authentication and returns an error.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// GCM panics on a wrong-size nonce; a corrupted store must fail, not
	// crash.
	if len(nonce) != aesgcm.NonceSize() {
		return nil, errors.New("invalid nonce")
	}

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
