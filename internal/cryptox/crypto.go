package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/shelfsync/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	KeySize  = 32
	SaltSize = 16
)

var ErrMalformed = errors.New("sealed blob is too short")

// DeriveKey stretches a passphrase into a 32-byte AES key with argon2id.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key and returns nonce||ciphertext.
//
// The key must be 16, 24 or 32 bytes long. A fresh random nonce is drawn for
// every call.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aesgcm.NonceSize() {
		return nil, ErrMalformed
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

// SealWithPassphrase derives a key from passphrase and a random salt, seals
// plaintext with it and returns salt||nonce||ciphertext.
func SealWithPassphrase(plaintext, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(SaltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	sealed, err := Seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

// OpenWithPassphrase reverses SealWithPassphrase.
func OpenWithPassphrase(blob, passphrase []byte) ([]byte, error) {
	if len(blob) < SaltSize {
		return nil, ErrMalformed
	}
	key := DeriveKey(passphrase, blob[:SaltSize])
	defer common.WipeByteArray(key)

	return Open(blob[SaltSize:], key)
}
