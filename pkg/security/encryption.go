package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Encryptor seals and opens opaque values.
type Encryptor interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// NewAESEncryptor creates an AES-GCM encryptor. key must be 16, 24 or 32
// bytes long.
func NewAESEncryptor(key []byte) (Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption
	}

	return &aesEncryptor{gcm: gcm}, nil
}

// NewAESEncryptorFromHex decodes a hex key as found in configuration.
func NewAESEncryptorFromHex(key string) (Encryptor, error) {
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	return NewAESEncryptor(raw)
}

type aesEncryptor struct {
	gcm cipher.AEAD
}

// Encrypt returns nonce||ciphertext.
func (a *aesEncryptor) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrEncryption
	}
	return a.gcm.Seal(nonce, nonce, data, nil), nil
}

func (a *aesEncryptor) Decrypt(data []byte) ([]byte, error) {
	nonceSize := a.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecryption
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := a.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
