package blockstore

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption is the opaque, size-expanding filter a Bucket may wrap its
// Source with. Put encrypts before the Source sees the bytes; Get
// decrypts after. Overhead is the number of bytes Encrypt adds to a
// plaintext of any length, used to compute a Bucket's effective MaxSize
// so that any payload up to that size survives the round trip.
type Encryption interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	Overhead() int
}

// ChaCha20Poly1305 implements Encryption with a single long-lived AEAD
// key. Each Encrypt call draws a fresh nonce, so Overhead is the nonce
// plus the AEAD tag.
type ChaCha20Poly1305 struct {
	aead chacha20poly1305.AEAD
}

// NewChaCha20Poly1305 builds an Encryption from a 32-byte key.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("blockstore: build aead: %w", err)
	}
	return &ChaCha20Poly1305{aead: aead}, nil
}

func (c *ChaCha20Poly1305) Overhead() int {
	return chacha20poly1305.NonceSize + c.aead.Overhead()
}

func (c *ChaCha20Poly1305) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("blockstore: generate nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plaintext, nil), nil
}

func (c *ChaCha20Poly1305) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrCodec)
	}
	nonce, sealed := ciphertext[:chacha20poly1305.NonceSize], ciphertext[chacha20poly1305.NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", ErrCodec, err)
	}
	return plaintext, nil
}
