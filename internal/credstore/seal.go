package credstore

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedVersion prefixes every encrypted file and is authenticated as
// AAD, so a tampered version byte fails to open.
const sealedVersion byte = 0x01

const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

var hkdfInfo = []byte("shopadmin.credstore.file.v1")

// sealer encrypts the credential file with XChaCha20-Poly1305 under a
// key derived from a configured secret.
type sealer struct {
	key []byte
}

func newSealer(secret string) (*sealer, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("deriving credential key: %w", err)
	}
	return &sealer{key: key}, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}
	out := make([]byte, 1+len(nonce), 1+len(nonce)+len(plaintext)+aead.Overhead())
	out[0] = sealedVersion
	copy(out[1:], nonce[:])
	return aead.Seal(out, nonce[:], plaintext, []byte{sealedVersion}), nil
}

func (s *sealer) open(blob []byte) ([]byte, error) {
	if len(blob) < sealedOverhead {
		return nil, fmt.Errorf("sealed credentials are %d bytes, minimum is %d", len(blob), sealedOverhead)
	}
	if blob[0] != sealedVersion {
		return nil, fmt.Errorf("sealed credentials version %d is not supported", blob[0])
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return nil, fmt.Errorf("decrypting credentials (wrong secret or tampered file): %w", err)
	}
	return plaintext, nil
}
