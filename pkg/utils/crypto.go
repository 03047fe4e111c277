package utils

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidKeyLength = errors.New("invalid key length")
)

func decodeHexKey(key string, size int) ([]byte, error) {
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(key), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "key is not hex encoded")
	}
	if len(keyBytes) != size {
		return nil, errors.Wrapf(ErrInvalidKeyLength, "expected %d bytes, got %d", size, len(keyBytes))
	}
	return keyBytes, nil
}

// ParseEd25519PublicKeyFromString parses a hex encoded public key.
func ParseEd25519PublicKeyFromString(key string) (ed25519.PublicKey, error) {
	keyBytes, err := decodeHexKey(key, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(keyBytes), nil
}

// ParseEd25519PrivateKeyFromString parses a hex encoded private key.
func ParseEd25519PrivateKeyFromString(key string) (ed25519.PrivateKey, error) {
	keyBytes, err := decodeHexKey(key, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PrivateKey(keyBytes), nil
}
