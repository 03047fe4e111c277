package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	// AddressLength is the length of an Address in bytes.
	AddressLength = blake2b.Size256
)

// Address identifies a principal or a contract account on the ledger.
type Address [AddressLength]byte

// NullAddress is the empty address. It never belongs to a principal.
var NullAddress = Address{}

// AddressFromPublicKey derives the address of the principal owning the given key.
func AddressFromPublicKey(publicKey ed25519.PublicKey) Address {
	return blake2b.Sum256(publicKey)
}

// ContractAddress derives the account address of a named contract.
func ContractAddress(name string) Address {
	return blake2b.Sum256([]byte("contract:" + name))
}

// AddressFromHex parses a hex encoded address with or without 0x prefix.
func AddressFromHex(hexString string) (Address, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(hexString), "0x"))
	if err != nil {
		return NullAddress, errors.WithMessagef(ErrInvalidAddress, "invalid address %q: %s", hexString, err)
	}
	if len(b) != AddressLength {
		return NullAddress, errors.WithMessagef(ErrInvalidAddress, "invalid address length %d", len(b))
	}
	var address Address
	copy(address[:], b)
	return address, nil
}

// MustAddressFromHex parses a hex encoded address and panics on failure.
func MustAddressFromHex(hexString string) Address {
	address, err := AddressFromHex(hexString)
	if err != nil {
		panic(err)
	}
	return address
}

// IsNull reports whether the address is the NullAddress.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// String returns the 0x prefixed hex encoding of the address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	address, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = address
	return nil
}
