package utils

import (
	"crypto/ed25519"
	"fmt"

	"github.com/wollac/iota-crypto-demo/pkg/bip32path"
	"github.com/wollac/iota-crypto-demo/pkg/slip10"
	"golang.org/x/crypto/blake2b"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	pathString = "44'/4218'/0'/%d'"
)

// HDWallet is a named test principal whose key is derived from a seed.
type HDWallet struct {
	name  string
	seed  []byte
	index uint64
	nonce uint64
}

func NewHDWallet(name string, seed []byte, index uint64) *HDWallet {
	return &HDWallet{
		name:  name,
		seed:  seed,
		index: index,
	}
}

func (hd *HDWallet) Name() string {
	return hd.name
}

// KeyPair calculates an ed25519 key pair by using slip10.
func (hd *HDWallet) KeyPair() (ed25519.PrivateKey, ed25519.PublicKey) {

	path, err := bip32path.ParsePath(fmt.Sprintf(pathString, hd.index))
	if err != nil {
		panic(err)
	}

	curve := slip10.Ed25519()
	key, err := slip10.DeriveKeyFromPath(hd.seed, curve, path)
	if err != nil {
		panic(err)
	}

	pubKey, privKey := slip10.Ed25519Key(key)
	return ed25519.PrivateKey(privKey), ed25519.PublicKey(pubKey)
}

// Address calculates the ledger address of the wallet.
func (hd *HDWallet) Address() ledger.Address {
	_, pubKey := hd.KeyPair()
	return ledger.AddressFromPublicKey(pubKey)
}

// Sign signs transaction with the next nonce of the wallet.
func (hd *HDWallet) Sign(transaction *ledger.Transaction) *ledger.Transaction {
	privKey, _ := hd.KeyPair()
	transaction.Sign(privKey, hd.nonce)
	hd.nonce++
	return transaction
}

// SetNonce overrides the nonce used for the next signature.
func (hd *HDWallet) SetNonce(nonce uint64) {
	hd.nonce = nonce
}

// NewNamedWallet creates a wallet whose seed is derived from name.
func NewNamedWallet(name string) *HDWallet {
	seed := blake2b.Sum512([]byte(name))
	return NewHDWallet(name, seed[:], 0)
}
