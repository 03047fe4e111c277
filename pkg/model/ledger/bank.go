package ledger

import (
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/pkg/errors"
)

// Denom names a fungible asset held in ledger accounts.
type Denom string

// NativeDenom is the value asset carried by transactions.
const NativeDenom Denom = "native"

// Receiver is implemented by accounts that react to incoming value or assets.
// Returning an error rejects the incoming transfer.
type Receiver interface {
	OnReceive(tx *Tx, denom Denom, amount uint64) error
	OnReceiveAsset(tx *Tx, collection Address, tokenID uint64) error
}

func balanceKey(denom Denom, address Address) []byte {
	m := marshalutil.New(2 + len(denom) + AddressLength)
	m.WriteByte(LedgerStoreKeyPrefixBalances) // 1 byte
	m.WriteByte(byte(len(denom)))             // 1 byte
	m.WriteBytes([]byte(denom))               // len(denom) bytes
	m.WriteBytes(address[:])                  // 32 bytes
	return m.Bytes()
}

// BalanceOf returns the native balance of address.
func BalanceOf(r Reader, address Address) (uint64, error) {
	return TokenBalanceOf(r, NativeDenom, address)
}

// TokenBalanceOf returns the balance of address in denom.
func TokenBalanceOf(r Reader, denom Denom, address Address) (uint64, error) {
	return readUint64(r, balanceKey(denom, address))
}

// Mint creates amount of denom in the account of to. Only genesis may mint.
func (tx *Tx) Mint(denom Denom, to Address, amount uint64) error {
	if !tx.caller.IsNull() {
		return errors.Wrap(ErrNotAuthorized, "only genesis can mint")
	}

	balance, err := TokenBalanceOf(tx, denom, to)
	if err != nil {
		return err
	}
	tx.Set(balanceKey(denom, to), uint64Bytes(balance+amount))
	return nil
}

// Transfer moves amount of the native asset from one account to another.
func (tx *Tx) Transfer(from Address, to Address, amount uint64) error {
	return tx.TransferToken(NativeDenom, from, to, amount)
}

// TransferToken moves amount of denom from one account to another and invokes the
// receiver hook of to. A rejected transfer leaves no trace and returns ErrTransferRejected.
func (tx *Tx) TransferToken(denom Denom, from Address, to Address, amount uint64) error {
	if amount == 0 {
		return nil
	}

	return tx.Savepoint(func(tx *Tx) error {
		if err := tx.move(denom, from, to, amount); err != nil {
			return err
		}

		receiver, exists := tx.ledger.receiver(to)
		if !exists {
			return nil
		}
		if err := receiver.OnReceive(tx.WithCaller(from), denom, amount); err != nil {
			return errors.Wrapf(ErrTransferRejected, "%d %s to %s: %s", amount, denom, to, err)
		}
		return nil
	})
}

func (tx *Tx) move(denom Denom, from Address, to Address, amount uint64) error {
	fromBalance, err := TokenBalanceOf(tx, denom, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return errors.Wrapf(ErrInsufficientBalance, "%s holds %d %s, needs %d", from, fromBalance, denom, amount)
	}
	if from == to {
		return nil
	}

	toBalance, err := TokenBalanceOf(tx, denom, to)
	if err != nil {
		return err
	}

	tx.Set(balanceKey(denom, from), uint64Bytes(fromBalance-amount))
	tx.Set(balanceKey(denom, to), uint64Bytes(toBalance+amount))
	return nil
}

func uint64Bytes(value uint64) []byte {
	return marshalutil.New(8).WriteUint64(value).Bytes()
}

// readUint64 returns 0 for missing keys.
func readUint64(r Reader, key []byte) (uint64, error) {
	value, err := r.Get(key)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return DecodeUint64(value)
}

// DecodeUint64 decodes a value written with PutUint64.
func DecodeUint64(value []byte) (uint64, error) {
	return marshalutil.New(value).ReadUint64()
}

// ReadUint64 reads a counter written with PutUint64. Missing keys read as 0.
func ReadUint64(r Reader, key []byte) (uint64, error) {
	return readUint64(r, key)
}

// PutUint64 writes a counter.
func (tx *Tx) PutUint64(key []byte, value uint64) {
	tx.Set(key, uint64Bytes(value))
}
