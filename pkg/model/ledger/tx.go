package ledger

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Log is an event emitted by a contract during a transaction.
// Logs of failed transactions and rolled back savepoints are discarded.
type Log struct {
	Contract Address     `json:"contract"`
	Name     string      `json:"name"`
	Sequence uint64      `json:"sequence"`
	Data     interface{} `json:"data,omitempty"`
}

type txMeta struct {
	timestamp time.Time
	sequence  uint64
	entered   map[Address]struct{}
}

// Tx is the execution context of a single ledger transaction.
// All writes go to an overlay that is committed atomically when the transaction succeeds.
type Tx struct {
	ledger *Ledger
	frame  *frame
	meta   *txMeta

	caller         Address
	value          uint64
	valueRecipient Address
}

// Caller is the immediate caller: the signing principal, or the contract that issued an inner call.
func (tx *Tx) Caller() Address {
	return tx.caller
}

// Timestamp is the ledger time of the transaction.
func (tx *Tx) Timestamp() time.Time {
	return tx.meta.timestamp
}

// Sequence is the sequence number the transaction will be committed with.
func (tx *Tx) Sequence() uint64 {
	return tx.meta.sequence
}

func (tx *Tx) Get(key []byte) ([]byte, error) {
	return tx.frame.Get(key)
}

func (tx *Tx) Has(key []byte) (bool, error) {
	return tx.frame.Has(key)
}

func (tx *Tx) Iterate(prefix []byte, consumer func(key []byte, value []byte) bool) error {
	return tx.frame.Iterate(prefix, consumer)
}

// Set writes a value into the transaction overlay.
func (tx *Tx) Set(key []byte, value []byte) {
	tx.frame.set(key, value)
}

// Delete removes a key in the transaction overlay.
func (tx *Tx) Delete(key []byte) {
	tx.frame.delete(key)
}

// WithCaller returns a context in which contract executes an inner call.
// The returned context carries no value.
func (tx *Tx) WithCaller(contract Address) *Tx {
	inner := *tx
	inner.caller = contract
	inner.value = 0
	inner.valueRecipient = NullAddress
	return &inner
}

// ValueFor returns the value deposited to recipient by the caller for this call.
func (tx *Tx) ValueFor(recipient Address) uint64 {
	if tx.valueRecipient != recipient {
		return 0
	}
	return tx.value
}

// Deposit moves amount of the native asset from the caller to recipient and
// returns a context carrying that value.
func (tx *Tx) Deposit(recipient Address, amount uint64) (*Tx, error) {
	if amount > 0 {
		if err := tx.move(NativeDenom, tx.caller, recipient, amount); err != nil {
			return nil, err
		}
	}

	inner := *tx
	inner.value = amount
	inner.valueRecipient = recipient
	return &inner, nil
}

// Savepoint runs fn on a nested overlay. Changes and logs of fn are kept only if it succeeds.
func (tx *Tx) Savepoint(fn func(tx *Tx) error) error {
	inner := *tx
	inner.frame = newFrame(tx.frame)

	if err := fn(&inner); err != nil {
		return err
	}

	inner.frame.mergeInto(tx.frame)
	return nil
}

// Enter marks contract as executing. It fails with ErrReentrantCall if contract
// is already executing in this transaction.
func (tx *Tx) Enter(contract Address) (func(), error) {
	if _, entered := tx.meta.entered[contract]; entered {
		return nil, errors.Wrapf(ErrReentrantCall, "contract %s", contract)
	}
	tx.meta.entered[contract] = struct{}{}

	return func() {
		delete(tx.meta.entered, contract)
	}, nil
}

// Emit records a log for contract.
func (tx *Tx) Emit(contract Address, name string, data interface{}) {
	tx.frame.logs = append(tx.frame.logs, &Log{
		Contract: contract,
		Name:     name,
		Sequence: tx.meta.sequence,
		Data:     data,
	})
}

// Call invokes method on the contract at target with the caller of tx.
// Without a contract at target, an empty method transfers value to target.
func (tx *Tx) Call(target Address, value uint64, method string, args json.RawMessage) (interface{}, error) {
	contract, exists := tx.ledger.Contract(target)
	if !exists {
		if method != "" {
			return nil, errors.Wrapf(ErrUnknownContract, "target %s", target)
		}
		return nil, tx.Transfer(tx.caller, target, value)
	}

	m, exists := contract.Methods()[method]
	if !exists {
		return nil, errors.Wrapf(ErrUnknownMethod, "%s.%s", contract.Name(), method)
	}
	if value > 0 && !m.Payable {
		return nil, errors.Wrapf(ErrNotPayable, "%s.%s", contract.Name(), method)
	}

	inner, err := tx.Deposit(target, value)
	if err != nil {
		return nil, err
	}

	return m.Handler(inner, args)
}

// NotifyAssetReceived invokes the asset receiver hook of to, if any.
func (tx *Tx) NotifyAssetReceived(to Address, collection Address, tokenID uint64) error {
	receiver, exists := tx.ledger.receiver(to)
	if !exists {
		return nil
	}
	if err := receiver.OnReceiveAsset(tx.WithCaller(collection), collection, tokenID); err != nil {
		return errors.Wrapf(ErrTransferRejected, "asset %d to %s: %s", tokenID, to, err)
	}
	return nil
}
