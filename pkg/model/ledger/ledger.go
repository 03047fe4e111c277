package ledger

import (
	"time"

	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/syncutils"
	"github.com/pkg/errors"
)

// Receipt describes a committed transaction.
type Receipt struct {
	Sequence  uint64      `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Caller    Address     `json:"caller"`
	Result    interface{} `json:"result,omitempty"`
	Logs      []*Log      `json:"logs,omitempty"`
}

// ReceiptCaller is used to signal committed transactions.
func ReceiptCaller(handler interface{}, params ...interface{}) {
	handler.(func(receipt *Receipt))(params[0].(*Receipt))
}

// LogCaller is used to signal emitted logs.
func LogCaller(handler interface{}, params ...interface{}) {
	handler.(func(log *Log))(params[0].(*Log))
}

// Events are the events issued by the ledger.
type Events struct {
	// Fired after a transaction was committed.
	TransactionCommitted *events.Event
	// Fired for every log of a committed transaction, in emission order.
	LogEmitted *events.Event
}

// Ledger executes transactions one at a time against a key value store.
// Every transaction is atomic and totally ordered by its sequence number.
type Ledger struct {
	// the single writer lock
	syncutils.RWMutex

	store  kvstore.KVStore
	opts   *Options
	closed bool

	registryLock syncutils.RWMutex
	contracts    map[Address]Contract
	receivers    map[Address]Receiver

	Events *Events
}

// the default options applied to the Ledger.
var defaultOptions = []Option{
	WithClock(SystemClock{}),
}

// Options define options for the Ledger.
type Options struct {
	logger *logger.Logger
	clock  Clock
}

// applies the given Option.
func (so *Options) apply(opts ...Option) {
	for _, opt := range opts {
		opt(so)
	}
}

// WithLogger enables logging within the ledger.
func WithLogger(logger *logger.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithClock sets the clock used to timestamp transactions.
func WithClock(clock Clock) Option {
	return func(opts *Options) {
		opts.clock = clock
	}
}

// Option is a function setting a ledger option.
type Option func(opts *Options)

// New creates a new Ledger on top of store.
func New(store kvstore.KVStore, opts ...Option) *Ledger {
	options := &Options{}
	options.apply(defaultOptions...)
	options.apply(opts...)

	return &Ledger{
		store:     store,
		opts:      options,
		contracts: make(map[Address]Contract),
		receivers: make(map[Address]Receiver),
		Events: &Events{
			TransactionCommitted: events.NewEvent(ReceiptCaller),
			LogEmitted:           events.NewEvent(LogCaller),
		},
	}
}

// RegisterContract makes the methods of contract callable at its address.
func (l *Ledger) RegisterContract(contract Contract) {
	l.registryLock.Lock()
	defer l.registryLock.Unlock()
	l.contracts[contract.Address()] = contract
}

// Contract returns the contract registered at address.
func (l *Ledger) Contract(address Address) (Contract, bool) {
	l.registryLock.RLock()
	defer l.registryLock.RUnlock()
	contract, exists := l.contracts[address]
	return contract, exists
}

// Contracts returns all registered contracts.
func (l *Ledger) Contracts() []Contract {
	l.registryLock.RLock()
	defer l.registryLock.RUnlock()

	contracts := make([]Contract, 0, len(l.contracts))
	for _, contract := range l.contracts {
		contracts = append(contracts, contract)
	}
	return contracts
}

// RegisterReceiver installs the incoming transfer hook of address.
func (l *Ledger) RegisterReceiver(address Address, receiver Receiver) {
	l.registryLock.Lock()
	defer l.registryLock.Unlock()
	l.receivers[address] = receiver
}

func (l *Ledger) receiver(address Address) (Receiver, bool) {
	l.registryLock.RLock()
	defer l.registryLock.RUnlock()
	receiver, exists := l.receivers[address]
	return receiver, exists
}

func headKey() []byte {
	return []byte{LedgerStoreKeyPrefixHead}
}

func (l *Ledger) head(r Reader) (uint64, time.Time, error) {
	value, err := r.Get(headKey())
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	m := marshalutil.New(value)
	sequence, err := m.ReadUint64()
	if err != nil {
		return 0, time.Time{}, err
	}
	unix, err := m.ReadInt64()
	if err != nil {
		return 0, time.Time{}, err
	}
	return sequence, time.Unix(unix, 0), nil
}

// now returns the ledger time, which has second resolution and never goes backwards.
func (l *Ledger) now(last time.Time) time.Time {
	now := time.Unix(l.opts.clock.Now().Unix(), 0)
	if now.Before(last) {
		return last
	}
	return now
}

// Transact executes fn as a transaction of caller.
// Nothing fn writes is persisted if it returns an error.
func (l *Ledger) Transact(caller Address, fn func(tx *Tx) error) (*Receipt, error) {
	l.Lock()
	receipt, err := l.transact(caller, nil, fn)
	l.Unlock()

	if err != nil {
		return nil, err
	}
	l.publish(receipt)
	return receipt, nil
}

// Genesis executes fn with the privileges of the genesis transaction.
func (l *Ledger) Genesis(fn func(tx *Tx) error) error {
	_, err := l.Transact(NullAddress, fn)
	return err
}

// transact executes fn on an overlay and commits it in a single batch.
// The entries of keep are committed whether fn succeeds or not.
func (l *Ledger) transact(caller Address, keep map[string][]byte, fn func(tx *Tx) error) (*Receipt, error) {
	if l.closed {
		return nil, ErrLedgerClosed
	}

	root := &storeReader{store: l.store}

	sequence, last, err := l.head(root)
	if err != nil {
		return nil, err
	}

	tx := &Tx{
		ledger: l,
		frame:  newFrame(root),
		meta: &txMeta{
			timestamp: l.now(last),
			sequence:  sequence + 1,
			entered:   make(map[Address]struct{}),
		},
		caller: caller,
	}

	if err := fn(tx); err != nil {
		if l.opts.logger != nil {
			l.opts.logger.Debugf("transaction of %s failed: %s", caller, err)
		}

		if len(keep) > 0 {
			kept := newFrame(root)
			for key, value := range keep {
				kept.set([]byte(key), value)
			}
			if commitErr := kept.commit(l.store); commitErr != nil {
				return nil, errors.Wrap(commitErr, "committing failed transaction failed")
			}
		}
		return nil, err
	}

	for key, value := range keep {
		tx.frame.set([]byte(key), value)
	}

	head := marshalutil.New(16)
	head.WriteUint64(tx.meta.sequence)
	head.WriteInt64(tx.meta.timestamp.Unix())
	tx.frame.set(headKey(), head.Bytes())

	if err := tx.frame.commit(l.store); err != nil {
		return nil, errors.Wrap(err, "committing transaction failed")
	}

	return &Receipt{
		Sequence:  tx.meta.sequence,
		Timestamp: tx.meta.timestamp,
		Caller:    caller,
		Logs:      tx.frame.logs,
	}, nil
}

func (l *Ledger) publish(receipt *Receipt) {
	l.Events.TransactionCommitted.Trigger(receipt)
	for _, log := range receipt.Logs {
		l.Events.LogEmitted.Trigger(log)
	}
}

// View runs fn on a consistent read-only view of the committed state.
func (l *Ledger) View(fn func(state State) error) error {
	l.RLock()
	defer l.RUnlock()

	root := &storeReader{store: l.store}
	sequence, last, err := l.head(root)
	if err != nil {
		return err
	}

	return fn(&view{
		Reader:    root,
		timestamp: l.now(last),
		sequence:  sequence,
	})
}

// Close rejects further transactions and flushes the underlying store.
// The store itself is closed by its owner.
func (l *Ledger) Close() error {
	l.Lock()
	defer l.Unlock()

	l.closed = true
	return l.store.Flush()
}
