package treasury

import (
	"encoding/json"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// Holds the governor address
	TreasuryStoreKeyPrefixGovernor byte = 0x50
)

// Command is the method invocation carried by a call. An empty method is a plain value transfer.
type Command struct {
	Method string          `json:"method,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Call is an arbitrary call executed on behalf of the treasury.
type Call struct {
	Target ledger.Address `json:"target"`
	Value  uint64         `json:"value"`
	Command
}

// CallResult is the outcome of an executed call.
type CallResult struct {
	Target     ledger.Address  `json:"target"`
	Success    bool            `json:"success"`
	ReturnData json.RawMessage `json:"returnData,omitempty"`
	// Code is the error code of a failed call.
	Code string `json:"code,omitempty"`
}

// TransferEvent is emitted for every outbound transfer.
type TransferEvent struct {
	Denom  ledger.Denom   `json:"denom"`
	To     ledger.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// GovernorEvent is emitted when the governor is rotated.
type GovernorEvent struct {
	Previous ledger.Address `json:"previous"`
	Governor ledger.Address `json:"governor"`
}

// Options define options for the Treasury.
type Options struct {
	logger *logger.Logger
}

// Option is a function setting a treasury option.
type Option func(opts *Options)

// WithLogger enables logging within the treasury.
func WithLogger(logger *logger.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Treasury holds the funds of the DAO. Every mutating entry point is reserved to the governor.
type Treasury struct {
	address ledger.Address
	opts    *Options
}

// New creates the treasury.
func New(opts ...Option) *Treasury {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return &Treasury{
		address: ledger.ContractAddress("treasury"),
		opts:    options,
	}
}

func (t *Treasury) Address() ledger.Address {
	return t.address
}

func (t *Treasury) Name() string {
	return "treasury"
}

func governorKey() []byte {
	return []byte{TreasuryStoreKeyPrefixGovernor}
}

// Governor returns the address allowed to instruct the treasury.
func (t *Treasury) Governor(r ledger.Reader) (ledger.Address, error) {
	value, err := r.Get(governorKey())
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return ledger.NullAddress, nil
	}
	if err != nil {
		return ledger.NullAddress, err
	}

	var governor ledger.Address
	copy(governor[:], value)
	return governor, nil
}

// Init sets the first governor. It is part of genesis.
func (t *Treasury) Init(tx *ledger.Tx, governor ledger.Address) error {
	if !tx.Caller().IsNull() {
		return errors.Wrapf(ledger.ErrNotAuthorized, "%s may not initialize the treasury", tx.Caller())
	}
	if err := t.validGovernor(governor); err != nil {
		return err
	}
	tx.Set(governorKey(), governor[:])
	return nil
}

func (t *Treasury) validGovernor(governor ledger.Address) error {
	if governor.IsNull() || governor == t.address {
		return errors.Wrapf(ledger.ErrInvalidGovernor, "%s", governor)
	}
	return nil
}

func (t *Treasury) authorize(tx *ledger.Tx) error {
	governor, err := t.Governor(tx)
	if err != nil {
		return err
	}
	if governor.IsNull() || tx.Caller() != governor {
		return errors.Wrapf(ledger.ErrNotAuthorized, "%s is not the governor", tx.Caller())
	}
	return nil
}

// guard runs fn after the governor check, with the treasury marked as executing.
func (t *Treasury) guard(tx *ledger.Tx, fn func() error) error {
	if err := t.authorize(tx); err != nil {
		return err
	}

	release, err := tx.Enter(t.address)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

func (t *Treasury) requireBalance(r ledger.Reader, denom ledger.Denom, amount uint64) error {
	balance, err := ledger.TokenBalanceOf(r, denom, t.address)
	if err != nil {
		return err
	}
	if balance < amount {
		return errors.Wrapf(ledger.ErrInsufficientBalance, "treasury holds %d %s, %d requested", balance, denom, amount)
	}
	return nil
}

// TransferNative sends amount of the native asset to to.
func (t *Treasury) TransferNative(tx *ledger.Tx, to ledger.Address, amount uint64) error {
	return t.TransferAsset(tx, ledger.NativeDenom, to, amount)
}

// TransferAsset sends amount of denom to to. The transfer happens completely or not at all.
func (t *Treasury) TransferAsset(tx *ledger.Tx, denom ledger.Denom, to ledger.Address, amount uint64) error {
	return t.guard(tx, func() error {
		if to.IsNull() {
			return ledger.ErrInvalidAddress
		}
		if err := t.requireBalance(tx, denom, amount); err != nil {
			return err
		}

		if err := tx.TransferToken(denom, t.address, to, amount); err != nil {
			return err
		}

		tx.Emit(t.address, "Transferred", &TransferEvent{Denom: denom, To: to, Amount: amount})
		return nil
	})
}

// ExecuteCall executes call with the treasury as caller. A failing call does not
// fail the transaction: it is reported with success=false and its effects are discarded.
func (t *Treasury) ExecuteCall(tx *ledger.Tx, call *Call) (*CallResult, error) {
	var result *CallResult
	if err := t.guard(tx, func() error {
		var err error
		result, err = t.execute(tx, call)
		return err
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// BatchExecute executes one call per target. Failing calls do not stop the batch.
func (t *Treasury) BatchExecute(tx *ledger.Tx, targets []ledger.Address, values []uint64, commands []Command) ([]*CallResult, error) {
	if len(targets) != len(values) || len(targets) != len(commands) {
		return nil, errors.Wrapf(ledger.ErrLengthMismatch, "%d targets, %d values, %d commands", len(targets), len(values), len(commands))
	}

	results := make([]*CallResult, 0, len(targets))
	if err := t.guard(tx, func() error {
		for i := range targets {
			result, err := t.execute(tx, &Call{Target: targets[i], Value: values[i], Command: commands[i]})
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *Treasury) execute(tx *ledger.Tx, call *Call) (*CallResult, error) {
	if err := t.requireBalance(tx, ledger.NativeDenom, call.Value); err != nil {
		return nil, err
	}

	var returned interface{}
	callErr := tx.Savepoint(func(tx *ledger.Tx) error {
		var err error
		returned, err = tx.WithCaller(t.address).Call(call.Target, call.Value, call.Method, call.Args)
		return err
	})

	result := &CallResult{Target: call.Target, Success: callErr == nil}
	if callErr != nil {
		result.Code = ledger.CodeOf(callErr)
		result.ReturnData, _ = json.Marshal(callErr.Error())

		if t.opts.logger != nil {
			t.opts.logger.Debugf("call %s.%s failed: %s", call.Target, call.Method, callErr)
		}
		tx.Emit(t.address, "CallFailed", result)
		return result, nil
	}

	if returned != nil {
		data, err := json.Marshal(returned)
		if err != nil {
			return nil, err
		}
		result.ReturnData = data
	}

	tx.Emit(t.address, "CallExecuted", result)
	return result, nil
}

// SetGovernor hands the treasury to governor. Only the current governor may rotate itself.
func (t *Treasury) SetGovernor(tx *ledger.Tx, governor ledger.Address) error {
	if err := t.authorize(tx); err != nil {
		return err
	}
	if err := t.validGovernor(governor); err != nil {
		return err
	}

	tx.Set(governorKey(), governor[:])
	tx.Emit(t.address, "GovernorChanged", &GovernorEvent{Previous: tx.Caller(), Governor: governor})
	return nil
}
