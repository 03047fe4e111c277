package ledger

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Handler executes a contract entry point.
type Handler func(tx *Tx, args json.RawMessage) (interface{}, error)

// Method is a named entry point of a contract.
type Method struct {
	// Payable methods accept value with the call.
	Payable bool
	Handler Handler
}

// Contract is an engine reachable through signed transactions and inner calls.
// Its method table is the complete list of what can be invoked on it.
type Contract interface {
	Address() Address
	Name() string
	Methods() map[string]*Method
}

// DecodeArgs unmarshals call arguments. Empty arguments leave target untouched.
func DecodeArgs(args json.RawMessage, target interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, target); err != nil {
		return errors.WithMessagef(ErrInvalidArguments, "%s", err)
	}
	return nil
}

// NoResult adapts an entry point without a return value to a Handler.
func NoResult(fn func(tx *Tx, args json.RawMessage) error) Handler {
	return func(tx *Tx, args json.RawMessage) (interface{}, error) {
		return nil, fn(tx, args)
	}
}
