package treasury

import (
	"encoding/json"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

type transferArgs struct {
	Denom  ledger.Denom   `json:"denom,omitempty"`
	To     ledger.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type batchExecuteArgs struct {
	Targets  []ledger.Address `json:"targets"`
	Values   []uint64         `json:"values"`
	Commands []Command        `json:"commands"`
}

type setGovernorArgs struct {
	Governor ledger.Address `json:"governor"`
}

func (t *Treasury) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		// deposits are plain payable calls
		"deposit": {
			Payable: true,
			Handler: func(tx *ledger.Tx, _ json.RawMessage) (interface{}, error) {
				return tx.ValueFor(t.address), nil
			},
		},
		"transferNative": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in transferArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				return t.TransferNative(tx, in.To, in.Amount)
			}),
		},
		"transferAsset": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in transferArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				if in.Denom == "" {
					return ledger.ErrInvalidArguments
				}
				return t.TransferAsset(tx, in.Denom, in.To, in.Amount)
			}),
		},
		"executeCall": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				call := &Call{}
				if err := ledger.DecodeArgs(args, call); err != nil {
					return nil, err
				}
				return t.ExecuteCall(tx, call)
			},
		},
		"batchExecute": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in batchExecuteArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return t.BatchExecute(tx, in.Targets, in.Values, in.Commands)
			},
		},
		"setGovernor": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in setGovernorArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				return t.SetGovernor(tx, in.Governor)
			}),
		},
	}
}
