package auction

import (
	"encoding/binary"
	"encoding/json"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

type performUpkeepArgs struct {
	AuctionID uint64 `json:"auctionId,omitempty"`
}

type claimAssetArgs struct {
	TokenID uint64         `json:"tokenId"`
	To      ledger.Address `json:"to"`
}

type transferTokenArgs struct {
	TokenID uint64         `json:"tokenId"`
	To      ledger.Address `json:"to"`
}

// Methods lists the entry points of the auction. Starting an auction is not among them.
func (e *Engine) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"placeBid": {
			Payable: true,
			Handler: func(tx *ledger.Tx, _ json.RawMessage) (interface{}, error) {
				return e.PlaceBid(tx)
			},
		},
		"withdraw": {
			Handler: func(tx *ledger.Tx, _ json.RawMessage) (interface{}, error) {
				return e.Withdraw(tx)
			},
		},
		"performUpkeep": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in performUpkeepArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}

				var data []byte
				if in.AuctionID != 0 {
					data = make([]byte, 8)
					binary.BigEndian.PutUint64(data, in.AuctionID)
				}
				return e.PerformUpkeep(tx, data)
			},
		},
		"claimAsset": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in claimAssetArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				if in.To.IsNull() {
					in.To = tx.Caller()
				}
				return e.ClaimAsset(tx, in.TokenID, in.To)
			}),
		},
		"transferToken": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in transferTokenArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				return e.TransferToken(tx, in.TokenID, in.To)
			}),
		},
	}
}
