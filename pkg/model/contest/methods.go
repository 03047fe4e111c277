package contest

import (
	"encoding/json"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

type submitContentArgs struct {
	Slot       uint8  `json:"slot"`
	ContentRef string `json:"contentRef"`
}

type voteArgs struct {
	Slot uint8 `json:"slot"`
}

type finalizeWithWinnerArgs struct {
	ContentRef   string `json:"contentRef"`
	AssetPayload string `json:"assetPayload"`
	WinnerIndex  uint8  `json:"winnerIndex"`
}

func (e *Engine) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"submitContent": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in submitContentArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return e.SubmitContent(tx, in.Slot, in.ContentRef)
			},
		},
		"vote": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in voteArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return e.SubmitVote(tx, in.Slot)
			},
		},
		"advancePhase": {
			Handler: func(tx *ledger.Tx, _ json.RawMessage) (interface{}, error) {
				return e.AdvancePhase(tx)
			},
		},
		"finalizeWithWinner": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in finalizeWithWinnerArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return e.FinalizeWithWinner(tx, in.ContentRef, in.AssetPayload, in.WinnerIndex)
			},
		},
	}
}
