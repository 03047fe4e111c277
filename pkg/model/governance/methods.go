package governance

import (
	"encoding/json"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/treasury"
)

type proposeArgs struct {
	Description string         `json:"description"`
	Call        *treasury.Call `json:"call"`
}

type voteArgs struct {
	ProposalID uint64 `json:"proposalId"`
	Choice     Choice `json:"choice"`
}

type proposalArgs struct {
	ProposalID uint64 `json:"proposalId"`
}

func (g *Governor) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"propose": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in proposeArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return g.Propose(tx, in.Description, in.Call)
			},
		},
		"vote": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in voteArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return g.Vote(tx, in.ProposalID, in.Choice)
			},
		},
		"finalize": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in proposalArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return g.Finalize(tx, in.ProposalID)
			},
		},
		"execute": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in proposalArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return g.Execute(tx, in.ProposalID)
			},
		},
	}
}
