package governance

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/treasury"
)

// ProposalState is the lifecycle state of a proposal.
type ProposalState byte

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateSucceeded
	ProposalStateDefeated
	ProposalStateExecuted
)

var proposalStateNames = map[ProposalState]string{
	ProposalStatePending:   "pending",
	ProposalStateActive:    "active",
	ProposalStateSucceeded: "succeeded",
	ProposalStateDefeated:  "defeated",
	ProposalStateExecuted:  "executed",
}

func (s ProposalState) String() string {
	if name, exists := proposalStateNames[s]; exists {
		return name
	}
	return fmt.Sprintf("state(%d)", byte(s))
}

func (s ProposalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ProposalState) UnmarshalText(text []byte) error {
	for state, name := range proposalStateNames {
		if strings.EqualFold(name, string(text)) {
			*s = state
			return nil
		}
	}
	return errors.Errorf("unknown proposal state %q", string(text))
}

// Terminal reports whether no further transition can leave s.
func (s ProposalState) Terminal() bool {
	return s == ProposalStateDefeated || s == ProposalStateExecuted
}

// Choice is the option of a governance vote.
type Choice byte

const (
	ChoiceAgainst Choice = iota
	ChoiceFor
	ChoiceAbstain
)

var choiceNames = map[Choice]string{
	ChoiceAgainst: "against",
	ChoiceFor:     "for",
	ChoiceAbstain: "abstain",
}

func (c Choice) String() string {
	if name, exists := choiceNames[c]; exists {
		return name
	}
	return fmt.Sprintf("choice(%d)", byte(c))
}

func (c Choice) valid() bool {
	_, exists := choiceNames[c]
	return exists
}

// Proposal is a governance proposal carrying one treasury call.
type Proposal struct {
	ID          uint64         `json:"id"`
	Proposer    ledger.Address `json:"proposer"`
	Description string         `json:"description"`
	Call        *treasury.Call `json:"call"`
	// Snapshot is the sequence whose membership balances weight the votes.
	Snapshot     uint64    `json:"snapshot"`
	CreatedAt    time.Time `json:"createdAt"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	ForVotes     uint64    `json:"forVotes"`
	AgainstVotes uint64    `json:"againstVotes"`
	AbstainVotes uint64    `json:"abstainVotes"`
	// Quorum is the quorum in effect when the proposal was created.
	Quorum uint64 `json:"quorum"`
	// Finalized is set once the outcome was persisted.
	Finalized bool                 `json:"finalized"`
	Executed  bool                 `json:"executed"`
	Result    *treasury.CallResult `json:"result,omitempty"`
	State     ProposalState        `json:"state"`
}

// stateAt derives the state of the proposal at ts.
func (p *Proposal) stateAt(ts time.Time) ProposalState {
	switch {
	case p.Executed:
		return ProposalStateExecuted
	case ts.Before(p.StartTime):
		return ProposalStatePending
	case ts.Before(p.EndTime):
		return ProposalStateActive
	case p.ForVotes >= p.Quorum && p.ForVotes > p.AgainstVotes:
		return ProposalStateSucceeded
	default:
		return ProposalStateDefeated
	}
}

func (p *Proposal) addVotes(choice Choice, weight uint64) {
	switch choice {
	case ChoiceFor:
		p.ForVotes += weight
	case ChoiceAgainst:
		p.AgainstVotes += weight
	default:
		p.AbstainVotes += weight
	}
}

// Ballot is the vote of a principal on a proposal.
type Ballot struct {
	ProposalID uint64         `json:"proposalId"`
	Voter      ledger.Address `json:"voter"`
	Choice     Choice         `json:"choice"`
	Weight     uint64         `json:"weight"`
}
