package governance

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/eligibility"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/treasury"
)

const (
	// Holds the number of proposals
	GovernanceStoreKeyPrefixCount byte = 0x60

	// Holds the proposals by id
	GovernanceStoreKeyPrefixProposals byte = 0x61

	// Holds the ballots per proposal and voter
	GovernanceStoreKeyPrefixBallots byte = 0x62

	// Holds the latest proposal per proposer
	GovernanceStoreKeyPrefixLatest byte = 0x63
)

// Executor executes the call of a succeeded proposal.
type Executor interface {
	ExecuteCall(tx *ledger.Tx, call *treasury.Call) (*treasury.CallResult, error)
}

// Config holds the governance parameters.
type Config struct {
	// VotingDelay separates the creation of a proposal from the start of its vote.
	VotingDelay time.Duration
	// VotingPeriod is the length of the vote.
	VotingPeriod time.Duration
	// Quorum is the minimum weight of for votes for a proposal to succeed.
	Quorum uint64
}

// Options define options for the Governor.
type Options struct {
	logger *logger.Logger
}

// Option is a function setting a governor option.
type Option func(opts *Options)

// WithLogger enables logging within the governor.
func WithLogger(logger *logger.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Governor runs the proposal lifecycle and instructs the treasury.
type Governor struct {
	address  ledger.Address
	config   *Config
	oracle   eligibility.Oracle
	executor Executor
	opts     *Options
}

// New creates the governor.
func New(config *Config, oracle eligibility.Oracle, executor Executor, opts ...Option) *Governor {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return &Governor{
		address:  ledger.ContractAddress("governance"),
		config:   config,
		oracle:   oracle,
		executor: executor,
		opts:     options,
	}
}

func (g *Governor) Address() ledger.Address {
	return g.address
}

func (g *Governor) Name() string {
	return "governance"
}

func idKey(prefix byte, id uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

func countKey() []byte {
	return []byte{GovernanceStoreKeyPrefixCount}
}

func proposalKey(id uint64) []byte {
	return idKey(GovernanceStoreKeyPrefixProposals, id)
}

func ballotKey(id uint64, voter ledger.Address) []byte {
	return append(idKey(GovernanceStoreKeyPrefixBallots, id), voter[:]...)
}

func latestKey(proposer ledger.Address) []byte {
	return append([]byte{GovernanceStoreKeyPrefixLatest}, proposer[:]...)
}

// ProposalCount returns the number of proposals ever created.
func (g *Governor) ProposalCount(r ledger.Reader) (uint64, error) {
	return ledger.ReadUint64(r, countKey())
}

func (g *Governor) proposal(r ledger.Reader, id uint64) (*Proposal, error) {
	value, err := r.Get(proposalKey(id))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, errors.Wrapf(ledger.ErrUnknownProposal, "proposal %d", id)
	}
	if err != nil {
		return nil, err
	}

	proposal := &Proposal{}
	if err := json.Unmarshal(value, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// GetProposal returns a proposal with its state at the time of state.
func (g *Governor) GetProposal(state ledger.State, id uint64) (*Proposal, error) {
	proposal, err := g.proposal(state, id)
	if err != nil {
		return nil, err
	}
	proposal.State = proposal.stateAt(state.Timestamp())
	return proposal, nil
}

// Proposals returns all proposals ordered by id.
func (g *Governor) Proposals(state ledger.State) ([]*Proposal, error) {
	count, err := g.ProposalCount(state)
	if err != nil {
		return nil, err
	}

	proposals := make([]*Proposal, 0, count)
	for id := uint64(1); id <= count; id++ {
		proposal, err := g.GetProposal(state, id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

// Ballot returns the ballot of voter on a proposal, or nil if it did not vote.
func (g *Governor) Ballot(r ledger.Reader, id uint64, voter ledger.Address) (*Ballot, error) {
	value, err := r.Get(ballotKey(id, voter))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ballot := &Ballot{}
	if err := json.Unmarshal(value, ballot); err != nil {
		return nil, err
	}
	return ballot, nil
}

func (g *Governor) storeProposal(tx *ledger.Tx, proposal *Proposal) error {
	proposal.State = proposal.stateAt(tx.Timestamp())

	value, err := json.Marshal(proposal)
	if err != nil {
		return err
	}
	tx.Set(proposalKey(proposal.ID), value)
	return nil
}

func (g *Governor) requireEligible(r ledger.Reader, principal ledger.Address) error {
	weight, err := g.oracle.Weight(r, principal)
	if err != nil {
		return err
	}
	if weight == 0 {
		return errors.Wrapf(ledger.ErrNotEligible, "%s", principal)
	}
	return nil
}

// Propose creates a proposal executing call through the treasury once it succeeded.
// A proposer can have one proposal that is neither defeated nor executed.
func (g *Governor) Propose(tx *ledger.Tx, description string, call *treasury.Call) (*Proposal, error) {
	proposer := tx.Caller()

	if err := g.requireEligible(tx, proposer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, ledger.ErrEmptyDescription
	}
	if call == nil {
		call = &treasury.Call{}
	}

	latest, err := ledger.ReadUint64(tx, latestKey(proposer))
	if err != nil {
		return nil, err
	}
	if latest != 0 {
		previous, err := g.proposal(tx, latest)
		if err != nil {
			return nil, err
		}
		if state := previous.stateAt(tx.Timestamp()); !state.Terminal() {
			return nil, errors.Wrapf(ledger.ErrProposalAlreadyActive, "proposal %d is %s", previous.ID, state)
		}
		if !previous.Finalized {
			if _, err := g.finalize(tx, previous); err != nil {
				return nil, err
			}
		}
	}

	count, err := g.ProposalCount(tx)
	if err != nil {
		return nil, err
	}

	start := tx.Timestamp().Add(g.config.VotingDelay)
	proposal := &Proposal{
		ID:          count + 1,
		Proposer:    proposer,
		Description: description,
		Call:        call,
		Snapshot:    tx.Sequence() - 1,
		CreatedAt:   tx.Timestamp(),
		StartTime:   start,
		EndTime:     start.Add(g.config.VotingPeriod),
		Quorum:      g.config.Quorum,
	}
	if err := g.storeProposal(tx, proposal); err != nil {
		return nil, err
	}
	tx.PutUint64(countKey(), proposal.ID)
	tx.PutUint64(latestKey(proposer), proposal.ID)

	tx.Emit(g.address, "ProposalCreated", proposal)
	return proposal, nil
}

// Vote casts the weight of the caller on an active proposal. The weight is the
// membership balance at the creation of the proposal.
func (g *Governor) Vote(tx *ledger.Tx, id uint64, choice Choice) (*Ballot, error) {
	voter := tx.Caller()

	if !choice.valid() {
		return nil, errors.Wrapf(ledger.ErrInvalidChoice, "%d", byte(choice))
	}

	proposal, err := g.proposal(tx, id)
	if err != nil {
		return nil, err
	}
	if state := proposal.stateAt(tx.Timestamp()); state != ProposalStateActive {
		return nil, errors.Wrapf(ledger.ErrWrongState, "proposal %d is %s", id, state)
	}

	weight, err := g.oracle.WeightAt(tx, voter, proposal.Snapshot)
	if err != nil {
		return nil, err
	}
	if weight == 0 {
		return nil, errors.Wrapf(ledger.ErrNotEligible, "%s", voter)
	}

	existing, err := g.Ballot(tx, id, voter)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(ledger.ErrAlreadyVoted, "%s voted %s on proposal %d", voter, existing.Choice, id)
	}

	ballot := &Ballot{ProposalID: id, Voter: voter, Choice: choice, Weight: weight}
	value, err := json.Marshal(ballot)
	if err != nil {
		return nil, err
	}
	tx.Set(ballotKey(id, voter), value)

	proposal.addVotes(choice, weight)
	if err := g.storeProposal(tx, proposal); err != nil {
		return nil, err
	}

	tx.Emit(g.address, "VoteCast", ballot)
	return ballot, nil
}

// Finalize persists the outcome of a proposal whose vote has ended.
func (g *Governor) Finalize(tx *ledger.Tx, id uint64) (ProposalState, error) {
	proposal, err := g.proposal(tx, id)
	if err != nil {
		return 0, err
	}
	if proposal.Finalized {
		return proposal.stateAt(tx.Timestamp()), errors.Wrapf(ledger.ErrNothingToDo, "proposal %d already finalized", id)
	}
	return g.finalize(tx, proposal)
}

func (g *Governor) finalize(tx *ledger.Tx, proposal *Proposal) (ProposalState, error) {
	state := proposal.stateAt(tx.Timestamp())
	if state == ProposalStatePending || state == ProposalStateActive {
		return state, errors.Wrapf(ledger.ErrWrongState, "proposal %d is %s", proposal.ID, state)
	}

	proposal.Finalized = true
	if err := g.storeProposal(tx, proposal); err != nil {
		return state, err
	}

	tx.Emit(g.address, "ProposalFinalized", proposal)
	return state, nil
}

// Execute runs the call of a succeeded proposal through the treasury. The proposal
// is executed whether the call succeeds or not.
func (g *Governor) Execute(tx *ledger.Tx, id uint64) (*treasury.CallResult, error) {
	if err := g.requireEligible(tx, tx.Caller()); err != nil {
		return nil, err
	}

	proposal, err := g.proposal(tx, id)
	if err != nil {
		return nil, err
	}

	switch state := proposal.stateAt(tx.Timestamp()); state {
	case ProposalStateSucceeded:
	case ProposalStateExecuted:
		return nil, errors.Wrapf(ledger.ErrNothingToDo, "proposal %d already executed", id)
	default:
		return nil, errors.Wrapf(ledger.ErrWrongState, "proposal %d is %s", id, state)
	}

	release, err := tx.Enter(g.address)
	if err != nil {
		return nil, err
	}
	defer release()

	proposal.Finalized = true
	proposal.Executed = true
	if err := g.storeProposal(tx, proposal); err != nil {
		return nil, err
	}

	var result *treasury.CallResult
	if callErr := tx.Savepoint(func(tx *ledger.Tx) error {
		var err error
		result, err = g.executor.ExecuteCall(tx.WithCaller(g.address), proposal.Call)
		return err
	}); callErr != nil {
		returnData, _ := json.Marshal(callErr.Error())
		result = &treasury.CallResult{
			Target:     proposal.Call.Target,
			ReturnData: returnData,
			Code:       ledger.CodeOf(callErr),
		}
	}

	proposal.Result = result
	if err := g.storeProposal(tx, proposal); err != nil {
		return nil, err
	}

	if g.opts.logger != nil {
		g.opts.logger.Infof("proposal %d executed, success: %t", id, result.Success)
	}
	tx.Emit(g.address, "ProposalExecuted", proposal)
	return result, nil
}
