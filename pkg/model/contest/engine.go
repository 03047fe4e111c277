package contest

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/eligibility"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/tally"
)

const (
	// Holds the state of the running cycle
	ContestStoreKeyPrefixState byte = 0x30

	// Holds the content per cycle and slot
	ContestStoreKeyPrefixContent byte = 0x31
)

// Auctioneer opens the auction of a cycle winner.
type Auctioneer interface {
	StartAuction(tx *ledger.Tx, lot *auction.Lot) (*auction.Auction, error)
	IsActive(r ledger.Reader) (bool, error)
}

// Config holds the phase durations.
type Config struct {
	UploadDuration time.Duration
	VotingDuration time.Duration
	// BiddingDuration is the minimum length of the bidding phase.
	// The phase only ends once the auction is settled.
	BiddingDuration time.Duration
}

// PhaseInfo describes the running cycle.
type PhaseInfo struct {
	Cycle    uint64    `json:"cycle"`
	Phase    Phase     `json:"phase"`
	Deadline time.Time `json:"deadline"`
	// Snapshot is the sequence whose membership balances weight the votes of the cycle.
	Snapshot  uint64 `json:"snapshot"`
	AuctionID uint64 `json:"auctionId,omitempty"`
	// Due is set if the deadline has passed at the time of the read.
	Due bool `json:"due"`
}

func (p *PhaseInfo) due(ts time.Time) bool {
	return !ts.Before(p.Deadline)
}

// Slot is the content and tally of one slot of the running cycle.
type Slot struct {
	*tally.SlotTally
	ContentRef string         `json:"contentRef,omitempty"`
	Uploader   ledger.Address `json:"uploader,omitempty"`
	HasContent bool           `json:"hasContent"`
}

// ContentEvent is emitted when content is put into a slot.
type ContentEvent struct {
	Cycle      uint64         `json:"cycle"`
	Slot       uint8          `json:"slot"`
	ContentRef string         `json:"contentRef"`
	Uploader   ledger.Address `json:"uploader"`
}

// VoteEvent is emitted for every accepted vote.
type VoteEvent struct {
	Cycle     uint64         `json:"cycle"`
	Slot      uint8          `json:"slot"`
	Principal ledger.Address `json:"principal"`
	Weight    uint64         `json:"weight"`
	Votes     uint64         `json:"votes"`
}

// Transition describes an executed phase change.
type Transition struct {
	Cycle uint64 `json:"cycle"`
	From  Phase  `json:"from"`
	To    Phase  `json:"to"`
	// NextCycle is set if the transition started a new cycle.
	NextCycle uint64 `json:"nextCycle,omitempty"`
	// Winner is set on Voting to Bidding.
	Winner    *Slot  `json:"winner,omitempty"`
	AuctionID uint64 `json:"auctionId,omitempty"`
	// Reason is the error code explaining a degraded transition, for example NoContent.
	Reason string `json:"reason,omitempty"`
}

// Options define options for the Engine.
type Options struct {
	logger *logger.Logger
}

// Option is a function setting an engine option.
type Option func(opts *Options)

// WithLogger enables logging within the engine.
func WithLogger(logger *logger.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Engine drives the Uploading, Voting and Bidding cycle.
type Engine struct {
	address    ledger.Address
	config     *Config
	oracle     eligibility.Oracle
	tallies    *tally.Store
	auctioneer Auctioneer
	opts       *Options
}

// New creates the contest engine.
func New(config *Config, oracle eligibility.Oracle, tallies *tally.Store, auctioneer Auctioneer, opts ...Option) *Engine {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return &Engine{
		address:    ledger.ContractAddress("contest"),
		config:     config,
		oracle:     oracle,
		tallies:    tallies,
		auctioneer: auctioneer,
		opts:       options,
	}
}

func (e *Engine) Address() ledger.Address {
	return e.address
}

func (e *Engine) Name() string {
	return "contest"
}

func (e *Engine) logInfof(template string, args ...interface{}) {
	if e.opts.logger != nil {
		e.opts.logger.Infof(template, args...)
	}
}

func stateKey() []byte {
	return []byte{ContestStoreKeyPrefixState}
}

func contentKey(cycle uint64, slot uint8) []byte {
	key := make([]byte, 10)
	key[0] = ContestStoreKeyPrefixContent
	binary.BigEndian.PutUint64(key[1:], cycle)
	key[9] = slot
	return key
}

type storedContent struct {
	ContentRef string         `json:"contentRef"`
	Uploader   ledger.Address `json:"uploader"`
}

// Init starts the first cycle. It is part of genesis.
func (e *Engine) Init(tx *ledger.Tx) error {
	exists, err := tx.Has(stateKey())
	if err != nil {
		return err
	}
	if exists {
		return errors.WithMessage(ledger.ErrWrongState, "contest already initialized")
	}

	return e.storePhaseInfo(tx, &PhaseInfo{
		Cycle:    1,
		Phase:    PhaseUploading,
		Deadline: tx.Timestamp().Add(e.config.UploadDuration),
	})
}

func (e *Engine) phaseInfo(r ledger.Reader) (*PhaseInfo, error) {
	value, err := r.Get(stateKey())
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, errors.WithMessage(ledger.ErrWrongState, "contest not initialized")
	}
	if err != nil {
		return nil, err
	}

	info := &PhaseInfo{}
	if err := json.Unmarshal(value, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (e *Engine) storePhaseInfo(tx *ledger.Tx, info *PhaseInfo) error {
	stored := *info
	stored.Due = false

	value, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	tx.Set(stateKey(), value)
	return nil
}

// CurrentPhaseInfo returns the running cycle as seen at the time of state.
func (e *Engine) CurrentPhaseInfo(state ledger.State) (*PhaseInfo, error) {
	info, err := e.phaseInfo(state)
	if err != nil {
		return nil, err
	}
	info.Due = info.due(state.Timestamp())
	return info, nil
}

// CheckTransition reports whether a phase transition is due.
func (e *Engine) CheckTransition(state ledger.State) (bool, *PhaseInfo, error) {
	info, err := e.CurrentPhaseInfo(state)
	if err != nil {
		return false, nil, err
	}
	return info.Due, info, nil
}

func (e *Engine) content(r ledger.Reader, cycle uint64, slot uint8) (*storedContent, error) {
	value, err := r.Get(contentKey(cycle, slot))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content := &storedContent{}
	if err := json.Unmarshal(value, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (e *Engine) slot(r ledger.Reader, cycle uint64, index uint8) (*Slot, error) {
	slotTally, err := e.tallies.Slot(r, cycle, index)
	if err != nil {
		return nil, err
	}

	content, err := e.content(r, cycle, index)
	if err != nil {
		return nil, err
	}

	slot := &Slot{SlotTally: slotTally}
	if content != nil {
		slot.ContentRef = content.ContentRef
		slot.Uploader = content.Uploader
		slot.HasContent = true
	}
	return slot, nil
}

// Slot returns a slot of the running cycle.
func (e *Engine) Slot(r ledger.Reader, index uint8) (*Slot, error) {
	info, err := e.phaseInfo(r)
	if err != nil {
		return nil, err
	}
	return e.slot(r, info.Cycle, index)
}

// Slots returns all slots of the running cycle ordered by index.
func (e *Engine) Slots(r ledger.Reader) ([]*Slot, error) {
	info, err := e.phaseInfo(r)
	if err != nil {
		return nil, err
	}
	return e.cycleSlots(r, info.Cycle)
}

func (e *Engine) cycleSlots(r ledger.Reader, cycle uint64) ([]*Slot, error) {
	slots := make([]*Slot, tally.SlotCount)
	for i := range slots {
		slot, err := e.slot(r, cycle, uint8(i))
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}
	return slots, nil
}

// SlotVotes returns the vote count of a slot of the running cycle.
func (e *Engine) SlotVotes(r ledger.Reader, index uint8) (uint64, error) {
	info, err := e.phaseInfo(r)
	if err != nil {
		return 0, err
	}
	slotTally, err := e.tallies.Slot(r, info.Cycle, index)
	if err != nil {
		return 0, err
	}
	return slotTally.Votes, nil
}

// Winner computes the winning slot of the running cycle from the raw tallies.
// It returns false if no slot has content.
func (e *Engine) Winner(r ledger.Reader) (*Slot, bool, error) {
	info, err := e.phaseInfo(r)
	if err != nil {
		return nil, false, err
	}
	return e.winner(r, info.Cycle)
}

func (e *Engine) winner(r ledger.Reader, cycle uint64) (*Slot, bool, error) {
	slots, err := e.cycleSlots(r, cycle)
	if err != nil {
		return nil, false, err
	}

	filled := make(map[uint8]*Slot)
	var candidates []*tally.SlotTally
	for _, slot := range slots {
		if !slot.HasContent {
			continue
		}
		filled[slot.Index] = slot
		candidates = append(candidates, slot.SlotTally)
	}

	winner, exists := tally.SelectWinner(candidates)
	if !exists {
		return nil, false, nil
	}
	return filled[winner.Index], true, nil
}

// SubmitContent puts contentRef into an empty slot of the running cycle.
func (e *Engine) SubmitContent(tx *ledger.Tx, index uint8, contentRef string) (*ContentEvent, error) {
	if index >= tally.SlotCount {
		return nil, errors.Wrapf(ledger.ErrInvalidSlot, "slot %d", index)
	}
	if contentRef == "" {
		return nil, errors.WithMessage(ledger.ErrInvalidArguments, "empty content reference")
	}

	uploader := tx.Caller()
	weight, err := e.oracle.Weight(tx, uploader)
	if err != nil {
		return nil, err
	}
	if weight == 0 {
		return nil, errors.Wrapf(ledger.ErrNotEligible, "%s", uploader)
	}

	info, err := e.phaseInfo(tx)
	if err != nil {
		return nil, err
	}
	if info.Phase != PhaseUploading || info.due(tx.Timestamp()) {
		return nil, errors.Wrapf(ledger.ErrWrongPhase, "cycle %d is %s", info.Cycle, info.Phase)
	}

	existing, err := e.content(tx, info.Cycle, index)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(ledger.ErrSlotTaken, "slot %d", index)
	}

	value, err := json.Marshal(&storedContent{ContentRef: contentRef, Uploader: uploader})
	if err != nil {
		return nil, err
	}
	tx.Set(contentKey(info.Cycle, index), value)

	event := &ContentEvent{Cycle: info.Cycle, Slot: index, ContentRef: contentRef, Uploader: uploader}
	tx.Emit(e.address, "ContentSubmitted", event)
	return event, nil
}

// SubmitVote adds the weight of the caller to a slot. The weight is the
// membership balance at the start of the voting phase.
func (e *Engine) SubmitVote(tx *ledger.Tx, index uint8) (*VoteEvent, error) {
	if index >= tally.SlotCount {
		return nil, errors.Wrapf(ledger.ErrInvalidSlot, "slot %d", index)
	}
	principal := tx.Caller()

	info, err := e.phaseInfo(tx)
	if err != nil {
		return nil, err
	}

	var weight uint64
	if info.Phase == PhaseVoting {
		weight, err = e.oracle.WeightAt(tx, principal, info.Snapshot)
	} else {
		weight, err = e.oracle.Weight(tx, principal)
	}
	if err != nil {
		return nil, err
	}
	if weight == 0 {
		return nil, errors.Wrapf(ledger.ErrNotEligible, "%s", principal)
	}

	if info.Phase != PhaseVoting || info.due(tx.Timestamp()) {
		return nil, errors.Wrapf(ledger.ErrWrongPhase, "cycle %d is %s", info.Cycle, info.Phase)
	}

	existing, err := e.tallies.Vote(tx, info.Cycle, principal)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(ledger.ErrAlreadyVoted, "%s voted for slot %d", principal, existing.Slot)
	}

	content, err := e.content(tx, info.Cycle, index)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.Wrapf(ledger.ErrEmptySlot, "slot %d", index)
	}

	if _, err := e.tallies.RecordVote(tx, info.Cycle, principal, index, weight); err != nil {
		return nil, err
	}

	slotTally, err := e.tallies.Slot(tx, info.Cycle, index)
	if err != nil {
		return nil, err
	}

	event := &VoteEvent{Cycle: info.Cycle, Slot: index, Principal: principal, Weight: weight, Votes: slotTally.Votes}
	tx.Emit(e.address, "VoteCast", event)
	return event, nil
}

// AdvancePhase executes the due phase transition. Once the deadline passed anyone may call it.
func (e *Engine) AdvancePhase(tx *ledger.Tx) (*Transition, error) {
	info, err := e.duePhaseInfo(tx)
	if err != nil {
		return nil, err
	}

	switch info.Phase {
	case PhaseUploading:
		return e.startVoting(tx, info)

	case PhaseVoting:
		winner, exists, err := e.winner(tx, info.Cycle)
		if err != nil {
			return nil, err
		}
		if !exists {
			return e.restart(tx, info, ledger.ErrNoContent.Code())
		}
		return e.startBidding(tx, info, winner, winner.ContentRef)

	default:
		active, err := e.auctioneer.IsActive(tx)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, errors.Wrapf(ledger.ErrAuctionStillOpen, "auction %d", info.AuctionID)
		}
		return e.restart(tx, info, "")
	}
}

// FinalizeWithWinner ends the voting phase with the winner computed by the caller.
// The engine recomputes the winner and rejects a mismatch. assetPayload becomes
// the metadata of the auctioned token.
func (e *Engine) FinalizeWithWinner(tx *ledger.Tx, contentRef string, assetPayload string, winnerIndex uint8) (*Transition, error) {
	info, err := e.duePhaseInfo(tx)
	if err != nil {
		return nil, err
	}
	if info.Phase != PhaseVoting {
		return nil, errors.Wrapf(ledger.ErrNothingToDo, "cycle %d is %s", info.Cycle, info.Phase)
	}

	winner, exists, err := e.winner(tx, info.Cycle)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ledger.ErrNoContent, "cycle %d", info.Cycle)
	}
	if winner.Index != winnerIndex || winner.ContentRef != contentRef {
		return nil, errors.Wrapf(ledger.ErrWinnerMismatch, "winner of cycle %d is slot %d", info.Cycle, winner.Index)
	}

	if assetPayload == "" {
		assetPayload = contentRef
	}
	return e.startBidding(tx, info, winner, assetPayload)
}

func (e *Engine) duePhaseInfo(tx *ledger.Tx) (*PhaseInfo, error) {
	info, err := e.phaseInfo(tx)
	if err != nil {
		return nil, err
	}
	if !info.due(tx.Timestamp()) {
		return nil, errors.Wrapf(ledger.ErrNothingToDo, "%s phase of cycle %d ends at %s", info.Phase, info.Cycle, info.Deadline)
	}
	return info, nil
}

func (e *Engine) startVoting(tx *ledger.Tx, info *PhaseInfo) (*Transition, error) {
	transition := &Transition{Cycle: info.Cycle, From: info.Phase, To: PhaseVoting}

	info.Phase = PhaseVoting
	info.Deadline = tx.Timestamp().Add(e.config.VotingDuration)
	// balances committed before this transaction weight the votes
	info.Snapshot = tx.Sequence() - 1

	return e.commit(tx, info, transition)
}

func (e *Engine) startBidding(tx *ledger.Tx, info *PhaseInfo, winner *Slot, metadata string) (*Transition, error) {
	created, err := e.auctioneer.StartAuction(tx, &auction.Lot{
		Cycle:      info.Cycle,
		Slot:       winner.Index,
		ContentRef: winner.ContentRef,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}

	transition := &Transition{Cycle: info.Cycle, From: info.Phase, To: PhaseBidding, Winner: winner, AuctionID: created.ID}

	info.Phase = PhaseBidding
	info.Deadline = tx.Timestamp().Add(e.config.BiddingDuration)
	info.AuctionID = created.ID

	return e.commit(tx, info, transition)
}

// restart begins a new cycle in the uploading phase.
func (e *Engine) restart(tx *ledger.Tx, info *PhaseInfo, reason string) (*Transition, error) {
	transition := &Transition{Cycle: info.Cycle, From: info.Phase, To: PhaseUploading, NextCycle: info.Cycle + 1, Reason: reason}

	next := &PhaseInfo{
		Cycle:    info.Cycle + 1,
		Phase:    PhaseUploading,
		Deadline: tx.Timestamp().Add(e.config.UploadDuration),
	}

	return e.commit(tx, next, transition)
}

func (e *Engine) commit(tx *ledger.Tx, info *PhaseInfo, transition *Transition) (*Transition, error) {
	if err := e.storePhaseInfo(tx, info); err != nil {
		return nil, err
	}

	tx.Emit(e.address, "PhaseAdvanced", transition)
	if transition.Reason != "" {
		e.logInfof("cycle %d: %s -> %s (%s)", transition.Cycle, transition.From, transition.To, transition.Reason)
	} else {
		e.logInfof("cycle %d: %s -> %s", transition.Cycle, transition.From, transition.To)
	}
	return transition, nil
}
