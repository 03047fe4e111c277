package tally

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// SlotCount is the number of content slots per cycle.
	SlotCount = 20
)

const (
	// Holds the tally per cycle and slot
	TallyStoreKeyPrefixSlots byte = 0x20

	// Holds the vote record per cycle and principal
	TallyStoreKeyPrefixVotes byte = 0x21
)

// SlotTally is the accumulated vote weight of a slot in one cycle.
type SlotTally struct {
	Index             uint8  `json:"index"`
	Votes             uint64 `json:"votes"`
	LastVoteTimestamp int64  `json:"lastVoteTimestamp"`
	LastVoteSequence  uint64 `json:"lastVoteSequence"`
}

// VoteRecord is the single vote a principal cast in a cycle.
type VoteRecord struct {
	Principal ledger.Address `json:"principal"`
	Cycle     uint64         `json:"cycle"`
	Slot      uint8          `json:"slot"`
	Weight    uint64         `json:"weight"`
	Timestamp int64          `json:"timestamp"`
	Sequence  uint64         `json:"sequence"`
}

// Store keeps slot tallies and vote records keyed by cycle.
// Starting a new cycle therefore starts from empty tallies.
type Store struct{}

// NewStore creates a tally store.
func NewStore() *Store {
	return &Store{}
}

func cyclePrefix(prefix byte, cycle uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], cycle)
	return key
}

func slotKey(cycle uint64, slot uint8) []byte {
	return append(cyclePrefix(TallyStoreKeyPrefixSlots, cycle), slot)
}

func voteKey(cycle uint64, principal ledger.Address) []byte {
	return append(cyclePrefix(TallyStoreKeyPrefixVotes, cycle), principal[:]...)
}

func slotTallyFromBytes(slot uint8, value []byte) (*SlotTally, error) {
	m := marshalutil.New(value)

	votes, err := m.ReadUint64()
	if err != nil {
		return nil, err
	}
	timestamp, err := m.ReadInt64()
	if err != nil {
		return nil, err
	}
	sequence, err := m.ReadUint64()
	if err != nil {
		return nil, err
	}

	return &SlotTally{
		Index:             slot,
		Votes:             votes,
		LastVoteTimestamp: timestamp,
		LastVoteSequence:  sequence,
	}, nil
}

func (t *SlotTally) bytes() []byte {
	m := marshalutil.New(24)
	m.WriteUint64(t.Votes)            // 8 bytes
	m.WriteInt64(t.LastVoteTimestamp) // 8 bytes
	m.WriteUint64(t.LastVoteSequence) // 8 bytes
	return m.Bytes()
}

func voteRecordFromBytes(cycle uint64, principal ledger.Address, value []byte) (*VoteRecord, error) {
	m := marshalutil.New(value)

	slot, err := m.ReadByte()
	if err != nil {
		return nil, err
	}
	weight, err := m.ReadUint64()
	if err != nil {
		return nil, err
	}
	timestamp, err := m.ReadInt64()
	if err != nil {
		return nil, err
	}
	sequence, err := m.ReadUint64()
	if err != nil {
		return nil, err
	}

	return &VoteRecord{
		Principal: principal,
		Cycle:     cycle,
		Slot:      slot,
		Weight:    weight,
		Timestamp: timestamp,
		Sequence:  sequence,
	}, nil
}

func (v *VoteRecord) bytes() []byte {
	m := marshalutil.New(25)
	m.WriteByte(v.Slot)       // 1 byte
	m.WriteUint64(v.Weight)   // 8 bytes
	m.WriteInt64(v.Timestamp) // 8 bytes
	m.WriteUint64(v.Sequence) // 8 bytes
	return m.Bytes()
}

// Slot returns the tally of a slot. Slots without votes have a zero tally.
func (s *Store) Slot(r ledger.Reader, cycle uint64, slot uint8) (*SlotTally, error) {
	if slot >= SlotCount {
		return nil, errors.Wrapf(ledger.ErrInvalidSlot, "slot %d", slot)
	}

	value, err := r.Get(slotKey(cycle, slot))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return &SlotTally{Index: slot}, nil
	}
	if err != nil {
		return nil, err
	}
	return slotTallyFromBytes(slot, value)
}

// Slots returns the tallies of all slots of a cycle, ordered by index.
func (s *Store) Slots(r ledger.Reader, cycle uint64) ([]*SlotTally, error) {
	slots := make([]*SlotTally, SlotCount)
	for i := range slots {
		slot, err := s.Slot(r, cycle, uint8(i))
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}
	return slots, nil
}

// Vote returns the vote record of principal in cycle, or nil if it did not vote.
func (s *Store) Vote(r ledger.Reader, cycle uint64, principal ledger.Address) (*VoteRecord, error) {
	value, err := r.Get(voteKey(cycle, principal))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return voteRecordFromBytes(cycle, principal, value)
}

// Votes returns all vote records of a cycle.
func (s *Store) Votes(r ledger.Reader, cycle uint64) ([]*VoteRecord, error) {
	prefix := cyclePrefix(TallyStoreKeyPrefixVotes, cycle)

	var records []*VoteRecord
	var innerErr error
	if err := r.Iterate(prefix, func(key []byte, value []byte) bool {
		var principal ledger.Address
		copy(principal[:], key[len(prefix):])

		record, err := voteRecordFromBytes(cycle, principal, value)
		if err != nil {
			innerErr = err
			return false
		}
		records = append(records, record)
		return true
	}); err != nil {
		return nil, err
	}

	return records, innerErr
}

// RecordVote stores the vote of principal and adds weight to the slot tally.
// A principal can vote once per cycle.
func (s *Store) RecordVote(tx *ledger.Tx, cycle uint64, principal ledger.Address, slot uint8, weight uint64) (*VoteRecord, error) {
	existing, err := s.Vote(tx, cycle, principal)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(ledger.ErrAlreadyVoted, "%s voted for slot %d in cycle %d", principal, existing.Slot, cycle)
	}

	tally, err := s.Slot(tx, cycle, slot)
	if err != nil {
		return nil, err
	}

	record := &VoteRecord{
		Principal: principal,
		Cycle:     cycle,
		Slot:      slot,
		Weight:    weight,
		Timestamp: tx.Timestamp().Unix(),
		Sequence:  tx.Sequence(),
	}

	tally.Votes += weight
	tally.LastVoteTimestamp = record.Timestamp
	tally.LastVoteSequence = record.Sequence

	tx.Set(voteKey(cycle, principal), record.bytes())
	tx.Set(slotKey(cycle, slot), tally.bytes())

	return record, nil
}

// Beats reports whether a ranks before b: more votes first, then the slot that
// reached its count earliest, then the lower index.
func Beats(a *SlotTally, b *SlotTally) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if a.LastVoteTimestamp != b.LastVoteTimestamp {
		return a.LastVoteTimestamp < b.LastVoteTimestamp
	}
	if a.LastVoteSequence != b.LastVoteSequence {
		return a.LastVoteSequence < b.LastVoteSequence
	}
	return a.Index < b.Index
}

// SelectWinner returns the winning tally among candidates.
// The result only depends on the tallies, not on their order.
func SelectWinner(candidates []*SlotTally) (*SlotTally, bool) {
	var winner *SlotTally
	for _, candidate := range candidates {
		if winner == nil || Beats(candidate, winner) {
			winner = candidate
		}
	}
	return winner, winner != nil
}
