package candidate

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/eligibility"
	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// Holds the number of candidates
	CandidateStoreKeyPrefixCount byte = 0x70

	// Holds the candidates by id
	CandidateStoreKeyPrefixCandidates byte = 0x71

	// Holds the sponsors per candidate
	CandidateStoreKeyPrefixSponsors byte = 0x72
)

// Config holds the pipeline parameters.
type Config struct {
	// Fee is the exact native value required to create a candidate.
	Fee uint64
	// SponsorThreshold is the number of sponsors promoting a candidate.
	SponsorThreshold uint32
	// Treasury receives the fees.
	Treasury ledger.Address
}

// Candidate is an idea waiting for sponsors.
type Candidate struct {
	ID           uint64         `json:"id"`
	Proposer     ledger.Address `json:"proposer"`
	Description  string         `json:"description"`
	SponsorCount uint32         `json:"sponsorCount"`
	Promoted     bool           `json:"promoted"`
	CreatedAt    time.Time      `json:"createdAt"`
	PromotedAt   *time.Time     `json:"promotedAt,omitempty"`
}

// SponsorEvent is emitted for every sponsorship.
type SponsorEvent struct {
	CandidateID  uint64         `json:"candidateId"`
	Sponsor      ledger.Address `json:"sponsor"`
	SponsorCount uint32         `json:"sponsorCount"`
	Promoted     bool           `json:"promoted"`
}

// Pipeline collects candidates and promotes them once enough members sponsored them.
// Promotion only unlocks the description, proposing it stays a manual step.
type Pipeline struct {
	address ledger.Address
	config  *Config
	oracle  eligibility.Oracle
}

// New creates the candidate pipeline.
func New(config *Config, oracle eligibility.Oracle) *Pipeline {
	return &Pipeline{
		address: ledger.ContractAddress("candidates"),
		config:  config,
		oracle:  oracle,
	}
}

func (p *Pipeline) Address() ledger.Address {
	return p.address
}

func (p *Pipeline) Name() string {
	return "candidates"
}

func candidateKey(id uint64) []byte {
	key := make([]byte, 9)
	key[0] = CandidateStoreKeyPrefixCandidates
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

func sponsorKey(id uint64, sponsor ledger.Address) []byte {
	key := make([]byte, 9, 9+ledger.AddressLength)
	key[0] = CandidateStoreKeyPrefixSponsors
	binary.BigEndian.PutUint64(key[1:], id)
	return append(key, sponsor[:]...)
}

func countKey() []byte {
	return []byte{CandidateStoreKeyPrefixCount}
}

// CandidateCount returns the number of candidates ever created.
func (p *Pipeline) CandidateCount(r ledger.Reader) (uint64, error) {
	return ledger.ReadUint64(r, countKey())
}

// Candidate returns the candidate with the given id.
func (p *Pipeline) Candidate(r ledger.Reader, id uint64) (*Candidate, error) {
	value, err := r.Get(candidateKey(id))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, errors.Wrapf(ledger.ErrUnknownCandidate, "candidate %d", id)
	}
	if err != nil {
		return nil, err
	}

	candidate := &Candidate{}
	if err := json.Unmarshal(value, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// Candidates returns all candidates ordered by id.
func (p *Pipeline) Candidates(r ledger.Reader) ([]*Candidate, error) {
	count, err := p.CandidateCount(r)
	if err != nil {
		return nil, err
	}

	candidates := make([]*Candidate, 0, count)
	for id := uint64(1); id <= count; id++ {
		candidate, err := p.Candidate(r, id)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Sponsored reports whether sponsor sponsored a candidate.
func (p *Pipeline) Sponsored(r ledger.Reader, id uint64, sponsor ledger.Address) (bool, error) {
	return r.Has(sponsorKey(id, sponsor))
}

func (p *Pipeline) storeCandidate(tx *ledger.Tx, candidate *Candidate) error {
	value, err := json.Marshal(candidate)
	if err != nil {
		return err
	}
	tx.Set(candidateKey(candidate.ID), value)
	return nil
}

// CreateCandidate registers description. The call must carry exactly the fee,
// which is forwarded to the treasury.
func (p *Pipeline) CreateCandidate(tx *ledger.Tx, description string) (*Candidate, error) {
	fee := tx.ValueFor(p.address)
	if fee != p.config.Fee {
		return nil, errors.Wrapf(ledger.ErrWrongFee, "fee is %d, got %d", p.config.Fee, fee)
	}
	if strings.TrimSpace(description) == "" {
		return nil, ledger.ErrEmptyDescription
	}

	count, err := p.CandidateCount(tx)
	if err != nil {
		return nil, err
	}

	candidate := &Candidate{
		ID:          count + 1,
		Proposer:    tx.Caller(),
		Description: description,
		CreatedAt:   tx.Timestamp(),
	}
	if err := p.storeCandidate(tx, candidate); err != nil {
		return nil, err
	}
	tx.PutUint64(countKey(), candidate.ID)

	if err := tx.Transfer(p.address, p.config.Treasury, fee); err != nil {
		return nil, err
	}

	tx.Emit(p.address, "CandidateCreated", candidate)
	return candidate, nil
}

// SponsorCandidate adds the caller to the sponsors of a candidate. The sponsorship
// reaching the threshold promotes the candidate.
func (p *Pipeline) SponsorCandidate(tx *ledger.Tx, id uint64) (*SponsorEvent, error) {
	sponsor := tx.Caller()

	weight, err := p.oracle.Weight(tx, sponsor)
	if err != nil {
		return nil, err
	}
	if weight == 0 {
		return nil, errors.Wrapf(ledger.ErrNotEligible, "%s", sponsor)
	}

	candidate, err := p.Candidate(tx, id)
	if err != nil {
		return nil, err
	}

	sponsored, err := p.Sponsored(tx, id, sponsor)
	if err != nil {
		return nil, err
	}
	if sponsored {
		return nil, errors.Wrapf(ledger.ErrAlreadySponsored, "%s sponsored candidate %d", sponsor, id)
	}
	if candidate.Promoted {
		return nil, errors.Wrapf(ledger.ErrAlreadyPromoted, "candidate %d", id)
	}

	tx.Set(sponsorKey(id, sponsor), []byte{1})
	candidate.SponsorCount++
	if candidate.SponsorCount >= p.config.SponsorThreshold {
		promotedAt := tx.Timestamp()
		candidate.Promoted = true
		candidate.PromotedAt = &promotedAt
	}
	if err := p.storeCandidate(tx, candidate); err != nil {
		return nil, err
	}

	event := &SponsorEvent{CandidateID: id, Sponsor: sponsor, SponsorCount: candidate.SponsorCount, Promoted: candidate.Promoted}
	tx.Emit(p.address, "CandidateSponsored", event)
	if candidate.Promoted {
		tx.Emit(p.address, "CandidatePromoted", candidate)
	}
	return event, nil
}

// PromotedDescription returns the description of a promoted candidate.
func (p *Pipeline) PromotedDescription(r ledger.Reader, id uint64) (string, error) {
	candidate, err := p.Candidate(r, id)
	if err != nil {
		return "", err
	}
	if !candidate.Promoted {
		return "", errors.Wrapf(ledger.ErrNotPromoted, "candidate %d has %d sponsors", id, candidate.SponsorCount)
	}
	return candidate.Description, nil
}

type createCandidateArgs struct {
	Description string `json:"description"`
}

type sponsorCandidateArgs struct {
	CandidateID uint64 `json:"candidateId"`
}

func (p *Pipeline) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"createCandidate": {
			Payable: true,
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in createCandidateArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return p.CreateCandidate(tx, in.Description)
			},
		},
		"sponsorCandidate": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in sponsorCandidateArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return p.SponsorCandidate(tx, in.CandidateID)
			},
		},
	}
}
