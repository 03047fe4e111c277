package dao

import (
	"time"

	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/candidate"
	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/eligibility"
	"github.com/slotdao/cycled/pkg/model/governance"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/tally"
	"github.com/slotdao/cycled/pkg/model/treasury"
)

// Parameters configure the engines.
type Parameters struct {
	UploadDuration   time.Duration
	VotingDuration   time.Duration
	BiddingDuration  time.Duration
	AuctionDuration  time.Duration
	VotingDelay      time.Duration
	VotingPeriod     time.Duration
	Quorum           uint64
	CandidateFee     uint64
	SponsorThreshold uint32
}

// ErrInvalidParameters is returned for parameters the engines cannot run with.
var ErrInvalidParameters = errors.New("invalid parameters")

// Validate checks that all phase durations are positive and at least one
// sponsor is needed to promote a candidate.
func (p *Parameters) Validate() error {
	for name, duration := range map[string]time.Duration{
		"upload duration":  p.UploadDuration,
		"voting duration":  p.VotingDuration,
		"bidding duration": p.BiddingDuration,
		"auction duration": p.AuctionDuration,
		"voting period":    p.VotingPeriod,
	} {
		if duration <= 0 {
			return errors.Wrapf(ErrInvalidParameters, "%s must be positive, got %s", name, duration)
		}
	}
	if p.VotingDelay < 0 {
		return errors.Wrapf(ErrInvalidParameters, "voting delay must not be negative, got %s", p.VotingDelay)
	}
	if p.SponsorThreshold == 0 {
		return errors.Wrap(ErrInvalidParameters, "sponsor threshold must be at least 1")
	}
	return nil
}

// Genesis is the initial distribution of the ledger.
type Genesis struct {
	// Members receive membership units.
	Members map[ledger.Address]uint64 `json:"members"`
	// Balances receive native value.
	Balances map[ledger.Address]uint64 `json:"balances"`
	// Tokens receive fungible tokens per denomination.
	Tokens map[ledger.Denom]map[ledger.Address]uint64 `json:"tokens"`
	// MembershipOwner may mint further membership units.
	MembershipOwner ledger.Address `json:"membershipOwner"`
}

// DAO bundles the engines registered on one ledger.
type DAO struct {
	Ledger     *ledger.Ledger
	Membership *eligibility.Registry
	Tallies    *tally.Store
	Contest    *contest.Engine
	Auction    *auction.Engine
	Treasury   *treasury.Treasury
	Governance *governance.Governor
	Candidates *candidate.Pipeline
}

// New creates the engines and registers them on l.
// log may be nil, in which case the engines do not log.
func New(l *ledger.Ledger, params *Parameters, log *logger.Logger) *DAO {
	d := &DAO{
		Ledger:     l,
		Membership: eligibility.NewRegistry(),
		Tallies:    tally.NewStore(),
	}

	var (
		treasuryOpts   []treasury.Option
		auctionOpts    []auction.Option
		contestOpts    []contest.Option
		governanceOpts []governance.Option
	)
	if log != nil {
		treasuryOpts = append(treasuryOpts, treasury.WithLogger(log.Named("Treasury")))
		auctionOpts = append(auctionOpts, auction.WithLogger(log.Named("Auction")))
		contestOpts = append(contestOpts, contest.WithLogger(log.Named("Contest")))
		governanceOpts = append(governanceOpts, governance.WithLogger(log.Named("Governance")))
	}

	d.Treasury = treasury.New(treasuryOpts...)
	d.Auction = auction.New(&auction.Config{
		Duration: params.AuctionDuration,
		Treasury: d.Treasury.Address(),
	}, auctionOpts...)
	d.Contest = contest.New(&contest.Config{
		UploadDuration:  params.UploadDuration,
		VotingDuration:  params.VotingDuration,
		BiddingDuration: params.BiddingDuration,
	}, d.Membership, d.Tallies, d.Auction, contestOpts...)
	d.Governance = governance.New(&governance.Config{
		VotingDelay:  params.VotingDelay,
		VotingPeriod: params.VotingPeriod,
		Quorum:       params.Quorum,
	}, d.Membership, d.Treasury, governanceOpts...)
	d.Candidates = candidate.New(&candidate.Config{
		Fee:              params.CandidateFee,
		SponsorThreshold: params.SponsorThreshold,
		Treasury:         d.Treasury.Address(),
	}, d.Membership)

	for _, contract := range d.Contracts() {
		l.RegisterContract(contract)
	}

	return d
}

// Contracts returns the engines reachable through transactions.
func (d *DAO) Contracts() []ledger.Contract {
	return []ledger.Contract{d.Membership, d.Contest, d.Auction, d.Treasury, d.Governance, d.Candidates}
}

// Initialized reports whether genesis was applied.
func (d *DAO) Initialized() (bool, error) {
	var initialized bool
	err := d.Ledger.View(func(state ledger.State) error {
		initialized = state.Sequence() > 0
		return nil
	})
	return initialized, err
}

// Init applies genesis: it distributes the initial balances, hands the treasury
// to the governor and opens the first contest cycle.
func (d *DAO) Init(genesis *Genesis) error {
	initialized, err := d.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return errors.WithMessage(ledger.ErrNothingToDo, "genesis already applied")
	}

	return d.Ledger.Genesis(func(tx *ledger.Tx) error {
		for address, amount := range genesis.Balances {
			if err := tx.Mint(ledger.NativeDenom, address, amount); err != nil {
				return err
			}
		}
		for denom, balances := range genesis.Tokens {
			for address, amount := range balances {
				if err := tx.Mint(denom, address, amount); err != nil {
					return err
				}
			}
		}
		for address, amount := range genesis.Members {
			if err := d.Membership.Mint(tx, address, amount); err != nil {
				return errors.Wrapf(err, "minting membership of %s failed", address)
			}
		}
		if !genesis.MembershipOwner.IsNull() {
			if err := d.Membership.SetOwner(tx, genesis.MembershipOwner); err != nil {
				return err
			}
		}

		if err := d.Treasury.Init(tx, d.Governance.Address()); err != nil {
			return err
		}
		return d.Contest.Init(tx)
	})
}
