package auction

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// Holds the id of the latest auction
	AuctionStoreKeyPrefixCurrent byte = 0x40

	// Holds the auctions by id
	AuctionStoreKeyPrefixAuctions byte = 0x41

	// Holds the cumulative bids per principal and auction
	AuctionStoreKeyPrefixBids byte = 0x42

	// Holds settlement proceeds that could not be forwarded, per principal
	AuctionStoreKeyPrefixCredits byte = 0x43

	// Holds the collectible tokens by id
	AuctionStoreKeyPrefixTokens byte = 0x44

	// Holds the number of minted tokens
	AuctionStoreKeyPrefixTokenCount byte = 0x45

	// Holds the recipient of tokens whose delivery failed at settlement
	AuctionStoreKeyPrefixClaims byte = 0x46
)

// Lot is the content put up for auction.
type Lot struct {
	Cycle      uint64 `json:"cycle"`
	Slot       uint8  `json:"slot"`
	ContentRef string `json:"contentRef"`
	Metadata   string `json:"metadata"`
}

// Settlement records the outcome of a closed auction.
type Settlement struct {
	Recipient         ledger.Address `json:"recipient"`
	Proceeds          uint64         `json:"proceeds"`
	AssetDelivered    bool           `json:"assetDelivered"`
	ProceedsForwarded bool           `json:"proceedsForwarded"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Auction is an English auction over one token.
type Auction struct {
	ID            uint64         `json:"id"`
	TokenID       uint64         `json:"tokenId"`
	Lot           *Lot           `json:"lot"`
	HighestBid    uint64         `json:"highestBid"`
	HighestBidder ledger.Address `json:"highestBidder"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	Active        bool           `json:"active"`
	Settlement    *Settlement    `json:"settlement,omitempty"`
}

// Ended reports whether bidding is over at ts.
func (a *Auction) Ended(ts time.Time) bool {
	return !ts.Before(a.EndTime)
}

// BidEvent is emitted for every accepted bid.
type BidEvent struct {
	AuctionID uint64         `json:"auctionId"`
	Bidder    ledger.Address `json:"bidder"`
	Amount    uint64         `json:"amount"`
	Total     uint64         `json:"total"`
}

// WithdrawEvent is emitted when a principal pulls its refunds.
type WithdrawEvent struct {
	Principal ledger.Address `json:"principal"`
	Amount    uint64         `json:"amount"`
}

// Config holds the auction parameters.
type Config struct {
	// Duration is the bidding time of every auction.
	Duration time.Duration
	// Treasury receives the proceeds and unsold tokens.
	Treasury ledger.Address
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

// Engine runs the auction of contest winners and keeps the bid ledger.
type Engine struct {
	address ledger.Address
	config  *Config
	opts    *Options
}

// New creates the auction engine.
func New(config *Config, opts ...Option) *Engine {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return &Engine{
		address: ledger.ContractAddress("auction"),
		config:  config,
		opts:    options,
	}
}

func (e *Engine) Address() ledger.Address {
	return e.address
}

func (e *Engine) Name() string {
	return "auction"
}

func (e *Engine) logDebugf(template string, args ...interface{}) {
	if e.opts.logger != nil {
		e.opts.logger.Debugf(template, args...)
	}
}

func currentKey() []byte {
	return []byte{AuctionStoreKeyPrefixCurrent}
}

func auctionKey(id uint64) []byte {
	return idKey(AuctionStoreKeyPrefixAuctions, id)
}

func bidPrefix(principal ledger.Address) []byte {
	return append([]byte{AuctionStoreKeyPrefixBids}, principal[:]...)
}

func bidKey(principal ledger.Address, auctionID uint64) []byte {
	key := make([]byte, 1+ledger.AddressLength+8)
	copy(key, bidPrefix(principal))
	binary.BigEndian.PutUint64(key[1+ledger.AddressLength:], auctionID)
	return key
}

func creditKey(principal ledger.Address) []byte {
	return append([]byte{AuctionStoreKeyPrefixCredits}, principal[:]...)
}

func claimKey(tokenID uint64) []byte {
	return idKey(AuctionStoreKeyPrefixClaims, tokenID)
}

// Auction returns the auction with the given id.
func (e *Engine) Auction(r ledger.Reader, id uint64) (*Auction, error) {
	value, err := r.Get(auctionKey(id))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, errors.WithMessagef(ledger.ErrInvalidArguments, "unknown auction %d", id)
	}
	if err != nil {
		return nil, err
	}

	auction := &Auction{}
	if err := json.Unmarshal(value, auction); err != nil {
		return nil, err
	}
	return auction, nil
}

// Current returns the latest auction, or nil if none was started yet.
func (e *Engine) Current(r ledger.Reader) (*Auction, error) {
	id, err := ledger.ReadUint64(r, currentKey())
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	return e.Auction(r, id)
}

// IsActive reports whether an auction is open or waiting for settlement.
func (e *Engine) IsActive(r ledger.Reader) (bool, error) {
	auction, err := e.Current(r)
	if err != nil {
		return false, err
	}
	return auction != nil && auction.Active, nil
}

func (e *Engine) storeAuction(tx *ledger.Tx, auction *Auction) error {
	value, err := json.Marshal(auction)
	if err != nil {
		return err
	}
	tx.Set(auctionKey(auction.ID), value)
	return nil
}

// Bid returns the cumulative bid of principal in an auction.
func (e *Engine) Bid(r ledger.Reader, auctionID uint64, principal ledger.Address) (uint64, error) {
	return ledger.ReadUint64(r, bidKey(principal, auctionID))
}

// Withdrawable returns the amount principal can withdraw right now.
func (e *Engine) Withdrawable(r ledger.Reader, principal ledger.Address) (uint64, error) {
	current, err := e.Current(r)
	if err != nil {
		return 0, err
	}

	_, total, err := refundableBids(r, current, principal)
	if err != nil {
		return 0, err
	}

	credit, err := ledger.ReadUint64(r, creditKey(principal))
	if err != nil {
		return 0, err
	}
	return total + credit, nil
}

// refundableBids collects the bids of principal that are no longer leading.
func refundableBids(r ledger.Reader, current *Auction, principal ledger.Address) ([][]byte, uint64, error) {
	var keys [][]byte
	var total uint64
	var innerErr error
	if err := r.Iterate(bidPrefix(principal), func(key []byte, value []byte) bool {
		auctionID := binary.BigEndian.Uint64(key[1+ledger.AddressLength:])
		if isLeadingBid(current, auctionID, principal) {
			return true
		}
		if len(value) != 8 {
			innerErr = errors.Errorf("corrupted bid of %s in auction %d", principal, auctionID)
			return false
		}
		amount, err := ledger.DecodeUint64(value)
		if err != nil {
			innerErr = errors.Wrapf(err, "decoding bid of %s in auction %d failed", principal, auctionID)
			return false
		}
		keys = append(keys, key)
		total += amount
		return true
	}); err != nil {
		return nil, 0, err
	}
	if innerErr != nil {
		return nil, 0, innerErr
	}
	return keys, total, nil
}

// isLeadingBid reports whether the bid of principal in auctionID is the leading bid of the open auction.
func isLeadingBid(current *Auction, auctionID uint64, principal ledger.Address) bool {
	return current != nil && current.Active && current.ID == auctionID && current.HighestBidder == principal
}

// StartAuction mints the token of lot and opens its auction.
// It is called by the contest engine when a winner is known.
func (e *Engine) StartAuction(tx *ledger.Tx, lot *Lot) (*Auction, error) {
	current, err := e.Current(tx)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Active {
		return nil, errors.Wrapf(ledger.ErrAuctionStillOpen, "auction %d", current.ID)
	}

	token, err := e.mint(tx, lot)
	if err != nil {
		return nil, err
	}

	auction := &Auction{
		ID:        1,
		TokenID:   token.ID,
		Lot:       lot,
		StartTime: tx.Timestamp(),
		EndTime:   tx.Timestamp().Add(e.config.Duration),
		Active:    true,
	}
	if current != nil {
		auction.ID = current.ID + 1
	}

	if err := e.storeAuction(tx, auction); err != nil {
		return nil, err
	}
	tx.PutUint64(currentKey(), auction.ID)

	tx.Emit(e.address, "AuctionCreated", auction)
	e.logDebugf("auction %d for token %d open until %s", auction.ID, token.ID, auction.EndTime)
	return auction, nil
}

// PlaceBid adds the value sent by the caller to its cumulative bid on the open auction.
// The cumulative bid must exceed the current highest bid.
func (e *Engine) PlaceBid(tx *ledger.Tx) (*BidEvent, error) {
	amount := tx.ValueFor(e.address)
	bidder := tx.Caller()

	auction, err := e.Current(tx)
	if err != nil {
		return nil, err
	}
	if auction == nil || !auction.Active || auction.Ended(tx.Timestamp()) {
		return nil, ledger.ErrAuctionNotActive
	}

	previous, err := e.Bid(tx, auction.ID, bidder)
	if err != nil {
		return nil, err
	}
	total := previous + amount

	if amount == 0 || total <= auction.HighestBid {
		return nil, errors.Wrapf(ledger.ErrBidTooLow, "bid of %d does not exceed %d", total, auction.HighestBid)
	}

	tx.PutUint64(bidKey(bidder, auction.ID), total)
	auction.HighestBid = total
	auction.HighestBidder = bidder
	if err := e.storeAuction(tx, auction); err != nil {
		return nil, err
	}

	event := &BidEvent{AuctionID: auction.ID, Bidder: bidder, Amount: amount, Total: total}
	tx.Emit(e.address, "BidPlaced", event)
	return event, nil
}

// Withdraw pays out every refundable bid and credit of the caller.
// The leading bid of the open auction stays locked. Withdrawing nothing is a no-op.
func (e *Engine) Withdraw(tx *ledger.Tx) (uint64, error) {
	release, err := tx.Enter(e.address)
	if err != nil {
		return 0, err
	}
	defer release()

	principal := tx.Caller()

	current, err := e.Current(tx)
	if err != nil {
		return 0, err
	}

	keys, total, err := refundableBids(tx, current, principal)
	if err != nil {
		return 0, err
	}

	credit, err := ledger.ReadUint64(tx, creditKey(principal))
	if err != nil {
		return 0, err
	}
	total += credit

	if total == 0 {
		return 0, nil
	}

	for _, key := range keys {
		tx.Delete(key)
	}
	tx.Delete(creditKey(principal))

	if err := tx.Transfer(e.address, principal, total); err != nil {
		return 0, err
	}

	tx.Emit(e.address, "Withdrawn", &WithdrawEvent{Principal: principal, Amount: total})
	return total, nil
}

// CheckUpkeep reports whether the open auction is due for settlement.
// The returned data identifies the auction and is passed to PerformUpkeep.
func (e *Engine) CheckUpkeep(state ledger.State) (bool, []byte, error) {
	auction, err := e.Current(state)
	if err != nil {
		return false, nil, err
	}
	if auction == nil || !auction.Active || !auction.Ended(state.Timestamp()) {
		return false, nil, nil
	}

	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, auction.ID)
	return true, data, nil
}

// PerformUpkeep settles the ended auction. Delivery of the token and forwarding
// of the proceeds never block settlement: a failed delivery leaves the token
// claimable and failed proceeds are credited to the treasury.
func (e *Engine) PerformUpkeep(tx *ledger.Tx, data []byte) (*Settlement, error) {
	release, err := tx.Enter(e.address)
	if err != nil {
		return nil, err
	}
	defer release()

	auction, err := e.Current(tx)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, errors.WithMessage(ledger.ErrNothingToDo, "no auction was started")
	}
	if len(data) == 8 && binary.BigEndian.Uint64(data) != auction.ID {
		return nil, errors.Wrapf(ledger.ErrAlreadySettled, "auction %d", binary.BigEndian.Uint64(data))
	}
	if !auction.Active {
		return nil, errors.Wrapf(ledger.ErrAlreadySettled, "auction %d", auction.ID)
	}
	if !auction.Ended(tx.Timestamp()) {
		return nil, errors.Wrapf(ledger.ErrUpkeepNotNeeded, "auction %d ends at %s", auction.ID, auction.EndTime)
	}

	settlement := &Settlement{
		Recipient: auction.HighestBidder,
		Proceeds:  auction.HighestBid,
		Timestamp: tx.Timestamp(),
	}
	if auction.HighestBid == 0 {
		settlement.Recipient = e.config.Treasury
	} else {
		tx.Delete(bidKey(auction.HighestBidder, auction.ID))
	}

	auction.Active = false
	auction.Settlement = settlement
	if err := e.storeAuction(tx, auction); err != nil {
		return nil, err
	}

	if err := e.moveToken(tx, auction.TokenID, settlement.Recipient); err != nil {
		e.logDebugf("delivering token %d of auction %d failed: %s", auction.TokenID, auction.ID, err)
		tx.Set(claimKey(auction.TokenID), settlement.Recipient[:])
	} else {
		settlement.AssetDelivered = true
	}

	if settlement.Proceeds > 0 {
		if err := tx.Transfer(e.address, e.config.Treasury, settlement.Proceeds); err != nil {
			e.logDebugf("forwarding proceeds of auction %d failed: %s", auction.ID, err)
			credit, err := ledger.ReadUint64(tx, creditKey(e.config.Treasury))
			if err != nil {
				return nil, err
			}
			tx.PutUint64(creditKey(e.config.Treasury), credit+settlement.Proceeds)
		} else {
			settlement.ProceedsForwarded = true
		}
	}

	if err := e.storeAuction(tx, auction); err != nil {
		return nil, err
	}

	tx.Emit(e.address, "AuctionSettled", auction)
	return settlement, nil
}

// PendingClaim returns the recipient of a token whose delivery failed.
func (e *Engine) PendingClaim(r ledger.Reader, tokenID uint64) (ledger.Address, bool, error) {
	value, err := r.Get(claimKey(tokenID))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return ledger.NullAddress, false, nil
	}
	if err != nil {
		return ledger.NullAddress, false, err
	}

	var recipient ledger.Address
	copy(recipient[:], value)
	return recipient, true, nil
}

// ClaimAsset delivers an undelivered token of the caller to to.
func (e *Engine) ClaimAsset(tx *ledger.Tx, tokenID uint64, to ledger.Address) error {
	recipient, exists, err := e.PendingClaim(tx, tokenID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrapf(ledger.ErrNothingToClaim, "token %d", tokenID)
	}
	if recipient != tx.Caller() {
		return errors.Wrapf(ledger.ErrNotAuthorized, "token %d is claimable by %s", tokenID, recipient)
	}

	if err := e.moveToken(tx, tokenID, to); err != nil {
		return err
	}
	tx.Delete(claimKey(tokenID))
	return nil
}
