package auction

import (
	"encoding/binary"
	"encoding/json"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

// Token is a minted contest winner.
type Token struct {
	ID         uint64         `json:"id"`
	Owner      ledger.Address `json:"owner"`
	Cycle      uint64         `json:"cycle"`
	Slot       uint8          `json:"slot"`
	ContentRef string         `json:"contentRef"`
	Metadata   string         `json:"metadata"`
}

// TokenTransferEvent is emitted when a token changes owner.
type TokenTransferEvent struct {
	TokenID uint64         `json:"tokenId"`
	From    ledger.Address `json:"from"`
	To      ledger.Address `json:"to"`
}

func idKey(prefix byte, id uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

func tokenKey(tokenID uint64) []byte {
	return idKey(AuctionStoreKeyPrefixTokens, tokenID)
}

func tokenCountKey() []byte {
	return []byte{AuctionStoreKeyPrefixTokenCount}
}

// Token returns the token with the given id.
func (e *Engine) Token(r ledger.Reader, tokenID uint64) (*Token, error) {
	value, err := r.Get(tokenKey(tokenID))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, errors.WithMessagef(ledger.ErrInvalidArguments, "unknown token %d", tokenID)
	}
	if err != nil {
		return nil, err
	}

	token := &Token{}
	if err := json.Unmarshal(value, token); err != nil {
		return nil, err
	}
	return token, nil
}

// TokenCount returns the number of minted tokens.
func (e *Engine) TokenCount(r ledger.Reader) (uint64, error) {
	return ledger.ReadUint64(r, tokenCountKey())
}

func (e *Engine) storeToken(tx *ledger.Tx, token *Token) error {
	value, err := json.Marshal(token)
	if err != nil {
		return err
	}
	tx.Set(tokenKey(token.ID), value)
	return nil
}

// mint creates a token held in custody by the auction engine.
func (e *Engine) mint(tx *ledger.Tx, lot *Lot) (*Token, error) {
	count, err := e.TokenCount(tx)
	if err != nil {
		return nil, err
	}

	token := &Token{
		ID:         count + 1,
		Owner:      e.address,
		Cycle:      lot.Cycle,
		Slot:       lot.Slot,
		ContentRef: lot.ContentRef,
		Metadata:   lot.Metadata,
	}
	if err := e.storeToken(tx, token); err != nil {
		return nil, err
	}
	tx.PutUint64(tokenCountKey(), token.ID)

	tx.Emit(e.address, "TokenTransfer", &TokenTransferEvent{TokenID: token.ID, From: ledger.NullAddress, To: e.address})
	return token, nil
}

// moveToken changes the owner of a token and runs the receiver hook of to.
// A rejected delivery leaves the token untouched.
func (e *Engine) moveToken(tx *ledger.Tx, tokenID uint64, to ledger.Address) error {
	if to.IsNull() {
		return ledger.ErrInvalidAddress
	}

	return tx.Savepoint(func(tx *ledger.Tx) error {
		token, err := e.Token(tx, tokenID)
		if err != nil {
			return err
		}
		from := token.Owner

		token.Owner = to
		if err := e.storeToken(tx, token); err != nil {
			return err
		}
		if err := tx.NotifyAssetReceived(to, e.address, tokenID); err != nil {
			return err
		}

		tx.Emit(e.address, "TokenTransfer", &TokenTransferEvent{TokenID: tokenID, From: from, To: to})
		return nil
	})
}

// TransferToken moves a token owned by the caller to to.
func (e *Engine) TransferToken(tx *ledger.Tx, tokenID uint64, to ledger.Address) error {
	token, err := e.Token(tx, tokenID)
	if err != nil {
		return err
	}
	if token.Owner != tx.Caller() {
		return errors.Wrapf(ledger.ErrNotAuthorized, "%s does not own token %d", tx.Caller(), tokenID)
	}
	return e.moveToken(tx, tokenID, to)
}
