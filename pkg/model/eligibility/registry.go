package eligibility

import (
	"encoding/binary"
	"encoding/json"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// Holds the current membership balance per address
	RegistryStoreKeyPrefixBalances byte = 0x10

	// Holds the balance checkpoints per address and sequence
	RegistryStoreKeyPrefixCheckpoints byte = 0x11

	// Holds the registry owner
	RegistryStoreKeyPrefixOwner byte = 0x12
)

// Oracle answers membership questions for vote weighting.
type Oracle interface {
	// Weight returns the current weight of principal.
	Weight(r ledger.Reader, principal ledger.Address) (uint64, error)
	// WeightAt returns the weight of principal as committed by the transaction with the given sequence.
	WeightAt(r ledger.Reader, principal ledger.Address, sequence uint64) (uint64, error)
}

// TransferEvent is emitted when membership units move.
type TransferEvent struct {
	From   ledger.Address `json:"from"`
	To     ledger.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// Registry is the membership asset. The weight of a principal is its balance.
type Registry struct {
	address ledger.Address
}

// NewRegistry creates the membership registry contract.
func NewRegistry() *Registry {
	return &Registry{address: ledger.ContractAddress("membership")}
}

func (r *Registry) Address() ledger.Address {
	return r.address
}

func (r *Registry) Name() string {
	return "membership"
}

func balanceKey(address ledger.Address) []byte {
	return append([]byte{RegistryStoreKeyPrefixBalances}, address[:]...)
}

func checkpointPrefix(address ledger.Address) []byte {
	return append([]byte{RegistryStoreKeyPrefixCheckpoints}, address[:]...)
}

func checkpointKey(address ledger.Address, sequence uint64) []byte {
	key := make([]byte, 1+ledger.AddressLength+8)
	copy(key, checkpointPrefix(address))
	// big endian keeps checkpoints ordered by sequence
	binary.BigEndian.PutUint64(key[1+ledger.AddressLength:], sequence)
	return key
}

func ownerKey() []byte {
	return []byte{RegistryStoreKeyPrefixOwner}
}

// Weight returns the current balance of principal.
func (r *Registry) Weight(state ledger.Reader, principal ledger.Address) (uint64, error) {
	return ledger.ReadUint64(state, balanceKey(principal))
}

// WeightAt returns the balance of principal after the transaction with the given sequence.
func (r *Registry) WeightAt(state ledger.Reader, principal ledger.Address, sequence uint64) (uint64, error) {
	var weight uint64
	var innerErr error

	if err := state.Iterate(checkpointPrefix(principal), func(key []byte, value []byte) bool {
		checkpoint := binary.BigEndian.Uint64(key[1+ledger.AddressLength:])
		if checkpoint > sequence {
			return false
		}
		if len(value) != 8 {
			innerErr = errors.Errorf("corrupted checkpoint of %s at %d", principal, checkpoint)
			return false
		}
		weight = binary.BigEndian.Uint64(value)
		return true
	}); err != nil {
		return 0, err
	}

	return weight, innerErr
}

func (r *Registry) setBalance(tx *ledger.Tx, address ledger.Address, balance uint64) {
	tx.PutUint64(balanceKey(address), balance)

	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, balance)
	tx.Set(checkpointKey(address, tx.Sequence()), value)
}

// Owner returns the address allowed to mint.
func (r *Registry) Owner(state ledger.Reader) (ledger.Address, error) {
	value, err := state.Get(ownerKey())
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return ledger.NullAddress, nil
	}
	if err != nil {
		return ledger.NullAddress, err
	}
	var owner ledger.Address
	copy(owner[:], value)
	return owner, nil
}

// SetOwner hands the minting right to owner. Only genesis or the current owner may call it.
func (r *Registry) SetOwner(tx *ledger.Tx, owner ledger.Address) error {
	if err := r.authorizeMint(tx); err != nil {
		return err
	}
	tx.Set(ownerKey(), owner[:])
	return nil
}

func (r *Registry) authorizeMint(tx *ledger.Tx) error {
	if tx.Caller().IsNull() {
		return nil
	}
	owner, err := r.Owner(tx)
	if err != nil {
		return err
	}
	if owner.IsNull() || owner != tx.Caller() {
		return errors.Wrapf(ledger.ErrNotAuthorized, "%s may not mint membership", tx.Caller())
	}
	return nil
}

// Mint issues amount membership units to principal.
func (r *Registry) Mint(tx *ledger.Tx, to ledger.Address, amount uint64) error {
	if err := r.authorizeMint(tx); err != nil {
		return err
	}
	if to.IsNull() {
		return ledger.ErrInvalidAddress
	}

	balance, err := r.Weight(tx, to)
	if err != nil {
		return err
	}
	r.setBalance(tx, to, balance+amount)
	tx.Emit(r.address, "Transfer", &TransferEvent{From: ledger.NullAddress, To: to, Amount: amount})
	return nil
}

// Transfer moves amount membership units from the caller to to.
func (r *Registry) Transfer(tx *ledger.Tx, to ledger.Address, amount uint64) error {
	if to.IsNull() {
		return ledger.ErrInvalidAddress
	}
	from := tx.Caller()

	fromBalance, err := r.Weight(tx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return errors.Wrapf(ledger.ErrInsufficientBalance, "%s holds %d membership units", from, fromBalance)
	}
	r.setBalance(tx, from, fromBalance-amount)

	toBalance, err := r.Weight(tx, to)
	if err != nil {
		return err
	}
	r.setBalance(tx, to, toBalance+amount)

	tx.Emit(r.address, "Transfer", &TransferEvent{From: from, To: to, Amount: amount})
	return nil
}

type transferArgs struct {
	To     ledger.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

func (r *Registry) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"mint": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in transferArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				return r.Mint(tx, in.To, in.Amount)
			}),
		},
		"transfer": {
			Handler: ledger.NoResult(func(tx *ledger.Tx, args json.RawMessage) error {
				var in transferArgs
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return err
				}
				return r.Transfer(tx, in.To, in.Amount)
			}),
		},
	}
}
