package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HexBytes is a byte slice that is hex encoded in JSON.
type HexBytes []byte

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// Transaction is a signed request of a principal to call a contract method.
type Transaction struct {
	PublicKey HexBytes        `json:"publicKey"`
	Nonce     uint64          `json:"nonce"`
	To        Address         `json:"to"`
	Value     uint64          `json:"value"`
	Method    string          `json:"method"`
	Args      json.RawMessage `json:"args,omitempty"`
	Signature HexBytes        `json:"signature"`
}

// NewTransaction builds an unsigned transaction. args are marshaled to JSON.
func NewTransaction(to Address, value uint64, method string, args interface{}) (*Transaction, error) {
	t := &Transaction{
		To:     to,
		Value:  value,
		Method: method,
	}

	if args != nil {
		argsBytes, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		t.Args = argsBytes
	}

	return t, nil
}

// SigningMessage returns the bytes covered by the signature.
func (t *Transaction) SigningMessage() []byte {
	m := marshalutil.New()
	m.WriteUint16(uint16(len(t.PublicKey)))
	m.WriteBytes(t.PublicKey)
	m.WriteUint64(t.Nonce)
	m.WriteBytes(t.To[:])
	m.WriteUint64(t.Value)
	m.WriteUint16(uint16(len(t.Method)))
	m.WriteBytes([]byte(t.Method))
	m.WriteUint32(uint32(len(t.Args)))
	m.WriteBytes(t.Args)
	return m.Bytes()
}

// ID is the blake2b-256 hash of the signing message.
func (t *Transaction) ID() [32]byte {
	return blake2b.Sum256(t.SigningMessage())
}

// Sign sets the public key and signs the transaction with nonce.
func (t *Transaction) Sign(privateKey ed25519.PrivateKey, nonce uint64) {
	t.PublicKey = HexBytes(privateKey.Public().(ed25519.PublicKey))
	t.Nonce = nonce
	t.Signature = ed25519.Sign(privateKey, t.SigningMessage())
}

// Sender returns the address of the signing principal.
func (t *Transaction) Sender() Address {
	return AddressFromPublicKey(ed25519.PublicKey(t.PublicKey))
}

// Verify checks the signature of the transaction.
func (t *Transaction) Verify() error {
	if len(t.PublicKey) != ed25519.PublicKeySize {
		return errors.WithMessagef(ErrInvalidSignature, "invalid public key length %d", len(t.PublicKey))
	}
	if !ed25519.Verify(ed25519.PublicKey(t.PublicKey), t.SigningMessage(), t.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

func nonceKey(address Address) []byte {
	m := marshalutil.New(1 + AddressLength)
	m.WriteByte(LedgerStoreKeyPrefixNonces) // 1 byte
	m.WriteBytes(address[:])                // 32 bytes
	return m.Bytes()
}

// Nonce returns the nonce the next transaction of address must carry.
func (l *Ledger) Nonce(address Address) (uint64, error) {
	l.RLock()
	defer l.RUnlock()
	return readUint64(&storeReader{store: l.store}, nonceKey(address))
}

// Submit verifies and executes a signed transaction.
// The nonce of the sender is consumed whether the call succeeds or fails.
func (l *Ledger) Submit(t *Transaction) (*Receipt, error) {
	if err := t.Verify(); err != nil {
		return nil, err
	}
	sender := t.Sender()

	l.Lock()

	if l.closed {
		l.Unlock()
		return nil, ErrLedgerClosed
	}

	nonce, err := readUint64(&storeReader{store: l.store}, nonceKey(sender))
	if err != nil {
		l.Unlock()
		return nil, err
	}
	if t.Nonce != nonce {
		l.Unlock()
		return nil, errors.WithMessagef(ErrInvalidNonce, "expected nonce %d, got %d", nonce, t.Nonce)
	}

	consumed := map[string][]byte{
		string(nonceKey(sender)): uint64Bytes(nonce + 1),
	}

	var result interface{}
	receipt, err := l.transact(sender, consumed, func(tx *Tx) error {
		var callErr error
		result, callErr = tx.Call(t.To, t.Value, t.Method, t.Args)
		return callErr
	})

	l.Unlock()

	if err != nil {
		return nil, err
	}

	receipt.Result = result
	l.publish(receipt)
	return receipt, nil
}
