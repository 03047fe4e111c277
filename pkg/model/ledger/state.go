package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/pkg/errors"
)

// Reader gives read access to ledger state.
// Iterate always visits keys in ascending byte order.
type Reader interface {
	// Get returns kvstore.ErrKeyNotFound if the key does not exist.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Iterate(prefix []byte, consumer func(key []byte, value []byte) bool) error
}

// State is a consistent view of the ledger at a point in time.
type State interface {
	Reader
	// Timestamp is the ledger time of the view.
	Timestamp() time.Time
	// Sequence is the sequence number of the transaction being executed,
	// or of the last committed one for read-only views.
	Sequence() uint64
}

type storeReader struct {
	store kvstore.KVStore
}

func (r *storeReader) Get(key []byte) ([]byte, error) {
	return r.store.Get(key)
}

func (r *storeReader) Has(key []byte) (bool, error) {
	return r.store.Has(key)
}

func (r *storeReader) Iterate(prefix []byte, consumer func(key []byte, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := r.store.Iterate(prefix, func(key kvstore.Key, value kvstore.Value) bool {
		entries[string(key)] = append([]byte{}, value...)
		return true
	}); err != nil {
		return err
	}
	iterateSorted(entries, consumer)
	return nil
}

func iterateSorted(entries map[string][]byte, consumer func(key []byte, value []byte) bool) {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !consumer([]byte(key), entries[key]) {
			return
		}
	}
}

// frame is a write overlay on top of a parent reader.
type frame struct {
	parent  Reader
	writes  map[string][]byte
	deletes map[string]struct{}
	logs    []*Log
}

func newFrame(parent Reader) *frame {
	return &frame{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (f *frame) Get(key []byte) ([]byte, error) {
	if _, deleted := f.deletes[string(key)]; deleted {
		return nil, kvstore.ErrKeyNotFound
	}
	if value, exists := f.writes[string(key)]; exists {
		return append([]byte{}, value...), nil
	}
	return f.parent.Get(key)
}

func (f *frame) Has(key []byte) (bool, error) {
	_, err := f.Get(key)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *frame) Iterate(prefix []byte, consumer func(key []byte, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := f.parent.Iterate(prefix, func(key []byte, value []byte) bool {
		entries[string(key)] = value
		return true
	}); err != nil {
		return err
	}

	for key := range f.deletes {
		delete(entries, key)
	}
	for key, value := range f.writes {
		if bytes.HasPrefix([]byte(key), prefix) {
			entries[key] = append([]byte{}, value...)
		}
	}

	iterateSorted(entries, consumer)
	return nil
}

func (f *frame) set(key []byte, value []byte) {
	delete(f.deletes, string(key))
	f.writes[string(key)] = append([]byte{}, value...)
}

func (f *frame) delete(key []byte) {
	delete(f.writes, string(key))
	f.deletes[string(key)] = struct{}{}
}

// mergeInto applies all changes of f to its parent frame.
func (f *frame) mergeInto(parent *frame) {
	for key := range f.deletes {
		delete(parent.writes, key)
		parent.deletes[key] = struct{}{}
	}
	for key, value := range f.writes {
		delete(parent.deletes, key)
		parent.writes[key] = value
	}
	parent.logs = append(parent.logs, f.logs...)
}

// commit writes all changes of f to the store in a single batch.
func (f *frame) commit(store kvstore.KVStore) error {
	mutations := store.Batched()

	for key := range f.deletes {
		if err := mutations.Delete([]byte(key)); err != nil {
			mutations.Cancel()
			return err
		}
	}
	for key, value := range f.writes {
		if err := mutations.Set([]byte(key), value); err != nil {
			mutations.Cancel()
			return err
		}
	}

	return mutations.Commit()
}

// view is a read-only State on the committed store.
type view struct {
	Reader
	timestamp time.Time
	sequence  uint64
}

func (v *view) Timestamp() time.Time {
	return v.timestamp
}

func (v *view) Sequence() uint64 {
	return v.sequence
}
