package database

import (
	"sync/atomic"

	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/syncutils"

	"github.com/slotdao/cycled/pkg/utils"
)

// Events are the events issued by the database.
type Events struct {
	// Fired with true when a compaction starts and with false when it ends.
	DatabaseCompaction *events.Event
}

// Database holds the underlying KVStore and database specific functions.
type Database struct {
	log    *logger.Logger
	path   string
	engine Engine
	store  kvstore.KVStore
	events *Events

	compactionRunning atomic.Value
	compactionCount   uint64

	closeOnce syncutils.Mutex
	closed    bool
}

// New opens the store at path with the given engine.
func New(log *logger.Logger, path string, engine Engine) (*Database, error) {
	db := &Database{
		log:    log,
		path:   path,
		engine: engine,
		events: &Events{
			DatabaseCompaction: events.NewEvent(events.BoolCaller),
		},
	}
	db.compactionRunning.Store(false)

	switch engine {
	case EnginePebble:
		if _, err := CheckDatabaseEngine(path, engine); err != nil {
			return nil, err
		}
		pebbleInstance, err := NewPebbleDB(path, db.reportCompactionRunning)
		if err != nil {
			return nil, err
		}
		db.store = pebbleStore(pebbleInstance)

	default:
		store, err := StoreWithDefaultSettings(path, engine)
		if err != nil {
			return nil, err
		}
		db.store = store
	}

	return db, nil
}

// NewWithStore wraps an already opened store.
func NewWithStore(log *logger.Logger, store kvstore.KVStore, engine Engine) *Database {
	db := &Database{
		log:    log,
		engine: engine,
		store:  store,
		events: &Events{
			DatabaseCompaction: events.NewEvent(events.BoolCaller),
		},
	}
	db.compactionRunning.Store(false)
	return db
}

func (db *Database) reportCompactionRunning(running bool) {
	db.compactionRunning.Store(running)
	if running {
		atomic.AddUint64(&db.compactionCount, 1)
	}
	db.events.DatabaseCompaction.Trigger(running)
}

// KVStore returns the underlying KVStore.
func (db *Database) KVStore() kvstore.KVStore {
	return db.store
}

// Engine returns the engine of the database.
func (db *Database) Engine() Engine {
	return db.engine
}

// Path returns the folder of the database.
func (db *Database) Path() string {
	return db.path
}

// Events returns the events of the database.
func (db *Database) Events() *Events {
	return db.events
}

// CompactionSupported returns whether the database engine supports compaction.
func (db *Database) CompactionSupported() bool {
	return db.engine == EnginePebble
}

// CompactionRunning returns whether a compaction is running.
func (db *Database) CompactionRunning() bool {
	return db.compactionRunning.Load().(bool)
}

// CompactionCount returns the number of compactions since the database was opened.
func (db *Database) CompactionCount() uint64 {
	return atomic.LoadUint64(&db.compactionCount)
}

// Size returns the size of the database folder in bytes.
func (db *Database) Size() (int64, error) {
	if db.path == "" || db.engine == EngineMapDB {
		return 0, nil
	}
	return utils.FolderSize(db.path)
}

// Close flushes and closes the store. Further calls are no-ops.
func (db *Database) Close() error {
	db.closeOnce.Lock()
	defer db.closeOnce.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if db.log != nil {
		db.log.Info("Syncing database to disk ...")
	}
	if err := db.store.Flush(); err != nil {
		return err
	}
	if err := db.store.Close(); err != nil {
		return err
	}
	if db.log != nil {
		db.log.Info("Syncing database to disk ... done")
	}
	return nil
}
