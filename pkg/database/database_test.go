package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/database"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
)

func TestDatabaseEngine(t *testing.T) {
	engine, err := database.DatabaseEngine("Pebble")
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)

	_, err = database.DatabaseEngine("rocksdb")
	require.ErrorIs(t, err, database.ErrUnknownEngine)
}

func TestCheckDatabaseEngine(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	engine, err := database.CheckDatabaseEngine(dbPath, database.EnginePebble)
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)
	require.FileExists(t, filepath.Join(dbPath, "dbinfo"))

	engine, err = database.LoadDatabaseEngineFromFile(filepath.Join(dbPath, "dbinfo"))
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)

	_, err = database.CheckDatabaseEngine(dbPath, database.EngineMapDB)
	require.NoError(t, err)

	// a database folder without info file belongs to an unknown engine
	foreignPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(foreignPath, "MANIFEST"), []byte{1}, 0600))
	_, err = database.CheckDatabaseEngine(foreignPath, database.EnginePebble)
	require.Error(t, err)
}

func TestDatabaseExists(t *testing.T) {
	dbPath := t.TempDir()

	exists, err := database.DatabaseExists(filepath.Join(dbPath, "missing"))
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = database.DatabaseExists(dbPath)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(filepath.Join(dbPath, "000001.log"), []byte{1}, 0600))
	exists, err = database.DatabaseExists(dbPath)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger")
	alice := utils.NewNamedWallet("alice").Address()

	open := func() (*database.Database, *dao.DAO) {
		db, err := database.New(nil, dbPath, database.EnginePebble)
		require.NoError(t, err)
		l := ledger.New(db.KVStore(), ledger.WithClock(ledger.NewManualClock(testsuite.GenesisTime)))
		return db, dao.New(l, testsuite.DefaultParameters(), nil)
	}

	db, d := open()
	initialized, err := d.Initialized()
	require.NoError(t, err)
	require.False(t, initialized)
	require.NoError(t, d.Init(&dao.Genesis{
		Members:  map[ledger.Address]uint64{alice: 3},
		Balances: map[ledger.Address]uint64{alice: 25},
	}))
	require.NoError(t, d.Ledger.Close())
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	db, d = open()
	defer func() { require.NoError(t, db.Close()) }()

	initialized, err = d.Initialized()
	require.NoError(t, err)
	require.True(t, initialized)

	require.NoError(t, d.Ledger.View(func(state ledger.State) error {
		balance, err := ledger.BalanceOf(state, alice)
		require.NoError(t, err)
		require.EqualValues(t, 25, balance)

		weight, err := d.Membership.Weight(state, alice)
		require.NoError(t, err)
		require.EqualValues(t, 3, weight)
		return nil
	}))

	size, err := db.Size()
	require.NoError(t, err)
	require.Positive(t, size)
}
