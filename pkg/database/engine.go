package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/kvstore/pebble"

	"github.com/slotdao/cycled/pkg/utils"
)

type Engine string

const (
	EngineUnknown Engine = "unknown"
	EnginePebble  Engine = "pebble"
	EngineMapDB   Engine = "mapdb"
)

const (
	dbInfoFileName = "dbinfo"
)

var (
	// ErrUnknownEngine is returned for engines other than pebble and mapdb.
	ErrUnknownEngine = errors.New("unknown database engine, supported engines: pebble/mapdb")
	// ErrEngineMismatch is returned if an existing database was created with another engine.
	ErrEngineMismatch = errors.New("database engine does not match the configuration")
)

type databaseInfo struct {
	Engine string `toml:"databaseEngine"`
}

// DatabaseEngine parses a string and returns an engine.
// Returns an error if the engine is unknown.
func DatabaseEngine(engineStr string) (Engine, error) {

	engine := Engine(strings.ToLower(engineStr))

	switch engine {
	case EnginePebble, EngineMapDB:
		return engine, nil
	default:
		return EngineUnknown, errors.Wrap(ErrUnknownEngine, engineStr)
	}
}

// CheckDatabaseEngine checks if the correct database engine is used.
// This function stores a so called "database info file" in the database folder or
// checks if an existing "database info file" contains the correct engine.
// Otherwise the files in the database folder are not compatible.
func CheckDatabaseEngine(dbPath string, dbEngine Engine) (Engine, error) {

	if dbEngine == EngineMapDB {
		// no need to create or access a "database info file" in case of mapdb (in-memory)
		return EngineMapDB, nil
	}

	dbInfoFilePath := filepath.Join(dbPath, dbInfoFileName)
	if _, err := os.Stat(dbInfoFilePath); err != nil {
		if !os.IsNotExist(err) {
			return EngineUnknown, errors.Wrapf(err, "unable to check database info file (%s)", dbInfoFilePath)
		}

		dbExists, err := DatabaseExists(dbPath)
		if err != nil {
			return EngineUnknown, err
		}
		if dbExists {
			return EngineUnknown, errors.Errorf("database info file not found (%s)", dbInfoFilePath)
		}

		// a new database, remember the engine it is created with
		if err := storeDatabaseInfoToFile(dbInfoFilePath, dbEngine); err != nil {
			return EngineUnknown, err
		}
		return dbEngine, nil
	}

	dbEngineFromInfoFile, err := LoadDatabaseEngineFromFile(dbInfoFilePath)
	if err != nil {
		return EngineUnknown, err
	}

	if dbEngineFromInfoFile != dbEngine {
		return EngineUnknown, errors.Wrapf(ErrEngineMismatch, "'%v' != '%v'", dbEngineFromInfoFile, dbEngine)
	}

	return dbEngine, nil
}

// LoadDatabaseEngineFromFile returns the engine from the "database info file".
func LoadDatabaseEngineFromFile(path string) (Engine, error) {

	var info databaseInfo

	if err := utils.ReadTOMLFromFile(path, &info); err != nil {
		return EngineUnknown, errors.Wrap(err, "unable to read database info file")
	}

	return DatabaseEngine(info.Engine)
}

// storeDatabaseInfoToFile stores the used engine in a "database info file".
func storeDatabaseInfoToFile(filePath string, engine Engine) error {
	dirPath := filepath.Dir(filePath)

	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return errors.Wrapf(err, "could not create database dir '%s'", dirPath)
	}

	info := &databaseInfo{
		Engine: string(engine),
	}

	return utils.WriteTOMLToFile(filePath, info, 0660, "# auto-generated\n# !!! do not modify this file !!!")
}

// StoreWithDefaultSettings returns a kvstore with default settings.
// It also checks if the database engine is correct.
func StoreWithDefaultSettings(path string, dbEngine Engine) (kvstore.KVStore, error) {

	targetEngine, err := CheckDatabaseEngine(path, dbEngine)
	if err != nil {
		return nil, err
	}

	switch targetEngine {
	case EnginePebble:
		db, err := NewPebbleDB(path, nil)
		if err != nil {
			return nil, err
		}
		return pebble.New(db), nil

	case EngineMapDB:
		return mapdb.NewMapDB(), nil

	default:
		return nil, errors.Wrap(ErrUnknownEngine, string(targetEngine))
	}
}
