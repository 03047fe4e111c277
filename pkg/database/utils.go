package database

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// DatabaseExists checks if the database folder exists and is not empty.
func DatabaseExists(dbPath string) (bool, error) {

	dir, err := os.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "unable to check database path (%s)", dbPath)
	}
	defer func() { _ = dir.Close() }()

	// the directory may exist without a database (for example in docker environments)
	if _, err := dir.Readdirnames(1); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, errors.Wrapf(err, "unable to check database path (%s)", dbPath)
	}

	return true, nil
}
