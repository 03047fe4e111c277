package utils

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ReadJSONFromFile decodes the JSON file named by filename into data.
// Fields that data does not define are rejected.
func ReadJSONFromFile(filename string, data interface{}) error {
	jsonData, err := ioutil.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "unable to read JSON file %s", filename)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(data); err != nil {
		return errors.Wrapf(err, "unable to decode JSON file %s", filename)
	}
	return nil
}

// WriteJSONToFile writes data as indented JSON to filename, replacing its content.
func WriteJSONToFile(filename string, data interface{}, perm os.FileMode) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal data to JSON")
	}
	return writeFileSynced(filename, perm, jsonData)
}

// ReadTOMLFromFile decodes the TOML file named by filename into data.
func ReadTOMLFromFile(filename string, data interface{}) error {
	tomlData, err := ioutil.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "unable to read TOML file %s", filename)
	}
	return toml.Unmarshal(tomlData, data)
}

// WriteTOMLToFile writes data as TOML to filename, replacing its content.
// An optional header is written in front of it.
func WriteTOMLToFile(filename string, data interface{}, perm os.FileMode, header ...string) error {
	tomlData, err := toml.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "unable to marshal data to TOML")
	}
	if len(header) > 0 {
		tomlData = append([]byte(header[0]+"\n"), tomlData...)
	}
	return writeFileSynced(filename, perm, tomlData)
}

func writeFileSynced(filename string, perm os.FileMode, content []byte) (err error) {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if _, err := f.Write(content); err != nil {
		return errors.Wrapf(err, "unable to write to %s", filename)
	}
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "unable to fsync file content to %s", filename)
	}
	return nil
}
