package utils

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEd25519Keys(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	parsedPrivate, err := ParseEd25519PrivateKeyFromString("0x" + hex.EncodeToString(privateKey))
	require.NoError(t, err)
	require.Equal(t, privateKey, parsedPrivate)

	parsedPublic, err := ParseEd25519PublicKeyFromString(hex.EncodeToString(publicKey))
	require.NoError(t, err)
	require.Equal(t, publicKey, parsedPublic)

	_, err = ParseEd25519PrivateKeyFromString(hex.EncodeToString(publicKey))
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = ParseEd25519PublicKeyFromString("zz")
	require.Error(t, err)
}

func TestJSONFiles(t *testing.T) {
	type genesis struct {
		Members map[string]uint64 `json:"members"`
	}
	path := filepath.Join(t.TempDir(), "genesis.json")

	require.NoError(t, WriteJSONToFile(path, &genesis{Members: map[string]uint64{"alice": 3}}, 0600))

	read := &genesis{}
	require.NoError(t, ReadJSONFromFile(path, read))
	require.EqualValues(t, 3, read.Members["alice"])

	require.NoError(t, os.WriteFile(path, []byte(`{"memberz": {}}`), 0600))
	require.Error(t, ReadJSONFromFile(path, &genesis{}))
}

func TestTOMLFileWithHeader(t *testing.T) {
	type info struct {
		Engine string `toml:"databaseEngine"`
	}
	path := filepath.Join(t.TempDir(), "info")

	require.NoError(t, WriteTOMLToFile(path, &info{Engine: "pebble"}, 0600, "# header"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "# header\n")

	read := &info{}
	require.NoError(t, ReadTOMLFromFile(path, read))
	require.Equal(t, "pebble", read.Engine)

	size, err := FolderSize(filepath.Dir(path))
	require.NoError(t, err)
	require.EqualValues(t, len(content), size)
}
