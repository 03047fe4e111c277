package toolset

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wollac/iota-crypto-demo/pkg/bip32path"
	"github.com/wollac/iota-crypto-demo/pkg/bip39"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

func TestDeriveEd25519KeyIsDeterministic(t *testing.T) {
	mnemonic, err := bip39.EntropyToMnemonic(make([]byte, 32))
	require.NoError(t, err)

	path, err := bip32path.ParsePath("m/44'/4218'/0'/0'/0'")
	require.NoError(t, err)

	privKey, pubKey, err := deriveEd25519Key(mnemonic, path)
	require.NoError(t, err)
	require.Equal(t, pubKey, privKey.Public())

	again, _, err := deriveEd25519Key(bip39.ParseMnemonic(mnemonic.String()), path)
	require.NoError(t, err)
	require.Equal(t, privKey, again)

	other, err := bip32path.ParsePath("m/44'/4218'/0'/0'/1'")
	require.NoError(t, err)
	_, otherPubKey, err := deriveEd25519Key(mnemonic, other)
	require.NoError(t, err)
	require.NotEqual(t, ledger.AddressFromPublicKey(pubKey), ledger.AddressFromPublicKey(otherPubKey))
}
