package toolset

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"github.com/wollac/iota-crypto-demo/pkg/bip32path"
	"github.com/wollac/iota-crypto-demo/pkg/bip39"
	"github.com/wollac/iota-crypto-demo/pkg/slip10"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/utils"
)

type ed25519Info struct {
	BIP39      string `json:"mnemonic,omitempty"`
	BIP32      string `json:"path,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
	PublicKey  string `json:"publicKey"`
	Address    string `json:"address"`
}

func printEd25519Info(info *ed25519Info, outputJSON bool) error {
	if outputJSON {
		return printJSON(info)
	}

	if len(info.BIP39) > 0 {
		fmt.Println("Your seed BIP39 mnemonic: ", info.BIP39)
		fmt.Println()
		fmt.Println("Your BIP32 path:          ", info.BIP32)
	}
	if len(info.PrivateKey) > 0 {
		fmt.Println("Your ed25519 private key: ", info.PrivateKey)
	}
	fmt.Println("Your ed25519 public key:  ", info.PublicKey)
	fmt.Println("Your ledger address:      ", info.Address)
	return nil
}

// deriveEd25519Key derives the key at path from the seed of mnemonic.
func deriveEd25519Key(mnemonic bip39.Mnemonic, path bip32path.Path) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	seed, err := bip39.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, nil, err
	}

	key, err := slip10.DeriveKeyFromPath(seed, slip10.Ed25519(), path)
	if err != nil {
		return nil, nil, err
	}
	pubKey, privKey := slip10.Ed25519Key(key)
	return ed25519.PrivateKey(privKey), ed25519.PublicKey(pubKey), nil
}

func generateEd25519Key(args []string) error {

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	bip32Path := fs.String(FlagToolBIP32Path, "m/44'/4218'/0'/0'/0'", "the BIP32 path that should be used to derive keys from seed")
	mnemonicFlag := fs.String(FlagToolMnemonic, "", "an existing BIP39 mnemonic (a new one is generated if empty)")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", ToolEd25519Key)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nexample: %s --%s %s\n", ToolEd25519Key, FlagToolBIP32Path, "\"m/44'/4218'/0'/0'/0'\"")
	}

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if len(*bip32Path) == 0 {
		return fmt.Errorf("'%s' not specified", FlagToolBIP32Path)
	}

	path, err := bip32path.ParsePath(*bip32Path)
	if err != nil {
		return err
	}

	var mnemonic bip39.Mnemonic
	if len(*mnemonicFlag) > 0 {
		mnemonic = bip39.ParseMnemonic(*mnemonicFlag)
		if _, err := bip39.MnemonicToEntropy(mnemonic); err != nil {
			return errors.Wrapf(err, "invalid '%s'", FlagToolMnemonic)
		}
	} else {
		entropy := make([]byte, 32)
		if _, err := rand.Read(entropy); err != nil {
			return err
		}
		if mnemonic, err = bip39.EntropyToMnemonic(entropy); err != nil {
			return err
		}
	}

	privKey, pubKey, err := deriveEd25519Key(mnemonic, path)
	if err != nil {
		return err
	}

	return printEd25519Info(&ed25519Info{
		BIP39:      mnemonic.String(),
		BIP32:      path.String(),
		PrivateKey: hex.EncodeToString(privKey),
		PublicKey:  hex.EncodeToString(pubKey),
		Address:    ledger.AddressFromPublicKey(pubKey).String(),
	}, *outputJSONFlag)
}

func generateEd25519Address(args []string) error {

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	publicKeyFlag := fs.String(FlagToolPublicKey, "", "an ed25519 public key")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", ToolEd25519Addr)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nexample: %s --%s %s\n", ToolEd25519Addr, FlagToolPublicKey, "[PUB_KEY]")
	}

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	pubKey, err := utils.ParseEd25519PublicKeyFromString(*publicKeyFlag)
	if err != nil {
		return fmt.Errorf("can't decode '%s': %w", FlagToolPublicKey, err)
	}

	return printEd25519Info(&ed25519Info{
		PublicKey: hex.EncodeToString(pubKey),
		Address:   ledger.AddressFromPublicKey(pubKey).String(),
	}, *outputJSONFlag)
}
