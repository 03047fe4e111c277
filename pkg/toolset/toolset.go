package toolset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

const (
	FlagToolPublicKey  = "publicKey"
	FlagToolBIP32Path  = "bip32Path"
	FlagToolMnemonic   = "mnemonic"
	FlagToolOutputJSON = "json"

	FlagToolDescriptionOutputJSON = "format output as JSON"
)

const (
	ToolEd25519Key        = "ed25519-key"
	ToolEd25519Addr       = "ed25519-addr"
	ToolContractAddresses = "contract-addresses"
)

type tool struct {
	description string
	handler     func(args []string) error
}

var tools = map[string]tool{
	ToolEd25519Key:        {description: "generates an ed25519 key pair", handler: generateEd25519Key},
	ToolEd25519Addr:       {description: "derives the ledger address of an ed25519 public key", handler: generateEd25519Address},
	ToolContractAddresses: {description: "lists the addresses of the built-in contracts", handler: listContractAddresses},
}

// ShouldHandleTools checks if tools were requested.
func ShouldHandleTools() bool {
	for _, arg := range os.Args[1:] {
		if strings.ToLower(arg) == "tool" || strings.ToLower(arg) == "tools" {
			return true
		}
	}
	return false
}

// HandleTools runs the requested tool and exits.
func HandleTools() {
	args := os.Args[1:]
	for i, arg := range args {
		if strings.ToLower(arg) == "tool" || strings.ToLower(arg) == "tools" {
			args = args[i:]
			break
		}
	}

	if len(args) == 1 {
		listTools()
		os.Exit(1)
	}

	t, exists := tools[strings.ToLower(args[1])]
	if !exists {
		fmt.Print("tool not found.\n\n")
		listTools()
		os.Exit(1)
	}

	if err := t.handler(args[2:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("\nerror: %s\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}

func listTools() {
	for _, name := range []string{ToolEd25519Key, ToolEd25519Addr, ToolContractAddresses} {
		fmt.Printf("%-20s %s\n", fmt.Sprintf("%s:", name), tools[name].description)
	}
}

func parseFlagSet(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(fs.Args()) > 0 {
		return fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func printJSON(obj interface{}) error {
	output, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(output))
	return nil
}
