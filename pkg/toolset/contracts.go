package toolset

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

// the names the built-in contracts derive their addresses from
var contractNames = []string{"membership", "contest", "auction", "treasury", "governance", "candidates"}

func listContractAddresses(args []string) error {

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", ToolContractAddresses)
		fs.PrintDefaults()
	}

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	addresses := make(map[string]string, len(contractNames))
	for _, name := range contractNames {
		addresses[name] = ledger.ContractAddress(name).String()
	}

	if *outputJSONFlag {
		return printJSON(addresses)
	}

	for _, name := range contractNames {
		fmt.Printf("%-12s %s\n", name+":", addresses[name])
	}
	return nil
}
