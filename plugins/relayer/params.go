package relayer

import (
	"time"

	flag "github.com/spf13/pflag"

	"github.com/slotdao/cycled/pkg/node"
)

const (
	// the time between two checks of the contest deadlines
	CfgRelayerPollInterval = "relayer.pollInterval"
	// the base URL the asset payload of a winning content reference points to
	CfgRelayerContentGatewayURL = "relayer.contentGatewayURL"
	// the address the relayer submits its transactions from
	CfgRelayerCallerAddress = "relayer.callerAddress"
	// the maximum time a failed ledger request is retried
	CfgRelayerBackoffMaxElapsed = "relayer.backoffMaxElapsed"
)

var params = &node.PluginParams{
	Params: map[string]*flag.FlagSet{
		"nodeConfig": func() *flag.FlagSet {
			fs := flag.NewFlagSet("", flag.ContinueOnError)
			fs.Duration(CfgRelayerPollInterval, 10*time.Second, "the time between two checks of the contest deadlines")
			fs.String(CfgRelayerContentGatewayURL, "", "the base URL the asset payload of a winning content reference points to")
			fs.String(CfgRelayerCallerAddress, "", "the address the relayer submits its transactions from (defaults to the relayer contract address)")
			fs.Duration(CfgRelayerBackoffMaxElapsed, 30*time.Second, "the maximum time a failed ledger request is retried")
			return fs
		}(),
	},
}
