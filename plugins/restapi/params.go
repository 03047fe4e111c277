package restapi

import (
	flag "github.com/spf13/pflag"

	"github.com/slotdao/cycled/pkg/node"
)

const (
	// the bind address on which the REST API listens on
	CfgRestAPIBindAddress = "restAPI.bindAddress"
	// whether the debug logging for requests should be enabled
	CfgRestAPIDebugRequestLoggerEnabled = "restAPI.debugRequestLoggerEnabled"
	// the maximum number of characters that the body of an API call may contain
	CfgRestAPILimitsMaxBodyLength = "restAPI.limits.maxBodyLength"
	// the maximum number of results that may be returned by an endpoint
	CfgRestAPILimitsMaxResults = "restAPI.limits.maxResults"
	// the number of transactions per second accepted by the API
	CfgRestAPILimitsTransactionsPerSecond = "restAPI.limits.transactionsPerSecond"
	// the number of transactions accepted at once above the rate
	CfgRestAPILimitsTransactionsBurst = "restAPI.limits.transactionsBurst"
)

var params = &node.PluginParams{
	Params: map[string]*flag.FlagSet{
		"nodeConfig": func() *flag.FlagSet {
			fs := flag.NewFlagSet("", flag.ContinueOnError)
			fs.String(CfgRestAPIBindAddress, "0.0.0.0:8080", "the bind address on which the REST API listens on")
			fs.Bool(CfgRestAPIDebugRequestLoggerEnabled, false, "whether the debug logging for requests should be enabled")
			fs.String(CfgRestAPILimitsMaxBodyLength, "1M", "the maximum number of characters that the body of an API call may contain")
			fs.Int(CfgRestAPILimitsMaxResults, 1000, "the maximum number of results that may be returned by an endpoint")
			fs.Float64(CfgRestAPILimitsTransactionsPerSecond, 20, "the number of transactions per second accepted by the API")
			fs.Int(CfgRestAPILimitsTransactionsBurst, 50, "the number of transactions accepted at once above the rate")
			return fs
		}(),
	},
}
