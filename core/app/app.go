package app

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/dig"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/logger"

	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/toolset"
)

var (
	// Name of the app.
	Name = "cycled"

	// Version of the app.
	Version = "0.3.0"
)

var (
	version  = flag.BoolP("version", "v", false, "prints the cycled version")
	help     = flag.BoolP("help", "h", false, "prints the cycled help (--full for all parameters)")
	helpFull = flag.Bool("full", false, "prints full cycled help (only in combination with -h)")

	nodeConfig = configuration.New()

	// config file flags
	configFilesFlagSet = flag.NewFlagSet("config_files", flag.ContinueOnError)
	nodeCfgFilePath    = configFilesFlagSet.StringP(CfgConfigFilePathNodeConfig, "c", "config.json", "file path of the config file")

	nonHiddenFlag = map[string]struct{}{
		"config":              {},
		"node.disablePlugins": {},
		"node.enablePlugins":  {},
		"ledger.genesisPath":  {},
		"db.path":             {},
		"restAPI.bindAddress": {},
		"version":             {},
		"help":                {},
	}

	cfgNames = map[string]struct{}{
		"nodeConfig": {},
	}

	ErrConfigDoesNotExist = errors.New("config does not exist")
)

func init() {
	InitPlugin = &node.InitPlugin{
		Pluggable: node.Pluggable{
			Name:           "App",
			Params:         params,
			InitConfigPars: initConfigPars,
			Provide:        provide,
			Configure:      configure,
		},
		Configs: map[string]*configuration.Configuration{
			"nodeConfig": nodeConfig,
		},
		Init: initialize,
	}
}

var (
	InitPlugin *node.InitPlugin
)

// AppInfo describes the running binary.
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func initialize(params map[string][]*flag.FlagSet, maskedKeys []string) (*node.InitConfig, error) {

	configFlagSets, err := normalizeFlagSets(params)
	if err != nil {
		return nil, err
	}

	if toolset.ShouldHandleTools() {
		toolset.HandleTools()
		// HandleTools will call os.Exit
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage of %s (%s %s):

Run '%s tools' to list all available tools.

Command line flags:
`, os.Args[0], Name, Version, os.Args[0])
		flag.PrintDefaults()
	}

	flagSetsToParse := configFlagSets
	flagSetsToParse["config_files"] = configFilesFlagSet

	parseFlags(flagSetsToParse)
	printVersion(flagSetsToParse)

	if err = loadCfg(configFlagSets); err != nil {
		return nil, err
	}

	if err = nodeConfig.SetDefault(logger.ConfigurationKeyDisableCaller, true); err != nil {
		return nil, err
	}

	if err = logger.InitGlobalLogger(nodeConfig); err != nil {
		return nil, err
	}

	fmt.Printf("\n  %s v%s - contest and DAO ledger node\n\n", Name, Version)

	printConfig(maskedKeys)

	return &node.InitConfig{
		EnabledPlugins:  nodeConfig.Strings(CfgNodeEnablePlugins),
		DisabledPlugins: nodeConfig.Strings(CfgNodeDisablePlugins),
	}, nil
}

func initConfigPars(c *dig.Container) {

	type cfgResult struct {
		dig.Out
		NodeConfig *configuration.Configuration `name:"nodeConfig"`
	}

	if err := c.Provide(func() cfgResult {
		return cfgResult{
			NodeConfig: nodeConfig,
		}
	}); err != nil {
		InitPlugin.LogPanic(err)
	}
}

func provide(c *dig.Container) {

	if err := c.Provide(func() *AppInfo {
		return &AppInfo{
			Name:    Name,
			Version: Version,
		}
	}); err != nil {
		InitPlugin.LogPanic(err)
	}
}

func configure() {
	InitPlugin.LogInfo("Loading plugins ...")
}
