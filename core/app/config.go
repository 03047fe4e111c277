package app

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

func getList(a []string) string {
	sort.Strings(a)
	return "\n   - " + strings.Join(a, "\n   - ")
}

func normalizeFlagSets(params map[string][]*flag.FlagSet) (map[string]*flag.FlagSet, error) {
	fs := make(map[string]*flag.FlagSet)
	for cfgName, flagSets := range params {

		// check whether the config even exists
		if _, has := cfgNames[cfgName]; !has {
			return nil, errors.Wrap(ErrConfigDoesNotExist, cfgName)
		}

		flagsUnderSameCfg := flag.NewFlagSet("", flag.ContinueOnError)
		for _, flagSet := range flagSets {
			flagSet.VisitAll(func(f *flag.Flag) {
				flagsUnderSameCfg.AddFlag(f)
			})
		}
		fs[cfgName] = flagsUnderSameCfg
	}
	return fs, nil
}

// loads the config file, the flag defaults and the environment.
func loadCfg(flagSets map[string]*flag.FlagSet) error {
	if err := nodeConfig.LoadFile(*nodeCfgFilePath); err != nil {
		if hasFlag(flag.CommandLine, CfgConfigFilePathNodeConfig) {
			// if a file was explicitly specified, raise the error
			return err
		}
		fmt.Printf("No config file found via '%s'. Loading default settings.\n", *nodeCfgFilePath)
	}

	// load the flags to set the default values
	if err := nodeConfig.LoadFlagSet(flagSets["nodeConfig"]); err != nil {
		return err
	}

	// load the env vars after default values from flags were set (otherwise the env vars are not added because the keys don't exist)
	if err := nodeConfig.LoadEnvironmentVars("CYCLED"); err != nil {
		return err
	}

	// load the flags again to overwrite env vars that were also set via command line
	return nodeConfig.LoadFlagSet(flagSets["nodeConfig"])
}

func hasFlag(flagSet *flag.FlagSet, name string) bool {
	has := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			has = true
		}
	})
	return has
}

// prints the loaded configuration, but hides sensitive information.
func printConfig(maskedKeys []string) {
	nodeConfig.Print(maskedKeys)

	enablePlugins := nodeConfig.Strings(CfgNodeEnablePlugins)
	disablePlugins := nodeConfig.Strings(CfgNodeDisablePlugins)

	if len(enablePlugins) > 0 {
		fmt.Printf("\nThe following plugins are enabled: %s\n", getList(enablePlugins))
	}
	if len(disablePlugins) > 0 {
		fmt.Printf("\nThe following plugins are disabled: %s\n", getList(disablePlugins))
	}
	if len(enablePlugins) > 0 || len(disablePlugins) > 0 {
		fmt.Println()
	}
}

// adds the given flag sets to flag.CommandLine and then parses them.
func parseFlags(flagSets map[string]*flag.FlagSet) {
	for _, flagSet := range flagSets {
		flag.CommandLine.AddFlagSet(flagSet)
	}
	flag.Parse()
}

// hides all non essential flags from the help/usage text.
func hideConfigFlags() {
	flag.VisitAll(func(f *flag.Flag) {
		_, notHidden := nonHiddenFlag[f.Name]
		f.Hidden = !notHidden
	})
}

func printVersion(flagSets map[string]*flag.FlagSet) {
	if *version {
		fmt.Println(Name + " " + Version)
		os.Exit(0)
	}

	if *help {
		if !*helpFull {
			hideConfigFlags()
		}
		flag.Usage()
		os.Exit(0)
	}
}
