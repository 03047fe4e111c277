package node

import (
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/daemon"

	"github.com/slotdao/cycled/pkg/utils"
)

// PluginParams defines the parameters configuration of a plugin.
type PluginParams struct {
	// The parameters of the plugin under for the defined configuration.
	Params map[string]*flag.FlagSet
	// The configuration values to mask.
	Masked []string
}

// Pluggable is something which extends the Node's capabilities.
type Pluggable struct {
	// A reference to the Node instance.
	Node *Node
	// The name of the plugin.
	Name string
	// The config parameters for this plugin.
	Params *PluginParams
	// The function to call to initialize the plugin dependencies.
	DepsFunc interface{}
	// InitConfigPars gets called in the init stage of node initialization.
	// This can be used to provide config parameters even if the pluggable is disabled.
	InitConfigPars ProvideFunc
	// Provide gets called in the provide stage of node initialization.
	Provide ProvideFunc
	// Configure gets called in the configure stage of node initialization.
	Configure Callback
	// Run gets called in the run stage of node initialization.
	Run Callback

	*utils.WrappedLogger
}

// Daemon returns the daemon of the node.
func (p *Pluggable) Daemon() daemon.Daemon {
	return p.Node.Daemon()
}

// Identifier returns the lower case name without whitespace.
func (p *Pluggable) Identifier() string {
	return strings.ToLower(strings.Replace(p.Name, " ", "", -1))
}

// InitPlugin is the module initializing configuration of the node.
// A Node can only have one of such modules.
type InitPlugin struct {
	Pluggable
	// Init gets called in the initialization stage of the node.
	Init InitFunc
	// The configs this InitPlugin brings to the node.
	Configs map[string]*configuration.Configuration
}

// CorePlugin is a plugin essential for node operation.
// It can not be disabled.
type CorePlugin struct {
	Pluggable
}

// Status is the default status of a plugin.
type Status int

const (
	StatusDisabled Status = iota
	StatusEnabled
)

// Plugin is a pluggable that can be enabled or disabled by configuration.
type Plugin struct {
	Pluggable
	// The status of the plugin.
	Status Status
}
