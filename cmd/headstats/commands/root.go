package commands

import (
	"github.com/spf13/cobra"
	"github.com/tolelom/headstats/config"
)

var (
	_config    = config.DefaultConfig()
	configFile string
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (TOML, YAML or JSON)")
}

// RootCmd is the root command for headstats
var RootCmd = &cobra.Command{
	Use:              "headstats",
	Short:            "Hydra game heads aggregator",
	TraverseChildren: true,
}
