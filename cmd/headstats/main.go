// Command headstats watches a set of Hydra heads running the game contract
// and serves aggregated statistics over HTTP.
package main

import (
	"os"

	"github.com/tolelom/headstats/cmd/headstats/commands"
)

func main() {
	rootCmd := commands.RootCmd

	rootCmd.AddCommand(
		commands.NewRunCmd(),
		commands.NewKeygenCmd(),
		commands.VersionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
