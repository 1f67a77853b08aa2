// Command runkit runs declarative chains from the command line and serves
// them over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/runkit/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	envFile    string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "runkit",
		Short:         "Compose and run runnable chains",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Config file (default: runkit.yml in ., config/ or cmd/runkit/)")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Env file loaded before the config (default: .env)")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newListCmd(g),
		newRunCmd(g),
		newBatchCmd(g),
		newServeCmd(g),
		newVersionCmd(g),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
