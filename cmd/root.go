package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "orderbook-replayer",
	Short: "Orderbook history engine",
	Long: `Orderbook history engine that records raw exchange orderbook streams,
compresses them into minimal top-N transcripts, and replays them with
random-access temporal traversal.

Subcommands:
  record    subscribe to the exchange feed and write raw ob500 files
  compress  turn a raw file into a compressed top-N transcript
  serve     expose the replay API over HTTP`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
