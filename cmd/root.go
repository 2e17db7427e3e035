package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	logLevel string
	logFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "borahae",
	Short: "BTS listening timelines from Last.fm",
	Long: `borahae reconstructs when a Last.fm user started listening to BTS and
how their listening evolved, and summarizes which members and eras they
play the most.

Results can be printed, saved as snapshots, served over a small JSON API,
or refreshed periodically by a background daemon.

The Last.fm API key is read from LASTFM_API_KEY, BORAHAE_LASTFM_API_KEY,
a .env file or ~/.config/borahae/config.yaml.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; default from config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path, rotated (default: stderr)")
}
