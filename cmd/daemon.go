package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/borahae/internal/daemon"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Periodically refresh configured users",
	Long: `Run the refresher daemon for the users listed in daemon.users.

The daemon will:
- Refresh every user once on start, then every daemon.interval
- Build the full timeline (falling back to the simple one) and the profile
- Save both as snapshots for the API server and 'history'
- Record the outcome of each refresh in state.json (see 'status')
- Handle graceful shutdown on SIGINT/SIGTERM, pruning old snapshots

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a rotated file.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info().
		Str("version", version).
		Str("data_dir", a.cfg.DataDir).
		Msg("Starting borahae daemon")

	d, err := daemon.New(daemon.Config{
		Users:     a.cfg.Daemon.Users,
		Interval:  a.cfg.Daemon.Interval,
		StateFile: a.cfg.StatePath(),
	}, a.service, a.store, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	a.logger.Info().Msg("Daemon stopped")
	return nil
}
