package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/borahae/internal/daemon"
	"github.com/jfmyers9/borahae/internal/store"
)

var (
	historyKind  string
	historyLimit int
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "List saved snapshots of a user",
	Long: `List saved snapshots of a user, newest first.

Snapshots are written by 'timeline --save', 'profile --save', the API
server and the daemon.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's last refresh of each user",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)

	historyCmd.Flags().StringVar(&historyKind, "kind", string(store.KindTimeline), "Snapshot kind (timeline, simple, profile)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of snapshots (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print JSON instead of a table")
}

func runHistory(cmd *cobra.Command, args []string) error {
	kind := store.Kind(historyKind)
	if !kind.Valid() {
		return fmt.Errorf("unknown snapshot kind %q (want timeline, simple or profile)", historyKind)
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshots, err := a.store.History(cmd.Context(), args[0], kind, historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		return writeJSONTo(os.Stdout, snapshots)
	}
	printHistory(os.Stdout, snapshots, time.Now())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := daemon.ReadState(a.cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to read daemon state: %w", err)
	}

	printStatus(os.Stdout, users, time.Now())
	return nil
}
