package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/borahae/internal/refresh"
)

var (
	timelineSimple bool
	timelineSave   bool
	timelineJSON   bool
)

// timelineCmd represents the timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline <user>",
	Short: "Reconstruct a user's BTS listening timeline",
	Long: `Reconstruct when a Last.fm user first played BTS and how their listening
evolved since.

The first week with BTS plays is found by binary search over the user's
weekly charts, then every few weeks from there are sampled (see
timeline.sample_weeks). Weeks that cannot be fetched are reported as
skipped. If the weekly chart list itself is unavailable, a simple timeline
from all-time top tracks is shown instead.

With --simple, only the all-time top tracks are used: one request, totals
and favorite era only.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().BoolVar(&timelineSimple, "simple", false, "Build from all-time top tracks only")
	timelineCmd.Flags().BoolVar(&timelineSave, "save", false, "Save the result as a snapshot")
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "Print JSON instead of a table")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(timelineSave)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	mode := refresh.ModeFull
	if timelineSimple {
		mode = refresh.ModeSimple
	}

	result, err := a.service.Timeline(ctx, args[0], mode)
	if err != nil {
		return fmt.Errorf("failed to build timeline: %w", err)
	}

	if timelineSave {
		snap, err := a.service.SaveTimeline(ctx, result)
		if err != nil {
			return err
		}
		a.logger.Info().Int64("id", snap.ID).Msg("Saved timeline snapshot")
	}

	if timelineJSON {
		return writeJSONTo(os.Stdout, result)
	}
	printTimeline(os.Stdout, result)
	return nil
}
