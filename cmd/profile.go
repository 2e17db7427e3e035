package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	profileSave bool
	profileJSON bool
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile <user>",
	Short: "Summarize a user's BTS listening",
	Long: `Summarize a Last.fm user's all-time BTS listening: share of scrobbles,
favorite album, BTS and solo artists in their top artists, and plays per
member.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

// membersCmd represents the members command
var membersCmd = &cobra.Command{
	Use:   "members <user>",
	Short: "Show plays per BTS member",
	Long: `Show how many of a user's all-time top track plays went to each member's
solo work, most played first.`,
	Args: cobra.ExactArgs(1),
	RunE: runMembers,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(membersCmd)

	profileCmd.Flags().BoolVar(&profileSave, "save", false, "Save the result as a snapshot")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Print JSON instead of a table")
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := newApp(profileSave)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := a.service.Profile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to build profile: %w", err)
	}

	if profileSave {
		snap, err := a.service.SaveProfile(ctx, summary)
		if err != nil {
			return err
		}
		a.logger.Info().Int64("id", snap.ID).Msg("Saved profile snapshot")
	}

	if profileJSON {
		return writeJSONTo(os.Stdout, summary)
	}
	printProfile(os.Stdout, summary)
	return nil
}

func runMembers(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := a.service.Profile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to build profile: %w", err)
	}

	printMembers(os.Stdout, summary)
	return nil
}
