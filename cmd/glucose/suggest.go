// ABOUTME: CLI commands for trigger mining and threshold re-application.
// ABOUTME: Suggest finds recurring foods and activities; recategorize re-runs thresholds.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/glucose/internal/models"
	"github.com/spf13/cobra"
)

var suggestDryRun bool

var suggestCmd = &cobra.Command{
	Use:   "suggest <patient>",
	Short: "Find recurring triggers in abnormal readings",
	Long: `Mine a patient's abnormal readings for foods and activities that keep
showing up. A trigger is suggested when it appears in at least 3 abnormal
readings and at least 40% of them; 70% or more is a strong suggestion.

Stored suggestions are replaced on every run unless --dry-run is given.

EXAMPLES:

  glucose suggest alice
  glucose suggest alice --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			suggestions []models.Suggestion
			err         error
		)
		if suggestDryRun {
			suggestions, err = svc.MineSuggestions(cmd.Context(), args[0])
		} else {
			suggestions, err = svc.GenerateSuggestions(cmd.Context(), args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to mine suggestions: %w", err)
		}

		if len(suggestions) == 0 {
			fmt.Println("No recurring triggers found.")
			return nil
		}

		for _, s := range suggestions {
			marker := color.YellowString("•")
			if s.Severity == models.SeverityStrong {
				marker = color.RedString("!")
			}
			fmt.Printf("%s %s\n", marker, s.Message)
		}
		return nil
	},
}

var recategorizeCmd = &cobra.Command{
	Use:   "recategorize <patient>",
	Short: "Re-apply thresholds to a patient's stored readings",
	Long: `Recategorize every stored reading for a patient using the threshold
version in effect at each reading's timestamp and the current override.
Run this after changing an override or back-dating a threshold version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changed, err := svc.ReapplyThresholds(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to recategorize: %w", err)
		}
		color.Green("✓ %d reading(s) changed category", changed)
		return nil
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestDryRun, "dry-run", false, "show suggestions without storing them")
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(recategorizeCmd)
}
