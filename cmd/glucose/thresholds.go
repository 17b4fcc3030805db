// ABOUTME: CLI commands for versioned system thresholds and patient overrides.
// ABOUTME: New threshold versions are appended; overrides replace only the normal range.
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/glucose/internal/models"
	"github.com/spf13/cobra"
)

var thresholdsEffective string

var thresholdsCmd = &cobra.Command{
	Use:     "thresholds",
	Aliases: []string{"th"},
	Short:   "Manage threshold versions",
	Long: `Manage the system-wide category thresholds. Every change creates a new
version; readings are categorized with the version in effect at their
timestamp. Ranges are in mg/dL and written LOW-HIGH.

EXAMPLES:

  glucose thresholds set 70-140 141-180 181-600
  glucose thresholds set 70-130 131-180 181-600 --effective 2025-04-01
  glucose thresholds list`,
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set <normal> <borderline> <abnormal>",
	Short: "Create a new threshold version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ranges [3]models.Range
		for i, arg := range args {
			r, err := parseRange(arg)
			if err != nil {
				return err
			}
			ranges[i] = r
		}

		t := models.NewThresholdSet(ranges[0], ranges[1], ranges[2])
		if thresholdsEffective != "" {
			at, err := parseTime(thresholdsEffective)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", thresholdsEffective)
			}
			t.WithEffectiveAt(at)
		}

		if err := repo.InsertThresholdSet(cmd.Context(), t); err != nil {
			return fmt.Errorf("failed to save thresholds: %w", err)
		}

		color.Green("✓ Threshold version %d", t.Version)
		fmt.Printf("  normal %s  borderline %s  abnormal %s\n", t.Normal, t.Borderline, t.Abnormal)
		fmt.Printf("  effective %s\n", t.EffectiveAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var thresholdsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List threshold versions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, err := repo.ListThresholdSets(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list thresholds: %w", err)
		}
		if len(sets) == 0 {
			fmt.Println("No thresholds configured.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, t := range sets {
			fmt.Printf("%s %s normal %s  borderline %s  abnormal %s\n",
				padRight(fmt.Sprintf("v%d", t.Version), 4),
				faint.Sprint(t.EffectiveAt.Local().Format("2006-01-02 15:04")),
				t.Normal, t.Borderline, t.Abnormal)
		}
		return nil
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage per-patient normal ranges",
	Long: `A patient override replaces only the normal range of whichever threshold
version applies. Borderline and abnormal ranges always come from the system.

EXAMPLES:

  glucose override set alice 80-150
  glucose override clear alice`,
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <patient> <normal>",
	Short: "Set a patient's normal range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseRange(args[1])
		if err != nil {
			return err
		}

		o := &models.PatientOverride{PatientID: args[0], Normal: r}
		if err := repo.SetPatientOverride(cmd.Context(), o); err != nil {
			return fmt.Errorf("failed to save override: %w", err)
		}

		color.Green("✓ Normal range for %s is now %s", args[0], r)
		return nil
	},
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear <patient>",
	Short: "Remove a patient's normal range override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repo.ClearPatientOverride(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to clear override: %w", err)
		}
		color.Green("✓ Cleared override for %s", args[0])
		return nil
	},
}

// parseRange parses "LOW-HIGH" into a validated closed range.
func parseRange(s string) (models.Range, error) {
	low, high, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return models.Range{}, fmt.Errorf("invalid range: %s (use LOW-HIGH)", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(low), 64)
	if err != nil {
		return models.Range{}, fmt.Errorf("invalid range: %s (use LOW-HIGH)", s)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(high), 64)
	if err != nil {
		return models.Range{}, fmt.Errorf("invalid range: %s (use LOW-HIGH)", s)
	}
	r := models.Range{Low: lo, High: hi}
	if err := r.Validate(); err != nil {
		return models.Range{}, fmt.Errorf("invalid range %s: %w", s, err)
	}
	return r, nil
}

func init() {
	thresholdsSetCmd.Flags().StringVar(&thresholdsEffective, "effective", "", "when the version takes effect (default: now)")

	thresholdsCmd.AddCommand(thresholdsSetCmd)
	thresholdsCmd.AddCommand(thresholdsListCmd)
	overrideCmd.AddCommand(overrideSetCmd)
	overrideCmd.AddCommand(overrideClearCmd)

	rootCmd.AddCommand(thresholdsCmd)
	rootCmd.AddCommand(overrideCmd)
}
