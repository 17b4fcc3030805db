// ABOUTME: CLI commands for listing and inspecting glucose readings.
// ABOUTME: List shows a patient's readings newest first; show prints one by ID prefix.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list <patient>",
	Aliases: []string{"ls", "l"},
	Short:   "List glucose readings",
	Long: `List a patient's recent glucose readings, newest first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  CATEGORY  VALUE  UNIT  (NOTES)

EXAMPLES:

  glucose list alice          # Last 20 readings
  glucose list alice -n 100   # Last 100 readings`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := repo.ListReadings(cmd.Context(), args[0], listLimit)
		if err != nil {
			return fmt.Errorf("failed to list readings: %w", err)
		}

		if len(readings) == 0 {
			fmt.Println("No readings found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range readings {
			notes := strings.Trim(strings.Join([]string{r.FoodNotes, r.ActivityNotes}, "; "), "; ")
			if notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(notes, 40))
			}
			fmt.Printf("%s %s %s %.1f %s%s\n",
				faint.Sprint(r.ID.String()[:8]),
				faint.Sprint(r.RecordedAt.Local().Format("2006-01-02 15:04")),
				categoryColor(r.Category).Sprint(padRight(string(r.Category), 10)),
				r.Value,
				r.Unit,
				notes)
		}

		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one reading",
	Long: `Show a single reading by full ID or unique prefix, as printed by 'list'.
The current categorization is shown next to the stored one, so the effect of
a new threshold version or override is visible before 'recategorize'.

EXAMPLES:

  glucose show 3f2a9c1e`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.GetReading(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get reading: %w", err)
		}

		faint := color.New(color.Faint)
		fmt.Printf("%s %s\n", faint.Sprint(r.ID.String()), categoryColor(r.Category).Sprint(r.Category))
		fmt.Printf("  patient   %s\n", r.PatientID)
		fmt.Printf("  value     %.1f %s (%.1f mg/dL)\n", r.Value, r.Unit, r.ValueMgDL())
		fmt.Printf("  recorded  %s\n", r.RecordedAt.Local().Format("2006-01-02 15:04"))
		if r.FoodNotes != "" {
			fmt.Printf("  food      %s\n", r.FoodNotes)
		}
		if r.ActivityNotes != "" {
			fmt.Printf("  activity  %s\n", r.ActivityNotes)
		}

		current, err := svc.CategorizeReading(cmd.Context(), r.PatientID, r.Value, r.Unit, r.RecordedAt)
		switch {
		case err != nil:
			fmt.Println(faint.Sprintf("  now       cannot categorize: %v", err))
		case current != r.Category:
			color.Yellow("  now       %s (run 'glucose recategorize %s')", current, r.PatientID)
		}
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
