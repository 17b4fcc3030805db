// ABOUTME: CLI commands for exporting and restoring a patient's glucose history.
// ABOUTME: Exports JSON or YAML; imports JSON exports back.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format> <patient>",
	Short: "Export a patient's data",
	Long: `Export everything stored for one patient: readings, override, alerts
with delivery status, and the latest suggestions.

FORMATS:

  json       Full JSON export
  yaml       YAML export (human-readable)

EXAMPLES:

  glucose export json alice                  # Print JSON to stdout
  glucose export yaml alice -o alice.yaml    # Save to file`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format, patientID := args[0], args[1]

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = repo.ExportJSON(cmd.Context(), patientID)
		case "yaml":
			data, err = repo.ExportYAML(cmd.Context(), patientID)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", format)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}

		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a patient from a JSON export",
	Long: `Restore a patient from a file written by 'glucose export json'.

Readings and alerts that already exist are skipped, so importing the same
file twice is harmless. The patient's override and suggestions are replaced
by the ones in the file.

EXAMPLES:

  glucose import alice.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		sum, err := repo.ImportJSON(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported %s from %s", sum.PatientID, args[0])
		fmt.Printf("  %d reading(s), %d alert(s), %d suggestion(s)\n", sum.Readings, sum.Alerts, sum.Suggestions)
		if skipped := sum.SkippedReadings + sum.SkippedAlerts; skipped > 0 {
			fmt.Println(color.New(color.Faint).Sprintf("  %d record(s) already present", skipped))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
