// ABOUTME: CLI commands for the care team directory.
// ABOUTME: Assigns specialists to patients and records where alerts are emailed.
package main

import (
	"fmt"
	"net/mail"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <patient> <specialist>",
	Short: "Assign a specialist to a patient",
	Long: `Assign the specialist who receives a patient's weekly alerts alongside
the patient. Assigning again replaces the previous specialist.

EXAMPLES:

  glucose assign alice dr-ada`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repo.AssignSpecialist(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to assign specialist: %w", err)
		}
		color.Green("✓ %s now reviews alerts for %s", args[1], args[0])
		return nil
	},
}

var contactCmd = &cobra.Command{
	Use:   "contact <id> <email>",
	Short: "Set the email address for a patient or specialist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := mail.ParseAddress(args[1])
		if err != nil {
			return fmt.Errorf("invalid email: %s", args[1])
		}
		if err := repo.SetContactEmail(cmd.Context(), args[0], addr.Address); err != nil {
			return fmt.Errorf("failed to save contact: %w", err)
		}
		color.Green("✓ Alerts for %s go to %s", args[0], addr.Address)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(contactCmd)
}
