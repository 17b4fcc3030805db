// ABOUTME: CLI commands for weekly abnormal-reading alerts.
// ABOUTME: Lists raised alerts and re-evaluates one or all patients.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/glucose/internal/clinical"
	"github.com/harperreed/glucose/internal/models"
	"github.com/spf13/cobra"
)

var (
	alertsLimit       int
	alertsAll         bool
	alertsConcurrency int
)

var alertsCmd = &cobra.Command{
	Use:     "alerts",
	Aliases: []string{"al"},
	Short:   "List and evaluate alerts",
	Long: `A patient gets at most one alert per week, raised when they have more than
3 abnormal readings in the trailing 7 days. Weeks start on Monday in the
configured timezone.

EXAMPLES:

  glucose alerts list alice          # Alerts raised for alice
  glucose alerts evaluate alice      # Re-check alice now
  glucose alerts evaluate --all      # Re-check every patient`,
}

var alertsListCmd = &cobra.Command{
	Use:     "list <patient>",
	Aliases: []string{"ls"},
	Short:   "List alerts raised for a patient",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := repo.ListAlerts(cmd.Context(), args[0], alertsLimit)
		if err != nil {
			return fmt.Errorf("failed to list alerts: %w", err)
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, a := range alerts {
			fmt.Printf("%s week of %s  %d abnormal\n",
				faint.Sprint(a.ID.String()[:8]),
				a.WeekKey(),
				a.AbnormalCount)
			for _, dl := range a.Deliveries {
				line := fmt.Sprintf("    %s %s via %s: %s", dl.Role, dl.RecipientID, dl.Channel, dl.Status)
				switch dl.Status {
				case models.DeliverySent:
					fmt.Println(line)
				case models.DeliveryFailed:
					color.Red("%s (%s)", line, dl.Error)
				default:
					fmt.Println(faint.Sprint(line))
				}
			}
		}
		return nil
	},
}

var alertsEvaluateCmd = &cobra.Command{
	Use:   "evaluate [patient]",
	Short: "Re-evaluate alert conditions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsAll == (len(args) == 1) {
			return errors.New("give a patient or --all, not both")
		}

		if !alertsAll {
			outcome, err := svc.EvaluateAlert(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutcome(args[0], outcome)
			return nil
		}

		results, err := svc.EvaluateAll(cmd.Context(), alertsConcurrency)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No patients found.")
			return nil
		}

		var failed int
		for _, res := range results {
			if res.Err != nil {
				failed++
				color.Red("✗ %s: %v", res.PatientID, res.Err)
				continue
			}
			printOutcome(res.PatientID, res.Outcome)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d patients failed evaluation", failed, len(results))
		}
		return nil
	},
}

func printOutcome(patientID string, o *clinical.AlertOutcome) {
	week := o.WeekStart.Format(models.WeekKeyLayout)
	switch {
	case o.Created:
		color.Red("! %s: alert raised for week of %s (%d abnormal)", patientID, week, o.AbnormalCount)
	case o.Alert != nil:
		color.Yellow("• %s: already alerted for week of %s (%d abnormal)", patientID, week, o.AbnormalCount)
	default:
		color.Green("✓ %s: no alert (%d abnormal)", patientID, o.AbnormalCount)
	}
}

func init() {
	alertsListCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 20, "max number of results")
	alertsEvaluateCmd.Flags().BoolVar(&alertsAll, "all", false, "evaluate every patient with readings")
	alertsEvaluateCmd.Flags().IntVar(&alertsConcurrency, "concurrency", 4, "patients evaluated in parallel with --all")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsEvaluateCmd)
	rootCmd.AddCommand(alertsCmd)
}
