// ABOUTME: CLI command for recording glucose readings.
// ABOUTME: Categorizes the reading and reports any alert it raised.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/glucose/internal/clinical"
	"github.com/harperreed/glucose/internal/models"
	"github.com/spf13/cobra"
)

var (
	addAt       string
	addUnit     string
	addFood     string
	addActivity string
)

var addCmd = &cobra.Command{
	Use:     "add <patient> <value>",
	Aliases: []string{"a"},
	Short:   "Record a glucose reading",
	Long: `Record a blood glucose reading for a patient. The reading is categorized
against the thresholds in effect at its timestamp, including any patient
override. An abnormal reading re-checks the weekly alert.

Food and activity notes are comma-separated; each entry is mined separately
by 'glucose suggest'.

Examples:
  glucose add alice 152
  glucose add alice 8.4 --unit mmol/L
  glucose add alice 210 --at "2025-03-04 12:30" --food "pizza, soda"
  glucose add alice 190 --activity "skipped walk"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}
		if err := clinical.ValidateValue(value); err != nil {
			return err
		}
		unit, ok := models.ParseUnit(addUnit)
		if !ok {
			return fmt.Errorf("unknown unit: %s (use mg/dL or mmol/L)", addUnit)
		}

		r := models.NewReading(args[0], value).WithUnit(unit).WithFood(addFood).WithActivity(addActivity)
		if addAt != "" {
			t, err := parseTime(addAt)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", addAt)
			}
			r.WithRecordedAt(t)
		}

		res, err := svc.RecordReading(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("failed to record reading: %w", err)
		}

		categoryColor(r.Category).Printf("✓ %s\n", r.Category)
		fmt.Printf("  %s %.1f %s\n",
			color.New(color.Faint).Sprint(r.ID.String()[:8]),
			r.Value, r.Unit)
		if res.Degraded {
			color.Yellow("  ! value falls between threshold ranges; stored as borderline")
		}
		if res.Alert != nil && res.Alert.Created {
			color.Red("  ! alert raised: %d abnormal readings in the last 7 days", res.Alert.AbnormalCount)
		}
		if res.AlertErr != nil {
			color.Yellow("  ! alert check failed: %v", res.AlertErr)
		}
		return nil
	},
}

func categoryColor(c models.Category) *color.Color {
	switch c {
	case models.CategoryAbnormal:
		return color.New(color.FgRed)
	case models.CategoryBorderline:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func init() {
	addCmd.Flags().StringVar(&addAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	addCmd.Flags().StringVarP(&addUnit, "unit", "u", "mg/dL", "unit: mg/dL or mmol/L")
	addCmd.Flags().StringVar(&addFood, "food", "", "comma-separated foods eaten")
	addCmd.Flags().StringVar(&addActivity, "activity", "", "comma-separated activities")
	rootCmd.AddCommand(addCmd)
}
