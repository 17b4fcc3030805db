// ABOUTME: MCP tool implementations for glucose readings.
// ABOUTME: Record, fetch and categorize readings, evaluate alerts, mine triggers, list alerts.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/glucose/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_reading",
		Description: "Record a blood glucose reading; it is categorized and may raise a weekly alert",
	}, s.handleRecordReading)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "categorize_reading",
		Description: "Categorize a glucose value for a patient without storing it",
	}, s.handleCategorizeReading)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_readings",
		Description: "List a patient's recent glucose readings, newest first",
	}, s.handleListReadings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_reading",
		Description: "Get one reading by ID or unique ID prefix",
	}, s.handleGetReading)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "evaluate_alert",
		Description: "Check whether a patient has had more than 3 abnormal readings in the last 7 days",
	}, s.handleEvaluateAlert)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_suggestions",
		Description: "Find foods and activities that recur in a patient's abnormal readings",
	}, s.handleGenerateSuggestions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_alerts",
		Description: "List alerts raised for a patient, most recent week first",
	}, s.handleListAlerts)
}

// Tool input/output types

type recordReadingInput struct {
	PatientID  string  `json:"patient_id" jsonschema:"Patient identifier"`
	Value      float64 `json:"value" jsonschema:"Glucose value"`
	Unit       string  `json:"unit,omitempty" jsonschema:"mg/dL (default) or mmol/L"`
	RecordedAt string  `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
	Food       string  `json:"food,omitempty" jsonschema:"Comma-separated foods eaten before the reading"`
	Activity   string  `json:"activity,omitempty" jsonschema:"Comma-separated activities before the reading"`
}

type readingOutput struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Degraded     bool   `json:"degraded,omitempty"`
	AlertCreated bool   `json:"alert_created"`
	Message      string `json:"message"`
}

type categorizeInput struct {
	PatientID string  `json:"patient_id" jsonschema:"Patient identifier"`
	Value     float64 `json:"value" jsonschema:"Glucose value"`
	Unit      string  `json:"unit,omitempty" jsonschema:"mg/dL (default) or mmol/L"`
	At        string  `json:"at,omitempty" jsonschema:"Instant whose thresholds apply (ISO 8601), defaults to now"`
}

type categoryOutput struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type patientInput struct {
	PatientID string `json:"patient_id" jsonschema:"Patient identifier"`
}

type listInput struct {
	PatientID string `json:"patient_id" jsonschema:"Patient identifier"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type getReadingInput struct {
	ID string `json:"id" jsonschema:"Reading ID or unique prefix (8 characters is usually enough)"`
}

type readingDetailOutput struct {
	ID         string  `json:"id"`
	PatientID  string  `json:"patient_id"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	ValueMgDL  float64 `json:"value_mgdl"`
	Category   string  `json:"category"`
	RecordedAt string  `json:"recorded_at"`
	Food       string  `json:"food,omitempty"`
	Activity   string  `json:"activity,omitempty"`
}

type alertOutput struct {
	Created       bool   `json:"created"`
	AbnormalCount int    `json:"abnormal_count"`
	WeekStart     string `json:"week_start"`
	AlertID       string `json:"alert_id,omitempty"`
	Message       string `json:"message"`
}

type suggestionOutput struct {
	Trigger     string  `json:"trigger"`
	Occurrences int     `json:"occurrences"`
	Percent     float64 `json:"percent"`
	TimeOfDay   string  `json:"time_of_day"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
}

type suggestionsOutput struct {
	Suggestions []suggestionOutput `json:"suggestions"`
	Message     string             `json:"message"`
}

// Tool handlers

func (s *Server) handleRecordReading(ctx context.Context, req *mcp.CallToolRequest, input recordReadingInput) (*mcp.CallToolResult, readingOutput, error) {
	unit, ok := models.ParseUnit(input.Unit)
	if !ok {
		return nil, readingOutput{}, fmt.Errorf("unknown unit: %s", input.Unit)
	}

	r := models.NewReading(input.PatientID, input.Value).WithUnit(unit).
		WithFood(input.Food).WithActivity(input.Activity)
	if input.RecordedAt != "" {
		t, err := parseTime(input.RecordedAt)
		if err != nil {
			return nil, readingOutput{}, err
		}
		r.WithRecordedAt(t)
	}

	res, err := s.svc.RecordReading(ctx, r)
	if err != nil {
		return nil, readingOutput{}, fmt.Errorf("failed to record reading: %w", err)
	}

	out := readingOutput{
		ID:       r.ID.String()[:8],
		Category: string(r.Category),
		Degraded: res.Degraded,
		Message:  fmt.Sprintf("Recorded %.1f %s as %s (ID: %s)", r.Value, r.Unit, r.Category, r.ID.String()[:8]),
	}
	if res.Alert != nil && res.Alert.Created {
		out.AlertCreated = true
		out.Message += fmt.Sprintf("; alert raised for week of %s", res.Alert.Alert.WeekKey())
	}
	if res.AlertErr != nil {
		out.Message += "; alert check failed: " + res.AlertErr.Error()
	}
	return nil, out, nil
}

func (s *Server) handleCategorizeReading(ctx context.Context, req *mcp.CallToolRequest, input categorizeInput) (*mcp.CallToolResult, categoryOutput, error) {
	unit, ok := models.ParseUnit(input.Unit)
	if !ok {
		return nil, categoryOutput{}, fmt.Errorf("unknown unit: %s", input.Unit)
	}
	at := time.Now()
	if input.At != "" {
		t, err := parseTime(input.At)
		if err != nil {
			return nil, categoryOutput{}, err
		}
		at = t
	}

	cat, err := s.svc.CategorizeReading(ctx, input.PatientID, input.Value, unit, at)
	if err != nil {
		return nil, categoryOutput{}, err
	}
	return nil, categoryOutput{
		Category: string(cat),
		Message:  fmt.Sprintf("%.1f %s is %s", input.Value, unit, cat),
	}, nil
}

func (s *Server) handleListReadings(ctx context.Context, req *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	readings, err := s.repo.ListReadings(ctx, input.PatientID, input.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, map[string]interface{}{"message": "No readings found."}, nil
	}
	return nil, readings, nil
}

func (s *Server) handleGetReading(ctx context.Context, req *mcp.CallToolRequest, input getReadingInput) (*mcp.CallToolResult, readingDetailOutput, error) {
	r, err := s.repo.GetReading(ctx, input.ID)
	if err != nil {
		return nil, readingDetailOutput{}, fmt.Errorf("failed to get reading: %w", err)
	}
	return nil, readingDetailOutput{
		ID:         r.ID.String(),
		PatientID:  r.PatientID,
		Value:      r.Value,
		Unit:       string(r.Unit),
		ValueMgDL:  r.ValueMgDL(),
		Category:   string(r.Category),
		RecordedAt: r.RecordedAt.Format(time.RFC3339),
		Food:       r.FoodNotes,
		Activity:   r.ActivityNotes,
	}, nil
}

func (s *Server) handleEvaluateAlert(ctx context.Context, req *mcp.CallToolRequest, input patientInput) (*mcp.CallToolResult, alertOutput, error) {
	outcome, err := s.svc.EvaluateAlert(ctx, input.PatientID)
	if err != nil {
		return nil, alertOutput{}, err
	}

	out := alertOutput{
		Created:       outcome.Created,
		AbnormalCount: outcome.AbnormalCount,
		WeekStart:     outcome.WeekStart.Format(models.WeekKeyLayout),
	}
	if outcome.Alert != nil {
		out.AlertID = outcome.Alert.ID.String()
	}
	switch {
	case outcome.Created:
		out.Message = fmt.Sprintf("Alert raised: %d abnormal readings", outcome.AbnormalCount)
	case outcome.Alert != nil:
		out.Message = fmt.Sprintf("Alert already raised for week of %s", out.WeekStart)
	default:
		out.Message = fmt.Sprintf("No alert: %d abnormal readings", outcome.AbnormalCount)
	}
	return nil, out, nil
}

func (s *Server) handleGenerateSuggestions(ctx context.Context, req *mcp.CallToolRequest, input patientInput) (*mcp.CallToolResult, suggestionsOutput, error) {
	suggestions, err := s.svc.GenerateSuggestions(ctx, input.PatientID)
	if err != nil {
		return nil, suggestionsOutput{}, err
	}

	out := suggestionsOutput{Suggestions: make([]suggestionOutput, 0, len(suggestions))}
	for _, sg := range suggestions {
		out.Suggestions = append(out.Suggestions, suggestionOutput{
			Trigger:     sg.Trigger,
			Occurrences: sg.Occurrences,
			Percent:     sg.Percent,
			TimeOfDay:   string(sg.TimeOfDay),
			Severity:    string(sg.Severity),
			Message:     sg.Message,
		})
	}
	if len(suggestions) == 0 {
		out.Message = "No recurring triggers found."
	} else {
		out.Message = fmt.Sprintf("Found %d recurring trigger(s).", len(suggestions))
	}
	return nil, out, nil
}

func (s *Server) handleListAlerts(ctx context.Context, req *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	alerts, err := s.repo.ListAlerts(ctx, input.PatientID, input.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil, map[string]interface{}{"message": "No alerts found."}, nil
	}
	return nil, alerts, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use ISO 8601 or YYYY-MM-DD HH:MM", s)
}
