// ABOUTME: MCP resource implementations for glucose data.
// ABOUTME: Provides glucose://thresholds/current and glucose://patients resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	thresholdsURI = "glucose://thresholds/current"
	patientsURI   = "glucose://patients"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         thresholdsURI,
		Name:        "Current Thresholds",
		Description: "Threshold version in effect now, plus version history",
		MIMEType:    "application/json",
	}, s.handleThresholdsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         patientsURI,
		Name:        "Patients",
		Description: "Patients with at least one reading",
		MIMEType:    "application/json",
	}, s.handlePatientsResource)
}

func (s *Server) handleThresholdsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	current, err := s.repo.SystemThresholds(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load thresholds: %w", err)
	}
	history, err := s.repo.ListThresholdSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threshold versions: %w", err)
	}

	result := map[string]interface{}{
		"configured": current != nil,
		"current":    current,
		"versions":   len(history),
	}
	return jsonResource(thresholdsURI, result)
}

func (s *Server) handlePatientsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	if patients == nil {
		patients = []string{}
	}
	return jsonResource(patientsURI, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
