// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server over the glucose service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/glucose/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server so an AI assistant can
record readings and review alerts. The server communicates via stdin/stdout.

AVAILABLE TOOLS:

  record_reading         Record and categorize a reading
  categorize_reading     Categorize a value without storing it
  list_readings          List a patient's recent readings
  get_reading            Get one reading by ID prefix
  evaluate_alert         Run the weekly alert check
  generate_suggestions   Mine recurring triggers
  list_alerts            List alerts raised for a patient

AVAILABLE RESOURCES:

  glucose://thresholds/current   Threshold versions and the one in effect
  glucose://patients             Patients with readings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo, svc)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
