// ABOUTME: MCP server setup for the glucose store.
// ABOUTME: Wraps the MCP server with storage access and the clinical service.
package mcp

import (
	"context"

	"github.com/harperreed/glucose/internal/clinical"
	"github.com/harperreed/glucose/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with storage and service access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	svc       *clinical.Service
}

// NewServer creates a new MCP server over repo. svc must be built on the same repo.
func NewServer(repo storage.Repository, svc *clinical.Service) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "glucose",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		svc:       svc,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
