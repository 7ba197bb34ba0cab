// Package mcp exposes district data to MCP clients over streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// Service is the district data the tools read.
type Service interface {
	Districts(ctx context.Context) ([]models.District, bool)
	Load(ctx context.Context, code, month string) dashboard.LoadResult
	Locate(ctx context.Context, lat, lon float64) (string, error)
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates the MCP handler with the district tools registered.
func NewHandler(service Service, logger *common.Logger) *Handler {
	mcpSrv := NewServer(service)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", len(toolNames)).
		Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// NewServer builds the MCP server and registers every tool.
func NewServer(service Service) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		"mgnrega-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	RegisterTools(mcpSrv, service)
	return mcpSrv
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
