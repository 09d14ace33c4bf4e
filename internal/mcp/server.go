package mcp

import (
	"github.com/gregkdunn/flipper-mcp/internal/flipper"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name       string
	Version    string
	ScannerSvc *flipper.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.ScannerSvc != nil {
		flipper.RegisterAnalyzeTools(s, cfg.ScannerSvc)
		flipper.RegisterSearchTool(s, cfg.ScannerSvc)
	}

	return s
}
