package flipper

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gregkdunn/flipper-mcp/internal/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgument defines parameters for the find_flag_usages tool.
type SearchArgument struct {
	Flag      string `json:"flag" jsonschema_description:"Flag name to search for (e.g., zuora_maintenance)"`
	Extension string `json:"extension,omitempty" jsonschema_description:"Filter by file extension (e.g., ts, html)"`
}

// SearchHandler handles the find_flag_usages MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the usage search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult("Usage search is not available. Enable the usage index (index-enabled) and restart."), nil, nil
	}

	if strings.TrimSpace(args.Flag) == "" {
		return errorResult("Flag cannot be empty"), nil, nil
	}

	index, err := h.service.Index()
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to access usage index: %s", err)), nil, nil
	}

	searchReq := bleve.NewSearchRequest(h.buildQuery(args))
	searchReq.Size = h.service.Settings().MaxResults
	searchReq.Fields = []string{
		domain.UsageFieldFilePath,
		domain.UsageFieldFlag,
		domain.UsageFieldCategory,
		domain.UsageFieldLine,
		domain.UsageFieldContext,
	}

	results, err := index.Search(searchReq)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return h.formatResults(results, args.Flag), nil, nil
}

// buildQuery constructs a Bleve query from search arguments.
func (h *SearchHandler) buildQuery(args SearchArgument) query.Query {
	flagQuery := bleve.NewTermQuery(strings.TrimSpace(args.Flag))
	flagQuery.SetField(domain.UsageFieldFlag)

	if args.Extension == "" {
		return flagQuery
	}

	extQuery := bleve.NewTermQuery(normalizeExtension(args.Extension))
	extQuery.SetField(domain.UsageFieldExtension)

	return bleve.NewConjunctionQuery(flagQuery, extQuery)
}

// formatResults formats usage search results for the MCP response.
func (h *SearchHandler) formatResults(results *bleve.SearchResult, flag string) *mcp.CallToolResult {
	if results.Total == 0 {
		return textResult(fmt.Sprintf("No usages found for flag: %s", flag))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d usage(s) of '%s':\n\n", results.Total, flag))

	for i, hit := range results.Hits {
		filePath, _ := hit.Fields[domain.UsageFieldFilePath].(string)
		category, _ := hit.Fields[domain.UsageFieldCategory].(string)
		line, _ := hit.Fields[domain.UsageFieldLine].(float64)

		sb.WriteString(fmt.Sprintf("### %d. %s:%d\n", i+1, filePath, int(line)))
		sb.WriteString(fmt.Sprintf("**Category**: %s\n", category))
		if ctx, ok := hit.Fields[domain.UsageFieldContext].(string); ok && ctx != "" {
			sb.WriteString(fmt.Sprintf("```\n%s\n```\n", ctx))
		}
		sb.WriteString("\n")
	}

	if results.Total > uint64(len(results.Hits)) {
		sb.WriteString(fmt.Sprintf("... and %d more usages\n", results.Total-uint64(len(results.Hits))))
	}

	return textResult(sb.String())
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "find_flag_usages",
		Description: "Find every indexed usage of a feature flag across the workspace",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
