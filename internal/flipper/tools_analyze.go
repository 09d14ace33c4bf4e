package flipper

import (
	"context"
	"fmt"
	"strings"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalyzeTextArgument defines parameters for the analyze_text tool.
type AnalyzeTextArgument struct {
	Text string `json:"text" jsonschema_description:"Source text to scan for feature flag usage"`
}

// AnalyzeDiffArgument defines parameters for the analyze_diff tool.
type AnalyzeDiffArgument struct {
	Diff string `json:"diff" jsonschema_description:"Unified diff text (git diff format)"`
}

// ScanWorkspaceArgument defines parameters for the scan_workspace_changes tool.
type ScanWorkspaceArgument struct {
	Staged bool   `json:"staged,omitempty" jsonschema_description:"Scan only staged changes instead of all uncommitted changes"`
	Ref    string `json:"ref,omitempty" jsonschema_description:"Diff against this ref (e.g., origin/main) instead of scanning uncommitted changes"`
}

// AnalyzeHandler handles the text and diff analysis MCP tools.
type AnalyzeHandler struct {
	service *Service
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(service *Service) *AnalyzeHandler {
	return &AnalyzeHandler{
		service: service,
	}
}

// HandleText scans raw text and returns a markdown detection listing.
func (h *AnalyzeHandler) HandleText(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeTextArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Text) == "" {
		return errorResult("Text cannot be empty"), nil, nil
	}

	result := h.service.Analyze(args.Text)
	return textResult(formatAnalysis(result)), nil, nil
}

// HandleDiff runs the full diff pipeline and returns the per-file summary
// plus the synthesized report sections.
func (h *AnalyzeHandler) HandleDiff(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeDiffArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Diff) == "" {
		return errorResult("Diff cannot be empty"), nil, nil
	}

	result := h.service.AnalyzeDiff(ctx, args.Diff)
	return textResult(formatDiffAnalysis(result)), nil, nil
}

// HandleScanWorkspace obtains a workspace diff via git and analyzes it.
// By default the diff covers uncommitted changes; a ref argument diffs the
// working tree against that ref instead.
func (h *AnalyzeHandler) HandleScanWorkspace(ctx context.Context, req *mcp.CallToolRequest, args ScanWorkspaceArgument) (*mcp.CallToolResult, any, error) {
	var diff string
	var err error
	if args.Ref != "" {
		diff, err = h.service.WorkspaceDiffAgainst(ctx, args.Ref)
	} else {
		diff, err = h.service.WorkspaceDiff(ctx, args.Staged)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to obtain workspace diff: %s", err)), nil, nil
	}
	if strings.TrimSpace(diff) == "" {
		if args.Ref != "" {
			return textResult(fmt.Sprintf("No changes relative to %s.", args.Ref)), nil, nil
		}
		return textResult("No uncommitted changes in the workspace."), nil, nil
	}

	result := h.service.AnalyzeDiff(ctx, diff)
	return textResult(formatDiffAnalysis(result)), nil, nil
}

// formatAnalysis renders an AnalysisResult as markdown.
func formatAnalysis(result *domain.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(result.Summary)
	sb.WriteString("\n")

	for i, d := range result.Detections {
		sb.WriteString(fmt.Sprintf("\n### %d. %s (line %d, col %d)\n", i+1, d.Category, d.Line, d.Column))
		sb.WriteString(fmt.Sprintf("%s\n", d.Description))
		if d.FlagName != "" {
			sb.WriteString(fmt.Sprintf("**Flag**: `%s`\n", d.FlagName))
		}
		sb.WriteString(fmt.Sprintf("```\n%s\n```\n", d.Context))
	}
	return sb.String()
}

// formatDiffAnalysis renders a DiffAnalysisResult as markdown.
func formatDiffAnalysis(result *domain.DiffAnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(result.Summary)
	sb.WriteString("\n")

	for _, file := range result.Files {
		switch {
		case file.Unavailable:
			sb.WriteString(fmt.Sprintf("\n- `%s` (%s): content unavailable, not analyzed\n", file.Path, file.Status))
		case len(file.Detections) == 0:
			sb.WriteString(fmt.Sprintf("\n- `%s` (%s): no flag usage\n", file.Path, file.Status))
		default:
			sb.WriteString(fmt.Sprintf("\n- `%s` (%s): %d detection(s)\n", file.Path, file.Status, len(file.Detections)))
			for _, d := range file.Detections {
				flag := d.FlagName
				if flag == "" {
					flag = "(no flag)"
				}
				sb.WriteString(fmt.Sprintf("  - line %d: %s %s\n", d.Line, d.Category, flag))
			}
		}
	}

	if result.QASection != "" {
		sb.WriteString("\n")
		sb.WriteString(result.QASection)
		sb.WriteString("\n")
		sb.WriteString(result.DetailsSection)
	}
	return sb.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// AnalyzeTextToolDefinition returns the MCP tool definition for analyze_text.
func (h *AnalyzeHandler) AnalyzeTextToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "analyze_text",
		Description: "Scan source text for feature flag (flipper) usage and report every detection",
	}
}

// AnalyzeDiffToolDefinition returns the MCP tool definition for analyze_diff.
func (h *AnalyzeHandler) AnalyzeDiffToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "analyze_diff",
		Description: "Analyze a unified diff for feature flag usage and synthesize QA and environment-setup review sections",
	}
}

// ScanWorkspaceToolDefinition returns the MCP tool definition for scan_workspace_changes.
func (h *AnalyzeHandler) ScanWorkspaceToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scan_workspace_changes",
		Description: "Scan the workspace's uncommitted git changes, or its diff against a ref, for feature flag usage",
	}
}

// RegisterAnalyzeTools registers the analysis tools with an MCP server.
func RegisterAnalyzeTools(server *mcp.Server, service *Service) {
	handler := NewAnalyzeHandler(service)
	mcp.AddTool(server, handler.AnalyzeTextToolDefinition(), handler.HandleText)
	mcp.AddTool(server, handler.AnalyzeDiffToolDefinition(), handler.HandleDiff)
	mcp.AddTool(server, handler.ScanWorkspaceToolDefinition(), handler.HandleScanWorkspace)
}
