package flipper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// MaxParallelFiles is the maximum number of files analyzed concurrently
// within one diff analysis.
const MaxParallelFiles = 4

// ContentSource supplies the current text of a file when a diff's
// reconstructed content is empty. Implementations indicate absence with an
// error; the analyzer treats any failure as "no content available" for that
// one file.
type ContentSource interface {
	ReadFile(ctx context.Context, path string) (string, error)
}

// DiffAnalyzer runs the content matcher over every analyzable file in a
// unified diff and aggregates the detected flag names.
type DiffAnalyzer struct {
	matcher *Matcher
	filter  *FileFilter
	source  ContentSource
}

// NewDiffAnalyzer creates a DiffAnalyzer. source may be nil, in which case
// files whose diff content reconstructs empty are reported unavailable.
func NewDiffAnalyzer(matcher *Matcher, filter *FileFilter, source ContentSource) *DiffAnalyzer {
	return &DiffAnalyzer{
		matcher: matcher,
		filter:  filter,
		source:  source,
	}
}

// AnalyzeDiff parses diffText, analyzes each retained file, and synthesizes
// the report sections. Per-file analyses run concurrently but the result
// order always follows the diff's file order. A diff with zero flag
// detections yields empty report sections, not a templated "no flags"
// message.
func (a *DiffAnalyzer) AnalyzeDiff(ctx context.Context, diffText string) *domain.DiffAnalysisResult {
	records := ParseDiff(diffText)

	var retained []domain.FileChangeRecord
	for _, record := range records {
		if record.Status == domain.StatusDeleted {
			continue
		}
		if !a.filter.ShouldAnalyze(record.Path) {
			continue
		}
		retained = append(retained, record)
	}

	files := make([]domain.FileAnalysisResult, len(retained))
	sem := make(chan struct{}, MaxParallelFiles)
	var wg sync.WaitGroup

	for i, record := range retained {
		wg.Add(1)
		go func(i int, record domain.FileChangeRecord) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			files[i] = a.analyzeFile(ctx, record)
		}(i, record)
	}
	wg.Wait()

	uniqueFlags := collectUniqueFlags(files)
	result := &domain.DiffAnalysisResult{
		Files:           files,
		UniqueFlagNames: uniqueFlags,
		Summary:         summarizeDiff(files, uniqueFlags),
	}
	if len(uniqueFlags) > 0 {
		sections := BuildSections(uniqueFlags)
		result.QASection = sections.QA
		result.DetailsSection = sections.Details
	}
	return result
}

// analyzeFile obtains content for one changed file and runs the matcher.
// Content comes from the diff reconstruction when non-empty; otherwise the
// content source is consulted best-effort. A read failure is logged and
// isolated to this file.
func (a *DiffAnalyzer) analyzeFile(ctx context.Context, record domain.FileChangeRecord) domain.FileAnalysisResult {
	content := record.Content
	if content == "" && a.source != nil {
		read, err := a.source.ReadFile(ctx, record.Path)
		if err != nil {
			slog.Warn("Failed to read file content, skipping analysis", "path", record.Path, "error", err)
		} else {
			content = read
		}
	}

	if content == "" {
		return domain.FileAnalysisResult{
			Path:        record.Path,
			Status:      record.Status,
			Unavailable: true,
		}
	}

	analysis := a.matcher.Analyze(content)
	return domain.FileAnalysisResult{
		Path:       record.Path,
		Status:     record.Status,
		Detections: analysis.Detections,
	}
}

// collectUniqueFlags returns the union of resolved flag names across all
// files, preserving first-appearance order.
func collectUniqueFlags(files []domain.FileAnalysisResult) []string {
	seen := make(map[string]struct{})
	var flags []string
	for _, file := range files {
		for _, detection := range file.Detections {
			if detection.FlagName == "" {
				continue
			}
			if _, ok := seen[detection.FlagName]; ok {
				continue
			}
			seen[detection.FlagName] = struct{}{}
			flags = append(flags, detection.FlagName)
		}
	}
	return flags
}

func summarizeDiff(files []domain.FileAnalysisResult, flags []string) string {
	if len(flags) == 0 {
		return fmt.Sprintf("No flipper flags touched across %d analyzed file(s)", len(files))
	}
	return fmt.Sprintf("%d flipper flag(s) touched across %d analyzed file(s)", len(flags), len(files))
}
