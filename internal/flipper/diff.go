package flipper

import (
	"strings"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// ParseDiff parses a unified-diff text block into an ordered list of
// per-file change records. Parsing is best-effort: unrecognized lines are
// skipped, never rejected, so a truncated or slightly malformed diff still
// yields whatever file sections it contains.
//
// Reconstructed content is built from added and context lines only. That is
// not a byte-exact checkout, but detections only need to see the resulting
// text, and every line present in the diff's added or context lines is
// visible to the matcher even when full file content is unavailable.
func ParseDiff(diffText string) []domain.FileChangeRecord {
	if diffText == "" {
		return nil
	}

	var records []domain.FileChangeRecord
	var current *domain.FileChangeRecord
	var content []string

	flush := func() {
		if current == nil {
			return
		}
		// Deleted files always reconstruct empty: there is no resulting
		// state to analyze.
		if current.Status != domain.StatusDeleted {
			current.Content = strings.Join(content, "\n")
		}
		records = append(records, *current)
		current = nil
		content = nil
	}

	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			current = &domain.FileChangeRecord{
				Path:   diffHeaderPath(line),
				Status: domain.StatusModified,
			}
		case current == nil:
			// Preamble before the first file header.
		case strings.HasPrefix(line, "new file mode"):
			current.Status = domain.StatusAdded
		case strings.HasPrefix(line, "deleted file mode"):
			current.Status = domain.StatusDeleted
		case strings.HasPrefix(line, "rename from"), strings.HasPrefix(line, "rename to"):
			current.Status = domain.StatusRenamed
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// File header lines, not content.
		case strings.HasPrefix(line, "+"):
			content = append(content, line[1:])
		case strings.HasPrefix(line, " "):
			content = append(content, line[1:])
		default:
			// Removed lines, hunk headers, mode lines, "\ No newline"
			// markers: irrelevant to the resulting state.
		}
	}
	flush()

	return records
}

// diffHeaderPath extracts the post-change path from a "diff --git a/x b/y"
// header line, preferring the "b/" side. A header it cannot parse yields an
// empty path rather than an error.
func diffHeaderPath(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	return strings.TrimPrefix(last, "b/")
}
